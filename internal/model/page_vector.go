package model

// PageVector 是存储在 Elasticsearch 中的教材页面向量文档。
type PageVector struct {
	DocumentID    string    `json:"document_id"` // 对应 Sanity 页面文档 _id
	TextbookID    string    `json:"textbook_id"`
	TextbookTitle string    `json:"textbook_title"`
	PageNumber    int       `json:"page_number"`
	Content       string    `json:"content"`
	Vector        []float32 `json:"vector"`
	ModelVersion  string    `json:"model_version"`
}
