package model

// IngestRequest 是 /documents/ingest 的请求体：把存储桶中的教材 PDF 拆分为页面文档。
type IngestRequest struct {
	TextbookID    string `json:"textbookId" binding:"required"`
	TextbookTitle string `json:"textbookTitle"`
	ObjectName    string `json:"objectName" binding:"required"`
}
