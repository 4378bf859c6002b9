package model

// QuestionRequest 是 /question/generate 与 /question/enhanced 的请求体。
type QuestionRequest struct {
	DocumentID   string     `json:"documentId"`
	PDFID        string     `json:"pdfId"` // 旧版前端使用的字段名
	PageNumber   PageNumber `json:"pageNumber"`
	SelectedText string     `json:"selectedText"`
}

// Document 返回文档 id，documentId 为空时回退到 pdfId。
func (r QuestionRequest) Document() string {
	return firstNonEmpty(r.DocumentID, r.PDFID)
}

// Anchor 标记问题对应的页面。
type Anchor struct {
	PageNumber int `json:"pageNumber"`
}

// QuestionResult 是问题生成流程的产物。
type QuestionResult struct {
	Question      string
	Concepts      []string
	Anchor        Anchor
	ContextUsed   bool
	ContextDigest string
}

// GenerateQuestionResponse 是 /question/generate 的响应体。
type GenerateQuestionResponse struct {
	Question   string   `json:"question"`
	Concepts   []string `json:"concepts"`
	Anchor     Anchor   `json:"anchor"`
	PDFContext string   `json:"pdfContext,omitempty"`
}

// EnhancedQuestionResponse 是 /question/enhanced 的响应体。
type EnhancedQuestionResponse struct {
	Question       string   `json:"question"`
	Concepts       []string `json:"concepts"`
	Anchor         Anchor   `json:"anchor"`
	EmbeddingsUsed bool     `json:"embeddingsUsed"`
	PDFContext     string   `json:"pdfContext"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
