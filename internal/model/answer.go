package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

const (
	DefaultConfidence = 3
	MinConfidence     = 1
	MaxConfidence     = 5

	DefaultDifficulty = "medium"
)

// Confidence 是 1..5 的自评分数，解析规则与 PageNumber 相同，缺省为 3。
type Confidence int

// UnmarshalJSON 实现 json.Unmarshaler，从不返回错误。
func (c *Confidence) UnmarshalJSON(data []byte) error {
	*c = Confidence(coerceInt(data, DefaultConfidence, math.MinInt32, math.MaxInt32))
	return nil
}

// Int 返回限制在 [1, 5] 内的分数。
func (c Confidence) Int() int {
	switch {
	case c < MinConfidence:
		return MinConfidence
	case c > MaxConfidence:
		return MaxConfidence
	}
	return int(c)
}

// SubmitAnswerRequest 是 /answer/submit 的请求体。
type SubmitAnswerRequest struct {
	DocumentID   string     `json:"documentId"`
	PDFID        string     `json:"pdfId"`
	PageNumber   PageNumber `json:"pageNumber"`
	SelectedText string     `json:"selectedText"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	Difficulty   string     `json:"difficulty"`
}

// EnrichmentEntry 是对一个概念的搜索补充。definitions 等字段目前总是空数组。
type EnrichmentEntry struct {
	Concept         string   `json:"concept"`
	Summary         string   `json:"summary"`
	Definitions     []string `json:"definitions"`
	Examples        []string `json:"examples"`
	RelatedConcepts []string `json:"relatedConcepts"`
}

// SubmitAnswerResponse 是 /answer/submit 的响应体。
type SubmitAnswerResponse struct {
	Evaluation string            `json:"evaluation"`
	Concepts   []string          `json:"concepts"`
	Enrichment []EnrichmentEntry `json:"enrichment"`
}

// SaveAnswerRequest 是 /answer/save 的请求体。
type SaveAnswerRequest struct {
	UserID          string      `json:"userId"`
	DocumentID      string      `json:"documentId"`
	PDFID           string      `json:"pdfId"`
	PageNumber      PageNumber  `json:"pageNumber"`
	Question        string      `json:"question"`
	Answer          string      `json:"answer"`
	ConfidenceScore *Confidence `json:"confidenceScore"`
	SelectedText    string      `json:"selectedText"`
}

// Document 返回文档 id，documentId 为空时回退到 pdfId。
func (r SaveAnswerRequest) Document() string {
	return firstNonEmpty(r.DocumentID, r.PDFID)
}

// Confidence 返回规范化后的分数，字段缺省时为 3。
func (r SaveAnswerRequest) Confidence() int {
	if r.ConfidenceScore == nil {
		return DefaultConfidence
	}
	return r.ConfidenceScore.Int()
}

// SaveAnswerResponse 是 /answer/save 的响应体。
type SaveAnswerResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// AnswerRecord 是一条持久化的作答记录。同一 (用户, 文档, 页码) 只对应一条记录。
type AnswerRecord struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)" json:"_id"`
	UserID          string    `gorm:"type:varchar(128);not null;index" json:"userId"`
	DocumentID      string    `gorm:"type:varchar(128);not null" json:"documentId"`
	PageNumber      int       `gorm:"not null" json:"pageNumber"`
	Title           string    `gorm:"type:varchar(255)" json:"title"`
	Question        string    `gorm:"type:text" json:"question"`
	UserResponse    string    `gorm:"type:text" json:"userResponse"`
	ConfidenceScore int       `gorm:"type:tinyint;not null;default:3" json:"confidenceScore"`
	Feedback        string    `gorm:"type:varchar(255)" json:"feedback"`
	SelectedText    string    `gorm:"type:text" json:"selectedText"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (AnswerRecord) TableName() string {
	return "socratic_answers"
}

// AnswerID 由 (用户, 文档, 页码) 计算确定性的记录 id。
func AnswerID(userID, documentID string, pageNumber int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%s-%d", userID, documentID, pageNumber)))
	return "socratic-" + hex.EncodeToString(sum[:])
}

const titleSelectionChars = 50

// NewAnswerRecord 根据一次作答构建完整记录，包括确定性 id、标题与反馈文本。
func NewAnswerRecord(userID, documentID string, pageNumber int, question, answer string, confidence int, selectedText string) *AnswerRecord {
	title := fmt.Sprintf("Page %d", pageNumber)
	if selectedText != "" {
		sel := []rune(selectedText)
		if len(sel) > titleSelectionChars {
			sel = sel[:titleSelectionChars]
		}
		title += ": " + string(sel)
	}
	return &AnswerRecord{
		ID:              AnswerID(userID, documentID, pageNumber),
		UserID:          userID,
		DocumentID:      documentID,
		PageNumber:      pageNumber,
		Title:           title,
		Question:        question,
		UserResponse:    answer,
		ConfidenceScore: Confidence(confidence).Int(),
		Feedback:        fmt.Sprintf("Answered on page %d", pageNumber),
		SelectedText:    selectedText,
	}
}
