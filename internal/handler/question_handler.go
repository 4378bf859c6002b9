// Package handler 存放 HTTP 请求处理器。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"neural-trace-go/internal/model"
	"neural-trace-go/internal/service"
	"neural-trace-go/pkg/log"
)

// QuestionHandler 处理问题生成相关的请求。
type QuestionHandler struct {
	questionService service.QuestionService
}

// NewQuestionHandler 创建一个新的 QuestionHandler 实例。
func NewQuestionHandler(questionService service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// Generate 通过阶段图生成问题，在等待作答的暂停点返回。
func (h *QuestionHandler) Generate(c *gin.Context) {
	var req model.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[QuestionHandler] 请求体解析失败: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}

	res, err := h.questionService.Generate(c.Request.Context(), req)
	if err != nil {
		log.Errorf("[QuestionHandler] 生成问题失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.GenerateQuestionResponse{
		Question:   res.Question,
		Concepts:   res.Concepts,
		Anchor:     res.Anchor,
		PDFContext: res.ContextDigest,
	})
}

// Enhanced 以内联顺序调用各阶段生成问题，并报告是否使用了检索到的上下文。
func (h *QuestionHandler) Enhanced(c *gin.Context) {
	var req model.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[QuestionHandler] 请求体解析失败: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}

	res, err := h.questionService.Enhanced(c.Request.Context(), req)
	if err != nil {
		log.Errorf("[QuestionHandler] 生成增强问题失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.EnhancedQuestionResponse{
		Question:       res.Question,
		Concepts:       res.Concepts,
		Anchor:         res.Anchor,
		EmbeddingsUsed: res.ContextUsed,
		PDFContext:     res.ContextDigest,
	})
}
