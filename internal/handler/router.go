package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers 汇总所有路由处理器。
type Handlers struct {
	Question *QuestionHandler
	Answer   *AnswerHandler
	Document *DocumentHandler
}

// RegisterRoutes 在 r 上注册全部接口。调用方可以在多个前缀下重复注册。
func RegisterRoutes(r gin.IRouter, h Handlers, identity gin.HandlerFunc) {
	question := r.Group("/question")
	{
		question.POST("/generate", h.Question.Generate)
		question.POST("/enhanced", h.Question.Enhanced)
	}

	answer := r.Group("/answer")
	{
		answer.POST("/submit", h.Answer.Submit)
		if identity != nil {
			answer.POST("/save", identity, h.Answer.Save)
		} else {
			answer.POST("/save", h.Answer.Save)
		}
	}

	if h.Document != nil {
		r.POST("/documents/ingest", h.Document.Ingest)
	}

	r.GET("/health", Health)
}
