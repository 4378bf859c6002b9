package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"neural-trace-go/internal/middleware"
	"neural-trace-go/internal/model"
	"neural-trace-go/internal/service"
	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/sanity"
)

// AnswerHandler 处理作答提交与保存。
type AnswerHandler struct {
	answerService service.AnswerService
}

// NewAnswerHandler 创建一个新的 AnswerHandler 实例。
func NewAnswerHandler(answerService service.AnswerService) *AnswerHandler {
	return &AnswerHandler{answerService: answerService}
}

// Submit 返回评价、概念与概念补充。
func (h *AnswerHandler) Submit(c *gin.Context) {
	var req model.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[AnswerHandler] 请求体解析失败: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.answerService.Submit(c.Request.Context(), req))
}

// Save 保存作答。请求体没有 userId 时使用身份中间件解析出的用户。
func (h *AnswerHandler) Save(c *gin.Context) {
	var req model.SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[AnswerHandler] 请求体解析失败: %v", err)
		c.JSON(http.StatusBadRequest, model.SaveAnswerResponse{Success: false, Error: "invalid JSON body: " + err.Error()})
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetString(middleware.UserIDKey)
	}

	id, err := h.answerService.Save(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrMissingUserID) {
			c.JSON(http.StatusBadRequest, model.SaveAnswerResponse{Success: false, Error: err.Error()})
			return
		}
		resp := model.SaveAnswerResponse{Success: false, Error: err.Error()}
		var remote *sanity.RemoteError
		if errors.As(err, &remote) {
			resp.StatusCode = remote.StatusCode
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, model.SaveAnswerResponse{
		Success:    true,
		DocumentID: id,
		Message:    "Answer saved successfully",
	})
}
