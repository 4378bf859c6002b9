package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"neural-trace-go/internal/model"
	"neural-trace-go/internal/service"
	"neural-trace-go/pkg/log"
)

// DocumentHandler 处理教材导入请求。
type DocumentHandler struct {
	ingestService service.IngestService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(ingestService service.IngestService) *DocumentHandler {
	return &DocumentHandler{ingestService: ingestService}
}

// Ingest 受理导入请求并异步处理，立即返回任务 id。
func (h *DocumentHandler) Ingest(c *gin.Context) {
	var req model.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	taskID, err := h.ingestService.Enqueue(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrIngestDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("[DocumentHandler] 导入任务入队失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue ingest task"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"taskId": taskID, "textbookId": req.TextbookID})
}
