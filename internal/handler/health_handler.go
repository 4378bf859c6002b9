package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health 返回固定的存活响应。
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
