package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/token"
)

// UserIDKey 是已识别用户 id 在 gin 上下文中的键。
const UserIDKey = "userId"

// Identity 是可选的身份解析中间件：请求携带有效的 Bearer token 时把其中的用户 id 存入上下文；
// token 无效时返回 401；没有 token 时使用 defaultUserID（可以为空），并继续处理。
// jwtManager 为 nil 时忽略 Authorization 头。
func Identity(jwtManager *token.JWTManager, defaultUserID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if jwtManager == nil || authHeader == "" {
			if defaultUserID != "" {
				c.Set(UserIDKey, defaultUserID)
			}
			c.Next()
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权头格式"})
			return
		}

		claims, err := jwtManager.VerifyToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			log.Warnf("[Identity] token 校验失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效或已过期的 token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}
