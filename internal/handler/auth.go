package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"sudooom.social.realtime/internal/jwt"
)

// extractToken 从请求中提取 Token
// 优先使用 Authorization 头，浏览器 WebSocket 无法设置自定义头，
// 因此同时支持 query 参数 token
func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return auth
	}
	return c.Query("token")
}

// authenticate 验证请求身份，失败返回 nil
func authenticate(c *gin.Context, jwtService *jwt.Service) *jwt.Claims {
	token := extractToken(c)
	if token == "" {
		return nil
	}

	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		return nil
	}
	return claims
}
