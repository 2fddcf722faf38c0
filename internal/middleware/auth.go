package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/jwt"
	"sudooom.social.realtime/pkg/response"
)

// JWTAuth JWT 认证中间件
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				response.ErrorWithMsg(c, apperrors.CodeTokenExpired, apperrors.ErrTokenExpired.Message)
			} else {
				response.ErrorWithMsg(c, apperrors.CodeTokenInvalid, apperrors.ErrTokenInvalid.Message)
			}
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// extractToken 从 Authorization header 提取 token
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

// GetUserID 从 context 获取 user_id
func GetUserID(c *gin.Context) int64 {
	userID, exists := c.Get("user_id")
	if !exists {
		return 0
	}
	return userID.(int64)
}

// GetUsername 从 context 获取 username
func GetUsername(c *gin.Context) string {
	username, exists := c.Get("username")
	if !exists {
		return ""
	}
	return username.(string)
}
