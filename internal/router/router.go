package router

import (
	"github.com/gin-gonic/gin"

	"sudooom.social.realtime/internal/handler"
	"sudooom.social.realtime/internal/health"
	"sudooom.social.realtime/internal/jwt"
	"sudooom.social.realtime/internal/middleware"
)

// Setup 设置路由
func Setup(
	jwtService *jwt.Service,
	chatHandler *handler.ChatHandler,
	notifHandler *handler.NotificationHandler,
	followHandler *handler.FollowHandler,
	engagementHandler *handler.EngagementHandler,
	healthChecker *health.Checker,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// WebSocket 入口，认证在处理器内完成（支持 query token）
	ws := r.Group("/ws")
	{
		ws.GET("/chat/:conversation_id", chatHandler.Handle)
		ws.GET("/notifications", notifHandler.Handle)
	}

	// 事件源 REST 入口
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtService))
	{
		follows := v1.Group("/follows")
		{
			follows.POST("/:id", followHandler.Send)
			follows.POST("/:id/accept", followHandler.Accept)
			follows.POST("/:id/decline", followHandler.Decline)
			follows.DELETE("/requests/:id", followHandler.Cancel)
			follows.DELETE("/:id", followHandler.Unfollow)
		}

		v1.POST("/posts/:post_id/comments", engagementHandler.CreateComment)
		v1.POST("/likes", engagementHandler.CreateLike)
		v1.DELETE("/likes", engagementHandler.RemoveLike)

		v1.GET("/notifications", notifHandler.List)
	}

	// 健康检查
	r.GET("/health", gin.WrapH(healthChecker))
	r.GET("/ready", func(c *gin.Context) {
		if healthChecker.IsHealthy(c.Request.Context()) {
			c.String(200, "OK")
		} else {
			c.String(503, "Not Ready")
		}
	})

	return r
}
