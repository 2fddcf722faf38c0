package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sudooom.social.realtime/internal/connection"
	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/jwt"
	"sudooom.social.realtime/internal/middleware"
	"sudooom.social.realtime/internal/registry"
	"sudooom.social.realtime/internal/service"
	"sudooom.social.realtime/internal/wire"
	"sudooom.social.realtime/pkg/response"
)

// 通知频道上行帧都很小
const notifReadLimit = 4096

// NotificationHandler 通知频道 WebSocket 处理器
type NotificationHandler struct {
	jwtService   *jwt.Service
	notifService *service.NotificationService
	registry     *registry.Registry
	logger       *slog.Logger
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(
	jwtService *jwt.Service,
	notifService *service.NotificationService,
	reg *registry.Registry,
) *NotificationHandler {
	return &NotificationHandler{
		jwtService:   jwtService,
		notifService: notifService,
		registry:     reg,
		logger:       slog.Default(),
	}
}

// Handle 处理通知频道连接
// GET /ws/notifications
// 频道名由认证身份推导，连接成功后立即推送当前未读数
func (h *NotificationHandler) Handle(c *gin.Context) {
	claims := authenticate(c, h.jwtService)
	if claims == nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade notification connection", "userId", claims.UserID, "error", err)
		return
	}

	conn := connection.New(claims.UserID, claims.Username, ws)
	channel := wire.BuildNotifChannel(claims.UserID)
	h.registry.Subscribe(channel, conn)

	h.logger.Info("Notification session connected",
		"connId", conn.ID(),
		"userId", claims.UserID)

	h.pushUnreadCount(context.Background(), conn)

	h.readLoop(conn, ws, claims.UserID)
}

// readLoop 串行处理上行帧，直到连接断开
// 已读状态的回执只发给发起请求的会话本身
func (h *NotificationHandler) readLoop(conn *connection.Connection, ws *websocket.Conn, userID int64) {
	defer func() {
		h.registry.Detach(conn)
		conn.Close(websocket.CloseNormalClosure, "")
		h.logger.Info("Notification session disconnected",
			"connId", conn.ID(),
			"userId", userID)
	}()

	ws.SetReadLimit(notifReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var frame wire.NotifInbound
		if err := json.Unmarshal(data, &frame); err != nil {
			h.sendError(conn, apperrors.ErrBadFrame)
			continue
		}

		ctx := context.Background()
		switch frame.Type {
		case wire.FrameMarkRead:
			count, err := h.notifService.MarkRead(ctx, frame.NotificationID, userID)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.sendUnreadCount(conn, count)
		case wire.FrameMarkAllRead:
			count, err := h.notifService.MarkAllRead(ctx, userID)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.sendUnreadCount(conn, count)
		case wire.FrameGetUnreadCount:
			h.pushUnreadCount(ctx, conn)
		default:
			h.sendError(conn, apperrors.ErrUnknownFrame)
		}
	}
}

// List 获取最近通知列表
// GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	notifications, err := h.notifService.ListRecent(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	result := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		result = append(result, gin.H{
			"id":           n.ID,
			"actor_id":     n.ActorID,
			"kind":         n.Kind,
			"subject_kind": n.Subject.Kind,
			"subject_id":   n.Subject.ID,
			"read":         n.Read,
			"created_at":   n.CreatedAt,
		})
	}

	response.Success(c, gin.H{"list": result})
}

// pushUnreadCount 查询并推送当前未读数
func (h *NotificationHandler) pushUnreadCount(ctx context.Context, conn *connection.Connection) {
	count, err := h.notifService.UnreadCount(ctx, conn.UserID())
	if err != nil {
		h.logger.Warn("Failed to load unread count", "userId", conn.UserID(), "error", err)
		return
	}
	h.sendUnreadCount(conn, count)
}

func (h *NotificationHandler) sendUnreadCount(conn *connection.Connection, count int64) {
	frame := wire.UnreadCountFrame{Type: wire.FrameUnreadCount, Count: count}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	_ = conn.Send(data)
}

func (h *NotificationHandler) sendError(conn *connection.Connection, err error) {
	frame := wire.ErrorFrame{
		Type:    wire.FrameError,
		Code:    apperrors.GetCode(err),
		Message: apperrors.GetMessage(err),
	}
	data, merr := json.Marshal(frame)
	if merr != nil {
		return
	}
	_ = conn.Send(data)
}
