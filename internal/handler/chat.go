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
	"sudooom.social.realtime/internal/model"
	"sudooom.social.realtime/internal/registry"
	"sudooom.social.realtime/internal/service"
	"sudooom.social.realtime/internal/wire"
)

const (
	// 聊天帧上限：附件以 base64 内联，放宽到 32MB
	chatReadLimit = 32 * 1024 * 1024

	pongWait = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// 跨域校验交给网关层
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatHandler 聊天频道 WebSocket 处理器
type ChatHandler struct {
	jwtService  *jwt.Service
	userStore   service.ProfileReader
	chatService *service.ChatService
	registry    *registry.Registry
	logger      *slog.Logger
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(
	jwtService *jwt.Service,
	userStore service.ProfileReader,
	chatService *service.ChatService,
	reg *registry.Registry,
) *ChatHandler {
	return &ChatHandler{
		jwtService:  jwtService,
		userStore:   userStore,
		chatService: chatService,
		registry:    reg,
		logger:      slog.Default(),
	}
}

// Handle 处理聊天频道连接
// GET /ws/chat/:conversation_id
// 未认证或非参与者在升级前直接拒绝，不发送任何帧
func (h *ChatHandler) Handle(c *gin.Context) {
	claims := authenticate(c, h.jwtService)
	if claims == nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	ctx := c.Request.Context()

	ok, err := h.chatService.CheckAccess(ctx, conversationID, claims.UserID)
	if err != nil || !ok {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	sender, err := h.userStore.GetProfile(ctx, claims.UserID)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade chat connection", "userId", claims.UserID, "error", err)
		return
	}

	conn := connection.New(claims.UserID, claims.Username, ws)
	channel := wire.BuildChatChannel(conversationID)
	h.registry.Subscribe(channel, conn)

	h.logger.Info("Chat session connected",
		"connId", conn.ID(),
		"userId", claims.UserID,
		"conversationId", conversationID)

	// 进入会话视为读完对方消息
	if err := h.chatService.MarkRead(ctx, conversationID, claims.UserID); err != nil {
		h.logger.Warn("Failed to mark conversation read",
			"conversationId", conversationID, "userId", claims.UserID, "error", err)
	}

	h.readLoop(conn, ws, conversationID, sender)
}

// readLoop 串行处理上行帧，直到连接断开
func (h *ChatHandler) readLoop(conn *connection.Connection, ws *websocket.Conn, conversationID int64, sender *model.UserProfile) {
	defer func() {
		h.registry.Detach(conn)
		conn.Close(websocket.CloseNormalClosure, "")
		h.logger.Info("Chat session disconnected",
			"connId", conn.ID(),
			"userId", sender.ID,
			"conversationId", conversationID)
	}()

	ws.SetReadLimit(chatReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var frame wire.ChatInbound
		if err := json.Unmarshal(data, &frame); err != nil {
			h.sendError(conn, apperrors.ErrBadFrame)
			continue
		}

		switch frame.Type {
		case wire.FrameChatMessage:
			ctx := context.Background()
			if _, err := h.chatService.SendMessage(ctx, conversationID, sender, frame.Message, frame.Attachments); err != nil {
				h.sendError(conn, err)
			}
		case wire.FrameTyping:
			if err := h.chatService.PublishTyping(context.Background(), conversationID, sender, frame.IsTyping); err != nil {
				h.logger.Warn("Failed to publish typing", "conversationId", conversationID, "error", err)
			}
		default:
			h.sendError(conn, apperrors.ErrUnknownFrame)
		}
	}
}

// sendError 只向出错的会话发送错误帧，连接保持打开
func (h *ChatHandler) sendError(conn *connection.Connection, err error) {
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
