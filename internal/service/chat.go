package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"sudooom.social.realtime/internal/attachment"
	"sudooom.social.realtime/internal/bus"
	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/model"
	"sudooom.social.realtime/internal/snowflake"
	"sudooom.social.realtime/internal/wire"
)

// ConversationGateway 会话持久化依赖
type ConversationGateway interface {
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	Participants(ctx context.Context, conversationID int64) ([]int64, error)
	Touch(ctx context.Context, conversationID int64) error
}

// MessageGateway 消息持久化依赖
type MessageGateway interface {
	Create(ctx context.Context, msg *model.Message) error
	AddAttachment(ctx context.Context, att *model.Attachment) error
	Delete(ctx context.Context, messageID int64) error
	MarkConversationRead(ctx context.Context, conversationID, readerID int64) error
}

// MessageNotifier 消息通知粘合依赖
type MessageNotifier interface {
	MessageCreated(ctx context.Context, msg *model.Message, recipientIDs []int64)
}

// ChatService 聊天消息服务
type ChatService struct {
	convStore  ConversationGateway
	msgStore   MessageGateway
	storage    *attachment.Storage
	dispatcher bus.Dispatcher
	notify     MessageNotifier
	node       *snowflake.Node
	logger     *slog.Logger
}

// NewChatService 创建聊天服务
func NewChatService(
	convStore ConversationGateway,
	msgStore MessageGateway,
	storage *attachment.Storage,
	dispatcher bus.Dispatcher,
	notify MessageNotifier,
	node *snowflake.Node,
) *ChatService {
	return &ChatService{
		convStore:  convStore,
		msgStore:   msgStore,
		storage:    storage,
		dispatcher: dispatcher,
		notify:     notify,
		node:       node,
		logger:     slog.Default(),
	}
}

// CheckAccess 检查用户是否可以进入会话
func (s *ChatService) CheckAccess(ctx context.Context, conversationID, userID int64) (bool, error) {
	return s.convStore.IsParticipant(ctx, conversationID, userID)
}

// SendMessage 处理一条上行聊天消息
// 流程：参与者校验 → 内容/附件校验 → 消息落库 → 附件落库（任一失败
// 则整条消息回滚删除）→ 更新会话活跃时间 → 向聊天频道广播 →
// 触发消息通知。广播只在落库成功之后发生
func (s *ChatService) SendMessage(
	ctx context.Context,
	conversationID int64,
	sender *model.UserProfile,
	text string,
	inbound []wire.InboundAttachment,
) (*wire.ChatMessageFrame, error) {
	ok, err := s.convStore.IsParticipant(ctx, conversationID, sender.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}

	text = strings.TrimSpace(text)
	if text == "" && len(inbound) == 0 {
		return nil, apperrors.ErrEmptyMessage
	}

	// 先解码并校验全部附件，再开始落库
	contents := make([][]byte, len(inbound))
	for i, in := range inbound {
		data, err := base64.StdEncoding.DecodeString(in.Data)
		if err != nil {
			return nil, apperrors.ErrBadFrame.Wrap(err)
		}
		if err := attachment.Validate(in.Name, int64(len(data))); err != nil {
			return nil, err
		}
		contents[i] = data
	}

	now := time.Now()
	msg := &model.Message{
		ID:             s.node.Generate().Int64(),
		ConversationID: conversationID,
		SenderID:       sender.ID,
		Content:        text,
		Timestamp:      now,
	}

	if err := s.msgStore.Create(ctx, msg); err != nil {
		return nil, err
	}

	props := make([]wire.AttachmentProps, 0, len(inbound))
	savedNames := make([]string, 0, len(inbound))
	for i, in := range inbound {
		storedName, err := s.storage.Save(in.Name, contents[i])
		if err != nil {
			s.rollback(ctx, msg.ID, savedNames)
			return nil, err
		}
		savedNames = append(savedNames, storedName)

		att := &model.Attachment{
			ID:         s.node.Generate().Int64(),
			MessageID:  msg.ID,
			FileName:   in.Name,
			StoredName: storedName,
			FileType:   attachment.FileType(in.Name),
			Size:       int64(len(contents[i])),
			UploadedAt: now,
		}
		if err := s.msgStore.AddAttachment(ctx, att); err != nil {
			s.rollback(ctx, msg.ID, savedNames)
			return nil, err
		}

		msg.Attachments = append(msg.Attachments, *att)
		props = append(props, wire.AttachmentProps{
			URL:  s.storage.URL(storedName),
			Type: att.FileType,
			Name: att.FileName,
		})
	}

	// 会话可能被并发删除，更新活跃时间失败只记录日志
	if err := s.convStore.Touch(ctx, conversationID); err != nil {
		s.logger.Warn("Failed to touch conversation",
			"conversationId", conversationID, "error", err)
	}

	frame := &wire.ChatMessageFrame{
		Type:        wire.FrameChatMessage,
		Message:     msg.Content,
		Username:    sender.Username,
		UserID:      sender.ID,
		UserAvatar:  sender.Img,
		Timestamp:   formatClock(now),
		MessageID:   msg.ID,
		Attachments: props,
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, apperrors.ErrServerError.Wrap(err)
	}

	channel := wire.BuildChatChannel(conversationID)
	if err := s.dispatcher.Publish(ctx, channel, 0, data); err != nil {
		s.logger.Error("Failed to publish chat message",
			"channel", channel, "messageId", msg.ID, "error", err)
	}

	participants, err := s.convStore.Participants(ctx, conversationID)
	if err != nil {
		s.logger.Warn("Failed to load participants for notification",
			"conversationId", conversationID, "error", err)
		return frame, nil
	}
	s.notify.MessageCreated(ctx, msg, participants)

	return frame, nil
}

// PublishTyping 向聊天频道广播输入状态
// 按身份排除发起者本人：同一用户的其他连接也不会收到自己的输入状态
func (s *ChatService) PublishTyping(ctx context.Context, conversationID int64, sender *model.UserProfile, isTyping bool) error {
	frame := wire.TypingFrame{
		Type:     wire.FrameTyping,
		Username: sender.Username,
		UserID:   sender.ID,
		IsTyping: isTyping,
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return apperrors.ErrServerError.Wrap(err)
	}

	channel := wire.BuildChatChannel(conversationID)
	return s.dispatcher.Publish(ctx, channel, sender.ID, data)
}

// MarkRead 将会话内非本人发送的消息标记为已读（进入会话时调用）
func (s *ChatService) MarkRead(ctx context.Context, conversationID, readerID int64) error {
	return s.msgStore.MarkConversationRead(ctx, conversationID, readerID)
}

// rollback 删除消息记录和已落盘的附件，不留部分写入
func (s *ChatService) rollback(ctx context.Context, messageID int64, savedNames []string) {
	if err := s.msgStore.Delete(ctx, messageID); err != nil {
		s.logger.Error("Failed to rollback message", "messageId", messageID, "error", err)
	}
	for _, name := range savedNames {
		s.storage.Remove(name)
	}
}

// formatClock 渲染消息展示时间，如 "3:04 pm"
func formatClock(t time.Time) string {
	return strings.ToLower(t.Format("3:04 PM"))
}
