package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"sudooom.social.realtime/internal/bus"
	"sudooom.social.realtime/internal/model"
	"sudooom.social.realtime/internal/snowflake"
	"sudooom.social.realtime/internal/wire"
)

// NotificationWriter 通知持久化依赖
type NotificationWriter interface {
	Create(ctx context.Context, n *model.Notification) error
}

// ProfileReader 用户资料查询依赖
type ProfileReader interface {
	GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
}

// UnreadBumper 未读计数缓存依赖
type UnreadBumper interface {
	Incr(ctx context.Context, userID int64)
}

// NotifyService 事件到广播的粘合层
// 领域写路径（消息落库、关注边变更、评论、点赞）显式调用本服务：
// 先落库通知记录，再向接收者的通知频道推送实时帧。
// 推送只在落库成功之后发生；推送失败只记录日志，不回滚落库
type NotifyService struct {
	notifStore NotificationWriter
	userStore  ProfileReader
	unread     UnreadBumper
	dispatcher bus.Dispatcher
	node       *snowflake.Node
	logger     *slog.Logger
}

// NewNotifyService 创建通知粘合服务
func NewNotifyService(
	notifStore NotificationWriter,
	userStore ProfileReader,
	unread UnreadBumper,
	dispatcher bus.Dispatcher,
	node *snowflake.Node,
) *NotifyService {
	return &NotifyService{
		notifStore: notifStore,
		userStore:  userStore,
		unread:     unread,
		dispatcher: dispatcher,
		node:       node,
		logger:     slog.Default(),
	}
}

// MessageCreated 消息落库后触发，通知会话内除发送者外的参与者
func (s *NotifyService) MessageCreated(ctx context.Context, msg *model.Message, recipientIDs []int64) {
	subject := model.SubjectRef{Kind: model.SubjectMessage, ID: msg.ID}
	extra := map[string]any{"conversation_id": msg.ConversationID}

	for _, recipientID := range recipientIDs {
		if recipientID == msg.SenderID {
			continue
		}
		s.emit(ctx, model.KindMessage, msg.SenderID, recipientID, subject, extra)
	}
}

// CommentCreated 评论落库后触发，通知帖子作者；自己评论自己的帖子不通知
func (s *NotifyService) CommentCreated(ctx context.Context, c *model.Comment, postOwnerID int64) {
	if c.UserID == postOwnerID {
		return
	}
	subject := model.SubjectRef{Kind: model.SubjectComment, ID: c.ID}
	s.emit(ctx, model.KindComment, c.UserID, postOwnerID, subject, map[string]any{"post_id": c.PostID})
}

// LikeCreated 点赞落库后触发，通知内容作者；给自己点赞不通知
func (s *NotifyService) LikeCreated(ctx context.Context, l *model.Like, ownerID int64) {
	if l.UserID == ownerID {
		return
	}
	s.emit(ctx, model.KindLike, l.UserID, ownerID, l.Subject, nil)
}

// FollowRequested 待审批关注边创建后触发，通知被关注者
func (s *NotifyService) FollowRequested(ctx context.Context, f *model.Follow) {
	subject := model.SubjectRef{Kind: model.SubjectFollow, ID: f.ID}
	s.emit(ctx, model.KindFollowRequest, f.FollowerID, f.FollowingID, subject, nil)
}

// FollowerAdded 关注边自动接受后触发，通知被关注者
func (s *NotifyService) FollowerAdded(ctx context.Context, f *model.Follow) {
	subject := model.SubjectRef{Kind: model.SubjectFollow, ID: f.ID}
	s.emit(ctx, model.KindNewFollower, f.FollowerID, f.FollowingID, subject, nil)
}

// FollowAccepted 关注请求被接受后触发，通知当初的请求者
// 注意方向反转：发起者是被关注者
func (s *NotifyService) FollowAccepted(ctx context.Context, f *model.Follow) {
	subject := model.SubjectRef{Kind: model.SubjectFollow, ID: f.ID}
	s.emit(ctx, model.KindFollowAccepted, f.FollowingID, f.FollowerID, subject, nil)
}

// emit 落库通知并向接收者的通知频道推送
func (s *NotifyService) emit(
	ctx context.Context,
	kind model.NotificationKind,
	actorID, recipientID int64,
	subject model.SubjectRef,
	extra map[string]any,
) {
	// 自己触发给自己的事件不产生通知
	if actorID == recipientID {
		return
	}

	notification := &model.Notification{
		ID:          s.node.Generate().Int64(),
		ActorID:     actorID,
		RecipientID: recipientID,
		Kind:        kind,
		Subject:     subject,
		CreatedAt:   time.Now(),
	}

	if err := s.notifStore.Create(ctx, notification); err != nil {
		s.logger.Error("Failed to persist notification",
			"kind", kind,
			"actorId", actorID,
			"recipientId", recipientID,
			"error", err)
		return
	}

	s.unread.Incr(ctx, recipientID)

	actor, err := s.userStore.GetProfile(ctx, actorID)
	if err != nil {
		s.logger.Warn("Failed to load actor profile, skipping push",
			"actorId", actorID, "error", err)
		return
	}

	frame := s.renderFrame(notification, actor, extra)
	data, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("Failed to marshal notification frame", "notificationId", notification.ID, "error", err)
		return
	}

	channel := wire.BuildNotifChannel(recipientID)
	if err := s.dispatcher.Publish(ctx, channel, 0, data); err != nil {
		s.logger.Error("Failed to publish notification",
			"notificationId", notification.ID,
			"channel", channel,
			"error", err)
	}
}

// renderFrame 渲染通知下行帧
func (s *NotifyService) renderFrame(n *model.Notification, actor *model.UserProfile, extra map[string]any) wire.NotificationFrame {
	frame := wire.NotificationFrame{
		Type:             wire.FrameNotification,
		ID:               n.ID,
		Message:          renderMessage(n.Kind, n.Subject, actor.Username),
		NotificationType: string(n.Kind),
		Actor: wire.ActorProps{
			Username: actor.Username,
			Slug:     actor.Slug,
			Img:      actor.Img,
			Verified: actor.Verified,
		},
		Timestamp: RelativeTime(n.CreatedAt, time.Now()),
		Read:      n.Read,
	}

	payload := map[string]any{
		"subject_kind": string(n.Subject.Kind),
		"subject_id":   n.Subject.ID,
	}
	for k, v := range extra {
		payload[k] = v
	}
	if data, err := json.Marshal(payload); err == nil {
		frame.Data = data
	}

	return frame
}

// renderMessage 渲染通知的展示文案
func renderMessage(kind model.NotificationKind, subject model.SubjectRef, actorName string) string {
	switch kind {
	case model.KindFollowAccepted:
		return fmt.Sprintf("%s accepted your follow request", actorName)
	case model.KindFollowRequest:
		return fmt.Sprintf("%s requested to follow you", actorName)
	case model.KindNewFollower:
		return fmt.Sprintf("%s started following you", actorName)
	case model.KindComment:
		return fmt.Sprintf("%s commented on your post", actorName)
	case model.KindLike:
		if subject.Kind == model.SubjectComment {
			return fmt.Sprintf("%s liked your comment", actorName)
		}
		return fmt.Sprintf("%s liked your post", actorName)
	case model.KindMessage:
		return fmt.Sprintf("%s sent you a message", actorName)
	default:
		return fmt.Sprintf("%s sent you a notification", actorName)
	}
}
