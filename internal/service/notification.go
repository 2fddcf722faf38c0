package service

import (
	"context"
	"log/slog"

	"sudooom.social.realtime/internal/model"
)

// NotificationGateway 通知读写依赖
type NotificationGateway interface {
	MarkRead(ctx context.Context, notificationID, recipientID int64) error
	MarkAllRead(ctx context.Context, recipientID int64) error
	UnreadCount(ctx context.Context, recipientID int64) (int64, error)
	ListRecent(ctx context.Context, recipientID int64, limit int) ([]model.Notification, error)
}

// UnreadCache 未读计数缓存依赖
type UnreadCache interface {
	Get(ctx context.Context, userID int64) (int64, bool)
	Set(ctx context.Context, userID, count int64)
	Invalidate(ctx context.Context, userID int64)
}

// NotificationService 通知查询与已读状态服务
type NotificationService struct {
	notifStore NotificationGateway
	unread     UnreadCache
	logger     *slog.Logger
}

// NewNotificationService 创建通知服务
func NewNotificationService(notifStore NotificationGateway, unread UnreadCache) *NotificationService {
	return &NotificationService{
		notifStore: notifStore,
		unread:     unread,
		logger:     slog.Default(),
	}
}

// UnreadCount 获取用户未读通知数，优先读缓存，未命中回源数据库
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	if count, ok := s.unread.Get(ctx, userID); ok {
		return count, nil
	}

	count, err := s.notifStore.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.unread.Set(ctx, userID, count)
	return count, nil
}

// MarkRead 标记单条通知已读并返回最新未读数
// 重复标记是空操作
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID int64) (int64, error) {
	if err := s.notifStore.MarkRead(ctx, notificationID, userID); err != nil {
		return 0, err
	}

	s.unread.Invalidate(ctx, userID)
	return s.UnreadCount(ctx, userID)
}

// MarkAllRead 标记全部通知已读并返回最新未读数（恒为 0）
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	if err := s.notifStore.MarkAllRead(ctx, userID); err != nil {
		return 0, err
	}

	s.unread.Invalidate(ctx, userID)
	return s.UnreadCount(ctx, userID)
}

// ListRecent 获取用户最近通知
func (s *NotificationService) ListRecent(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	return s.notifStore.ListRecent(ctx, userID, limit)
}
