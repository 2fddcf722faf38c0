package service

import (
	"context"
	"log/slog"
	"time"

	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/model"
	"sudooom.social.realtime/internal/snowflake"
)

// FollowGateway 关注边持久化依赖
type FollowGateway interface {
	Get(ctx context.Context, followerID, followingID int64) (*model.Follow, error)
	GetByID(ctx context.Context, followID int64) (*model.Follow, error)
	Create(ctx context.Context, f *model.Follow) error
	Accept(ctx context.Context, followID int64) error
	Delete(ctx context.Context, followID int64) error
}

// DirectConversationGateway 1:1 会话创建依赖
type DirectConversationGateway interface {
	FindDirect(ctx context.Context, userA, userB int64) (int64, error)
	CreateDirect(ctx context.Context, conversationID, userA, userB int64) error
}

// FollowNotifier 关注通知粘合依赖
type FollowNotifier interface {
	FollowRequested(ctx context.Context, f *model.Follow)
	FollowerAdded(ctx context.Context, f *model.Follow)
	FollowAccepted(ctx context.Context, f *model.Follow)
}

// SubjectPruner 主体删除后的通知清理依赖
type SubjectPruner interface {
	DeleteBySubject(ctx context.Context, subject model.SubjectRef) (int64, error)
}

// FollowService 关注关系服务
type FollowService struct {
	followStore FollowGateway
	convStore   DirectConversationGateway
	userStore   ProfileReader
	notify      FollowNotifier
	pruner      SubjectPruner
	node        *snowflake.Node
	logger      *slog.Logger
}

// NewFollowService 创建关注服务
func NewFollowService(
	followStore FollowGateway,
	convStore DirectConversationGateway,
	userStore ProfileReader,
	notify FollowNotifier,
	pruner SubjectPruner,
	node *snowflake.Node,
) *FollowService {
	return &FollowService{
		followStore: followStore,
		convStore:   convStore,
		userStore:   userStore,
		notify:      notify,
		pruner:      pruner,
		node:        node,
		logger:      slog.Default(),
	}
}

// Send 发起关注
// 被关注者未开启审批、或发起者具有管理员身份时关注边直接接受
// （通知 New Follower 并确保两人之间存在 1:1 会话），
// 否则关注边保持待审批（通知 Follow Request）
func (s *FollowService) Send(ctx context.Context, followerID, followingID int64) (*model.Follow, error) {
	if followerID == followingID {
		return nil, apperrors.ErrCannotFollowSelf
	}

	if existing, err := s.followStore.Get(ctx, followerID, followingID); err == nil {
		if existing.Status == model.FollowAccepted {
			return nil, apperrors.ErrAlreadyFollowing
		}
		return nil, apperrors.ErrRequestPending
	} else if !apperrors.Is(err, apperrors.ErrFollowNotFound) {
		return nil, err
	}

	follower, err := s.userStore.GetProfile(ctx, followerID)
	if err != nil {
		return nil, err
	}
	following, err := s.userStore.GetProfile(ctx, followingID)
	if err != nil {
		return nil, err
	}

	autoAccept := !following.RequireApproval || follower.IsAdmin

	status := model.FollowPending
	if autoAccept {
		status = model.FollowAccepted
	}

	follow := &model.Follow{
		ID:          s.node.Generate().Int64(),
		FollowerID:  followerID,
		FollowingID: followingID,
		Status:      status,
		CreatedAt:   time.Now(),
	}
	if err := s.followStore.Create(ctx, follow); err != nil {
		return nil, err
	}

	if autoAccept {
		s.notify.FollowerAdded(ctx, follow)
		s.ensureDirectConversation(ctx, followerID, followingID)
	} else {
		s.notify.FollowRequested(ctx, follow)
	}

	return follow, nil
}

// Accept 接受待审批的关注请求
// 只有被关注者本人可以操作；接受后通知当初的请求者，
// 并确保两人之间存在 1:1 会话
func (s *FollowService) Accept(ctx context.Context, followID, approverID int64) error {
	follow, err := s.followStore.GetByID(ctx, followID)
	if err != nil {
		return err
	}
	if follow.FollowingID != approverID {
		return apperrors.ErrFollowNotFound
	}

	if err := s.followStore.Accept(ctx, followID); err != nil {
		return err
	}
	follow.Status = model.FollowAccepted

	s.notify.FollowAccepted(ctx, follow)
	s.ensureDirectConversation(ctx, follow.FollowerID, follow.FollowingID)
	return nil
}

// Decline 拒绝待审批的关注请求，删除关注边及其通知
func (s *FollowService) Decline(ctx context.Context, followID, approverID int64) error {
	follow, err := s.followStore.GetByID(ctx, followID)
	if err != nil {
		return err
	}
	if follow.FollowingID != approverID {
		return apperrors.ErrFollowNotFound
	}

	if err := s.followStore.Delete(ctx, followID); err != nil {
		return err
	}
	s.pruneFollowNotifications(ctx, followID)
	return nil
}

// Cancel 撤回本人发出的待审批关注请求，删除关注边及其通知
func (s *FollowService) Cancel(ctx context.Context, followerID, followingID int64) error {
	follow, err := s.followStore.Get(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if follow.Status != model.FollowPending {
		return apperrors.ErrFollowNotFound
	}

	if err := s.followStore.Delete(ctx, follow.ID); err != nil {
		return err
	}
	s.pruneFollowNotifications(ctx, follow.ID)
	return nil
}

// Unfollow 取消关注
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID int64) error {
	follow, err := s.followStore.Get(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if err := s.followStore.Delete(ctx, follow.ID); err != nil {
		return err
	}
	s.pruneFollowNotifications(ctx, follow.ID)
	return nil
}

// ensureDirectConversation 确保两个用户之间存在 1:1 会话
// 创建失败只记录日志，不影响关注操作本身
func (s *FollowService) ensureDirectConversation(ctx context.Context, userA, userB int64) {
	existing, err := s.convStore.FindDirect(ctx, userA, userB)
	if err != nil {
		s.logger.Warn("Failed to look up direct conversation",
			"userA", userA, "userB", userB, "error", err)
		return
	}
	if existing != 0 {
		return
	}

	conversationID := s.node.Generate().Int64()
	if err := s.convStore.CreateDirect(ctx, conversationID, userA, userB); err != nil {
		s.logger.Warn("Failed to create direct conversation",
			"userA", userA, "userB", userB, "error", err)
	}
}

// pruneFollowNotifications 删除引用已删除关注边的通知
func (s *FollowService) pruneFollowNotifications(ctx context.Context, followID int64) {
	subject := model.SubjectRef{Kind: model.SubjectFollow, ID: followID}
	if _, err := s.pruner.DeleteBySubject(ctx, subject); err != nil {
		s.logger.Warn("Failed to prune follow notifications", "followId", followID, "error", err)
	}
}
