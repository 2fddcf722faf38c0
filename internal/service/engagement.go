package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/model"
	"sudooom.social.realtime/internal/snowflake"
)

// ContentGateway 帖子/评论/点赞持久化依赖
type ContentGateway interface {
	GetPostOwner(ctx context.Context, postID int64) (int64, error)
	GetCommentOwner(ctx context.Context, commentID int64) (int64, error)
	CreateComment(ctx context.Context, c *model.Comment) error
	CreateLike(ctx context.Context, l *model.Like) error
	DeleteLike(ctx context.Context, userID int64, subject model.SubjectRef) (bool, error)
	RecountLikes(ctx context.Context, subject model.SubjectRef) (int64, error)
}

// EngagementNotifier 互动通知粘合依赖
type EngagementNotifier interface {
	CommentCreated(ctx context.Context, c *model.Comment, postOwnerID int64)
	LikeCreated(ctx context.Context, l *model.Like, ownerID int64)
}

// EngagementService 评论与点赞服务
type EngagementService struct {
	contentStore ContentGateway
	notify       EngagementNotifier
	node         *snowflake.Node
	logger       *slog.Logger
}

// NewEngagementService 创建互动服务
func NewEngagementService(contentStore ContentGateway, notify EngagementNotifier, node *snowflake.Node) *EngagementService {
	return &EngagementService{
		contentStore: contentStore,
		notify:       notify,
		node:         node,
		logger:       slog.Default(),
	}
}

// CreateComment 创建评论并通知帖子作者
func (s *EngagementService) CreateComment(ctx context.Context, userID, postID, parentID int64, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	ownerID, err := s.contentStore.GetPostOwner(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		ID:        s.node.Generate().Int64(),
		UserID:    userID,
		PostID:    postID,
		ParentID:  parentID,
		Comment:   text,
		CreatedAt: time.Now(),
	}
	if err := s.contentStore.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.notify.CommentCreated(ctx, comment, ownerID)
	return comment, nil
}

// CreateLike 创建点赞并通知内容作者，回写冗余计数
func (s *EngagementService) CreateLike(ctx context.Context, userID int64, subject model.SubjectRef) (*model.Like, error) {
	ownerID, err := s.subjectOwner(ctx, subject)
	if err != nil {
		return nil, err
	}

	like := &model.Like{
		ID:        s.node.Generate().Int64(),
		UserID:    userID,
		Subject:   subject,
		CreatedAt: time.Now(),
	}
	if err := s.contentStore.CreateLike(ctx, like); err != nil {
		return nil, err
	}

	if _, err := s.contentStore.RecountLikes(ctx, subject); err != nil {
		s.logger.Warn("Failed to recount likes", "subjectKind", subject.Kind, "subjectId", subject.ID, "error", err)
	}

	s.notify.LikeCreated(ctx, like, ownerID)
	return like, nil
}

// RemoveLike 取消点赞，回写冗余计数
func (s *EngagementService) RemoveLike(ctx context.Context, userID int64, subject model.SubjectRef) error {
	removed, err := s.contentStore.DeleteLike(ctx, userID, subject)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	if _, err := s.contentStore.RecountLikes(ctx, subject); err != nil {
		s.logger.Warn("Failed to recount likes", "subjectKind", subject.Kind, "subjectId", subject.ID, "error", err)
	}
	return nil
}

// subjectOwner 解析点赞主体的作者（逐类型显式查询）
func (s *EngagementService) subjectOwner(ctx context.Context, subject model.SubjectRef) (int64, error) {
	switch subject.Kind {
	case model.SubjectPost:
		return s.contentStore.GetPostOwner(ctx, subject.ID)
	case model.SubjectComment:
		return s.contentStore.GetCommentOwner(ctx, subject.ID)
	default:
		return 0, apperrors.ErrBadFrame
	}
}
