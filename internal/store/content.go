package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/model"
)

// ContentStore 帖子/评论/点赞存储
// 帖子由内容系统创建，本服务只读取归属；评论和点赞在这里落库
type ContentStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewContentStore 创建内容存储
func NewContentStore(db *pgxpool.Pool) *ContentStore {
	return &ContentStore{
		db:     db,
		logger: slog.Default(),
	}
}

// GetPostOwner 获取帖子作者
func (s *ContentStore) GetPostOwner(ctx context.Context, postID int64) (int64, error) {
	var ownerID int64
	err := s.db.QueryRow(ctx, `SELECT user_id FROM posts WHERE id = $1`, postID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotificationNotFound.Wrap(err)
		}
		return 0, apperrors.ErrDBError.Wrap(err)
	}
	return ownerID, nil
}

// GetCommentOwner 获取评论作者
func (s *ContentStore) GetCommentOwner(ctx context.Context, commentID int64) (int64, error) {
	var ownerID int64
	err := s.db.QueryRow(ctx, `SELECT user_id FROM comments WHERE id = $1`, commentID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotificationNotFound.Wrap(err)
		}
		return 0, apperrors.ErrDBError.Wrap(err)
	}
	return ownerID, nil
}

// CreateComment 保存评论
func (s *ContentStore) CreateComment(ctx context.Context, c *model.Comment) error {
	query := `
		INSERT INTO comments (id, user_id, post_id, parent_id, comment, created_at)
		VALUES ($1, $2, $3, NULLIF($4, 0), $5, $6)
	`

	_, err := s.db.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.PostID,
		c.ParentID,
		c.Comment,
		c.CreatedAt,
	)
	if err != nil {
		s.logger.Error("Failed to save comment", "commentId", c.ID, "error", err)
		return apperrors.ErrDBError.Wrap(err)
	}
	return nil
}

// CreateLike 保存点赞
func (s *ContentStore) CreateLike(ctx context.Context, l *model.Like) error {
	query := `
		INSERT INTO likes (id, user_id, subject_kind, subject_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.Exec(ctx, query,
		l.ID,
		l.UserID,
		string(l.Subject.Kind),
		l.Subject.ID,
		l.CreatedAt,
	)
	if err != nil {
		s.logger.Error("Failed to save like", "likeId", l.ID, "error", err)
		return apperrors.ErrDBError.Wrap(err)
	}
	return nil
}

// DeleteLike 取消点赞，返回是否存在过
func (s *ContentStore) DeleteLike(ctx context.Context, userID int64, subject model.SubjectRef) (bool, error) {
	ct, err := s.db.Exec(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND subject_kind = $2 AND subject_id = $3`,
		userID, string(subject.Kind), subject.ID,
	)
	if err != nil {
		return false, apperrors.ErrDBError.Wrap(err)
	}
	return ct.RowsAffected() > 0, nil
}

// RecountLikes 重算主体的点赞总数并回写冗余计数
func (s *ContentStore) RecountLikes(ctx context.Context, subject model.SubjectRef) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM likes WHERE subject_kind = $1 AND subject_id = $2`,
		string(subject.Kind), subject.ID,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.ErrDBError.Wrap(err)
	}

	var update string
	switch subject.Kind {
	case model.SubjectPost:
		update = `UPDATE posts SET likes_count = $2 WHERE id = $1`
	case model.SubjectComment:
		update = `UPDATE comments SET likes_count = $2 WHERE id = $1`
	default:
		return count, nil
	}

	if _, err := s.db.Exec(ctx, update, subject.ID, count); err != nil {
		return count, apperrors.ErrDBError.Wrap(err)
	}
	return count, nil
}
