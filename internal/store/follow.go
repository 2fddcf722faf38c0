package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/model"
)

// FollowStore 关注关系存储
type FollowStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewFollowStore 创建关注关系存储
func NewFollowStore(db *pgxpool.Pool) *FollowStore {
	return &FollowStore{
		db:     db,
		logger: slog.Default(),
	}
}

// Get 获取指定方向的关注边
func (s *FollowStore) Get(ctx context.Context, followerID, followingID int64) (*model.Follow, error) {
	query := `
		SELECT id, follower_id, following_id, status, created_at, updated_at
		FROM follows WHERE follower_id = $1 AND following_id = $2
	`

	var f model.Follow
	var status string
	err := s.db.QueryRow(ctx, query, followerID, followingID).Scan(
		&f.ID,
		&f.FollowerID,
		&f.FollowingID,
		&status,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrFollowNotFound
		}
		return nil, apperrors.ErrDBError.Wrap(err)
	}

	f.Status = model.FollowStatus(status)
	return &f, nil
}

// GetByID 按标识获取关注边
func (s *FollowStore) GetByID(ctx context.Context, followID int64) (*model.Follow, error) {
	query := `
		SELECT id, follower_id, following_id, status, created_at, updated_at
		FROM follows WHERE id = $1
	`

	var f model.Follow
	var status string
	err := s.db.QueryRow(ctx, query, followID).Scan(
		&f.ID,
		&f.FollowerID,
		&f.FollowingID,
		&status,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrFollowNotFound
		}
		return nil, apperrors.ErrDBError.Wrap(err)
	}

	f.Status = model.FollowStatus(status)
	return &f, nil
}

// Create 创建关注边
func (s *FollowStore) Create(ctx context.Context, f *model.Follow) error {
	query := `
		INSERT INTO follows (id, follower_id, following_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`

	_, err := s.db.Exec(ctx, query,
		f.ID,
		f.FollowerID,
		f.FollowingID,
		string(f.Status),
		f.CreatedAt,
	)
	if err != nil {
		s.logger.Error("Failed to save follow", "followId", f.ID, "error", err)
		return apperrors.ErrDBError.Wrap(err)
	}

	s.logger.Debug("Follow saved",
		"followId", f.ID,
		"followerId", f.FollowerID,
		"followingId", f.FollowingID,
		"status", f.Status)
	return nil
}

// Accept 将待审批的关注边置为已接受
func (s *FollowStore) Accept(ctx context.Context, followID int64) error {
	query := `UPDATE follows SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`

	ct, err := s.db.Exec(ctx, query,
		followID,
		string(model.FollowAccepted),
		time.Now(),
		string(model.FollowPending),
	)
	if err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrFollowNotFound
	}
	return nil
}

// Delete 删除关注边（取消关注或拒绝请求）
func (s *FollowStore) Delete(ctx context.Context, followID int64) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM follows WHERE id = $1`, followID)
	if err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrFollowNotFound
	}
	return nil
}
