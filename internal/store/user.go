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

// UserStore 用户资料存储（只读，资料由账号系统维护）
type UserStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewUserStore 创建用户资料存储
func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{
		db:     db,
		logger: slog.Default(),
	}
}

// GetProfile 获取用户公开资料
func (s *UserStore) GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	query := `
		SELECT id, username, slug, COALESCE(img, ''), verified, is_admin, require_approval
		FROM users WHERE id = $1
	`

	var p model.UserProfile
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.Username,
		&p.Slug,
		&p.Img,
		&p.Verified,
		&p.IsAdmin,
		&p.RequireApproval,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDBError.Wrap(err)
	}

	return &p, nil
}
