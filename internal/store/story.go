package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "sudooom.social.realtime/internal/errors"
)

// StoryStore 限时故事存储
type StoryStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewStoryStore 创建故事存储
func NewStoryStore(db *pgxpool.Pool) *StoryStore {
	return &StoryStore{
		db:     db,
		logger: slog.Default(),
	}
}

// DeleteExpired 删除已过期的故事，返回删除数量
func (s *StoryStore) DeleteExpired(ctx context.Context) (int64, error) {
	ct, err := s.db.Exec(ctx, `DELETE FROM stories WHERE expires_at <= $1`, time.Now())
	if err != nil {
		return 0, apperrors.ErrDBError.Wrap(err)
	}

	deleted := ct.RowsAffected()
	if deleted > 0 {
		s.logger.Info("Expired stories deleted", "count", deleted)
	}
	return deleted, nil
}
