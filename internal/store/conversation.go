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

// ConversationStore 会话存储
type ConversationStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewConversationStore 创建会话存储
func NewConversationStore(db *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{
		db:     db,
		logger: slog.Default(),
	}
}

// Get 获取会话
func (s *ConversationStore) Get(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	query := `
		SELECT id, is_group, COALESCE(group_name, ''), COALESCE(group_image, ''), created_at, updated_at
		FROM conversations WHERE id = $1
	`

	var conv model.Conversation
	err := s.db.QueryRow(ctx, query, conversationID).Scan(
		&conv.ID,
		&conv.IsGroup,
		&conv.GroupName,
		&conv.GroupImage,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		return nil, apperrors.ErrDBError.Wrap(err)
	}

	return &conv, nil
}

// IsParticipant 检查用户是否为会话参与者
func (s *ConversationStore) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	query := `SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2 LIMIT 1`

	var exists int
	err := s.db.QueryRow(ctx, query, conversationID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.ErrDBError.Wrap(err)
	}

	return true, nil
}

// Participants 获取会话参与者列表
func (s *ConversationStore) Participants(ctx context.Context, conversationID int64) ([]int64, error) {
	query := `SELECT user_id FROM conversation_participants WHERE conversation_id = $1`

	rows, err := s.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, apperrors.ErrDBError.Wrap(err)
	}
	defer rows.Close()

	var participants []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			continue
		}
		participants = append(participants, userID)
	}

	return participants, rows.Err()
}

// OtherParticipant 获取 1:1 会话中的另一位参与者
func (s *ConversationStore) OtherParticipant(ctx context.Context, conversationID, userID int64) (int64, error) {
	query := `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1 AND user_id <> $2
		LIMIT 1
	`

	var otherID int64
	err := s.db.QueryRow(ctx, query, conversationID, userID).Scan(&otherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrConversationNotFound
		}
		return 0, apperrors.ErrDBError.Wrap(err)
	}

	return otherID, nil
}

// Touch 更新会话最后活跃时间
func (s *ConversationStore) Touch(ctx context.Context, conversationID int64) error {
	query := `UPDATE conversations SET updated_at = $2 WHERE id = $1`
	_, err := s.db.Exec(ctx, query, conversationID, time.Now())
	if err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}
	return nil
}

// FindDirect 查找两个用户之间的 1:1 会话，不存在返回 0
func (s *ConversationStore) FindDirect(ctx context.Context, userA, userB int64) (int64, error) {
	query := `
		SELECT c.id FROM conversations c
		JOIN conversation_participants pa ON pa.conversation_id = c.id AND pa.user_id = $1
		JOIN conversation_participants pb ON pb.conversation_id = c.id AND pb.user_id = $2
		WHERE c.is_group = FALSE
		LIMIT 1
	`

	var conversationID int64
	err := s.db.QueryRow(ctx, query, userA, userB).Scan(&conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, apperrors.ErrDBError.Wrap(err)
	}

	return conversationID, nil
}

// CreateDirect 创建两个用户之间的 1:1 会话
// 非群聊会话固定两个参与者
func (s *ConversationStore) CreateDirect(ctx context.Context, conversationID, userA, userB int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	if _, err := tx.Exec(ctx,
		`INSERT INTO conversations (id, is_group, created_at, updated_at) VALUES ($1, FALSE, $2, $2)`,
		conversationID, now,
	); err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2), ($1, $3)`,
		conversationID, userA, userB,
	); err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}

	s.logger.Debug("Direct conversation created",
		"conversationId", conversationID,
		"userA", userA,
		"userB", userB)
	return nil
}
