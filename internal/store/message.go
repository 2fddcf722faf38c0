package store

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/model"
)

// MessageStore 消息存储
type MessageStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewMessageStore 创建消息存储
func NewMessageStore(db *pgxpool.Pool) *MessageStore {
	return &MessageStore{
		db:     db,
		logger: slog.Default(),
	}
}

// Create 保存消息
func (s *MessageStore) Create(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`

	_, err := s.db.Exec(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Content,
		msg.Timestamp,
	)
	if err != nil {
		s.logger.Error("Failed to save message", "messageId", msg.ID, "error", err)
		return apperrors.ErrDBError.Wrap(err)
	}

	s.logger.Debug("Message saved",
		"messageId", msg.ID,
		"conversationId", msg.ConversationID,
		"senderId", msg.SenderID)
	return nil
}

// AddAttachment 保存消息附件
func (s *MessageStore) AddAttachment(ctx context.Context, att *model.Attachment) error {
	query := `
		INSERT INTO message_attachments (id, message_id, file_name, stored_name, file_type, size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query,
		att.ID,
		att.MessageID,
		att.FileName,
		att.StoredName,
		att.FileType,
		att.Size,
		att.UploadedAt,
	)
	if err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}
	return nil
}

// Delete 删除消息（附件级联删除）
// 用于附件校验失败时回滚，不留下孤儿记录
func (s *MessageStore) Delete(ctx context.Context, messageID int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	if err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}
	return nil
}

// MarkConversationRead 将会话内非本人发送的消息全部标记已读
// 对已读消息重复执行是空操作
func (s *MessageStore) MarkConversationRead(ctx context.Context, conversationID, readerID int64) error {
	query := `
		UPDATE messages SET read = TRUE
		WHERE conversation_id = $1 AND sender_id <> $2 AND read = FALSE
	`

	ct, err := s.db.Exec(ctx, query, conversationID, readerID)
	if err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}

	if ct.RowsAffected() > 0 {
		s.logger.Debug("Messages marked read",
			"conversationId", conversationID,
			"readerId", readerID,
			"count", ct.RowsAffected())
	}
	return nil
}

// Exists 检查消息是否存在
func (s *MessageStore) Exists(ctx context.Context, messageID int64) (bool, error) {
	var exists int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM messages WHERE id = $1 LIMIT 1`, messageID).Scan(&exists)
	if err != nil {
		return false, nil
	}
	return true, nil
}
