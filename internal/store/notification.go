package store

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/model"
)

// NotificationStore 通知存储
type NotificationStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewNotificationStore 创建通知存储
func NewNotificationStore(db *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{
		db:     db,
		logger: slog.Default(),
	}
}

// Create 保存通知记录
func (s *NotificationStore) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (id, actor_id, recipient_id, kind, subject_kind, subject_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`

	_, err := s.db.Exec(ctx, query,
		n.ID,
		n.ActorID,
		n.RecipientID,
		string(n.Kind),
		string(n.Subject.Kind),
		n.Subject.ID,
		n.CreatedAt,
	)
	if err != nil {
		s.logger.Error("Failed to save notification", "notificationId", n.ID, "error", err)
		return apperrors.ErrDBError.Wrap(err)
	}

	s.logger.Debug("Notification saved",
		"notificationId", n.ID,
		"kind", n.Kind,
		"recipientId", n.RecipientID)
	return nil
}

// MarkRead 标记单条通知已读
// 只允许接收者本人操作；对已读通知重复执行是空操作
func (s *NotificationStore) MarkRead(ctx context.Context, notificationID, recipientID int64) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`
	_, err := s.db.Exec(ctx, query, notificationID, recipientID)
	if err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}
	return nil
}

// MarkAllRead 标记用户全部通知已读
func (s *NotificationStore) MarkAllRead(ctx context.Context, recipientID int64) error {
	query := `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND read = FALSE`
	_, err := s.db.Exec(ctx, query, recipientID)
	if err != nil {
		return apperrors.ErrDBError.Wrap(err)
	}
	return nil
}

// UnreadCount 获取用户未读通知数
func (s *NotificationStore) UnreadCount(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`,
		recipientID,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.ErrDBError.Wrap(err)
	}
	return count, nil
}

// ListRecent 获取用户最近通知（倒序）
func (s *NotificationStore) ListRecent(ctx context.Context, recipientID int64, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, actor_id, recipient_id, kind, subject_kind, subject_id, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, apperrors.ErrDBError.Wrap(err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var kind, subjectKind string
		if err := rows.Scan(&n.ID, &n.ActorID, &n.RecipientID, &kind, &subjectKind, &n.Subject.ID, &n.Read, &n.CreatedAt); err != nil {
			return nil, apperrors.ErrDBError.Wrap(err)
		}
		n.Kind = model.NotificationKind(kind)
		n.Subject.Kind = model.SubjectKind(subjectKind)
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// DeleteBySubject 删除引用指定主体的全部通知
func (s *NotificationStore) DeleteBySubject(ctx context.Context, subject model.SubjectRef) (int64, error) {
	ct, err := s.db.Exec(ctx,
		`DELETE FROM notifications WHERE subject_kind = $1 AND subject_id = $2`,
		string(subject.Kind), subject.ID,
	)
	if err != nil {
		return 0, apperrors.ErrDBError.Wrap(err)
	}
	return ct.RowsAffected(), nil
}

// PruneDangling 级联删除主体实体已不存在的通知
// 每种主体类型一条显式查询（标签联合的逐类型解析）
func (s *NotificationStore) PruneDangling(ctx context.Context) (int64, error) {
	queries := []string{
		`DELETE FROM notifications n WHERE n.subject_kind = 'post'
			AND NOT EXISTS (SELECT 1 FROM posts p WHERE p.id = n.subject_id)`,
		`DELETE FROM notifications n WHERE n.subject_kind = 'comment'
			AND NOT EXISTS (SELECT 1 FROM comments c WHERE c.id = n.subject_id)`,
		`DELETE FROM notifications n WHERE n.subject_kind = 'message'
			AND NOT EXISTS (SELECT 1 FROM messages m WHERE m.id = n.subject_id)`,
		`DELETE FROM notifications n WHERE n.subject_kind = 'follow'
			AND NOT EXISTS (SELECT 1 FROM follows f WHERE f.id = n.subject_id)`,
	}

	var total int64
	for _, query := range queries {
		ct, err := s.db.Exec(ctx, query)
		if err != nil {
			return total, apperrors.ErrDBError.Wrap(err)
		}
		total += ct.RowsAffected()
	}

	if total > 0 {
		s.logger.Info("Pruned dangling notifications", "count", total)
	}
	return total, nil
}
