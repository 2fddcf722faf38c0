package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnreadCounter 未读通知计数缓存
// 计数是数据库的派生值：新通知落库后自增，标记已读后重算，
// 缓存未命中时回源数据库
type UnreadCounter struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewUnreadCounter 创建未读计数缓存
func NewUnreadCounter(redisClient *redis.Client) *UnreadCounter {
	return &UnreadCounter{
		redisClient: redisClient,
		logger:      slog.Default(),
	}
}

// Incr 未读数自增（新通知落库后调用）
// 只对已存在的计数自增，避免把过期的缓存从错误的起点重建
func (c *UnreadCounter) Incr(ctx context.Context, userID int64) {
	key := BuildUnreadKey(userID)

	exists, err := c.redisClient.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return
	}

	pipe := c.redisClient.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, unreadTTLSeconds*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Failed to incr unread counter", "userId", userID, "error", err)
	}
}

// Set 回写未读数（回源重算后调用）
func (c *UnreadCounter) Set(ctx context.Context, userID, count int64) {
	key := BuildUnreadKey(userID)
	if err := c.redisClient.Set(ctx, key, count, unreadTTLSeconds*time.Second).Err(); err != nil {
		c.logger.Warn("Failed to set unread counter", "userId", userID, "error", err)
	}
}

// Get 读取未读数，未命中返回 (0, false)
func (c *UnreadCounter) Get(ctx context.Context, userID int64) (int64, bool) {
	key := BuildUnreadKey(userID)

	count, err := c.redisClient.Get(ctx, key).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to get unread counter", "userId", userID, "error", err)
		}
		return 0, false
	}

	return count, true
}

// Invalidate 删除缓存（标记已读后调用，下次读取回源重算）
func (c *UnreadCounter) Invalidate(ctx context.Context, userID int64) {
	key := BuildUnreadKey(userID)
	if err := c.redisClient.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("Failed to invalidate unread counter", "userId", userID, "error", err)
	}
}
