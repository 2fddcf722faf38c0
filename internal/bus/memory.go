package bus

import (
	"context"
	"log/slog"

	"sudooom.social.realtime/internal/registry"
)

// MemoryDispatcher 进程内分发器
// 直接投递到本地注册表，用于单进程部署和测试
// 同步调用天然保证频道内 FIFO
type MemoryDispatcher struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewMemoryDispatcher 创建进程内分发器
func NewMemoryDispatcher(reg *registry.Registry) *MemoryDispatcher {
	return &MemoryDispatcher{
		registry: reg,
		logger:   slog.Default(),
	}
}

var _ Dispatcher = (*MemoryDispatcher)(nil)

// Publish 向频道发布载荷
func (d *MemoryDispatcher) Publish(ctx context.Context, channel string, excludeUserID int64, payload []byte) error {
	delivered := d.registry.Deliver(channel, payload, excludeUserID)
	d.logger.Debug("Published to local registry",
		"channel", channel,
		"delivered", delivered)
	return nil
}

// Close 停止分发器
func (d *MemoryDispatcher) Close() error {
	return nil
}
