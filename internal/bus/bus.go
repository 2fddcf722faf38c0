package bus

import "context"

// Dispatcher 广播分发器
// publish 将载荷投递给频道当前所有订阅会话（跨进程经共享总线），
// 投递语义为每会话至多一次、频道内按发布顺序（尽力而为 FIFO）
type Dispatcher interface {
	// Publish 向频道发布载荷
	// excludeUserID 非零时按身份跳过该用户的会话（如 typing 事件的发起者自排除）
	Publish(ctx context.Context, channel string, excludeUserID int64, payload []byte) error

	// Close 停止分发器
	Close() error
}

// 总线模式
const (
	ModeMemory = "memory"
	ModeNATS   = "nats"
)
