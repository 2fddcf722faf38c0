package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"sudooom.social.realtime/internal/registry"
	"sudooom.social.realtime/internal/wire"
)

// SubscriberConfig Worker Pool 配置
type SubscriberConfig struct {
	WorkerCount int // Worker 数量
	BufferSize  int // 消息缓冲区大小
}

// NATSDispatcher 共享总线分发器
// 发布端将封包写到频道对应的 Subject；每个进程订阅通配 Subject，
// 把收到的封包投递到本进程的注册表，从而让任意进程的发布到达
// 任意进程持有的会话（水平扩展）
type NATSDispatcher struct {
	nc           *nats.Conn
	registry     *registry.Registry
	logger       *slog.Logger
	subscription *nats.Subscription
	config       SubscriberConfig
	msgChan      chan *nats.Msg
	wg           sync.WaitGroup
	cancelFunc   context.CancelFunc
}

// NewNATSDispatcher 创建共享总线分发器
func NewNATSDispatcher(nc *nats.Conn, reg *registry.Registry, config SubscriberConfig) *NATSDispatcher {
	// 设置默认值
	if config.WorkerCount <= 0 {
		config.WorkerCount = 16
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 4096
	}

	return &NATSDispatcher{
		nc:       nc,
		registry: reg,
		logger:   slog.Default(),
		config:   config,
	}
}

var _ Dispatcher = (*NATSDispatcher)(nil)

// Start 启动订阅
func (d *NATSDispatcher) Start(ctx context.Context) error {
	d.msgChan = make(chan *nats.Msg, d.config.BufferSize)

	workerCtx, cancel := context.WithCancel(ctx)
	d.cancelFunc = cancel

	// 启动 Worker Pool
	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(workerCtx)
	}

	// 订阅所有广播事件
	// 注意：不使用队列组，每个节点都要收到完整事件流
	sub, err := d.nc.Subscribe(wire.SubjectFanoutWildcard, func(msg *nats.Msg) {
		select {
		case d.msgChan <- msg:
			// 消息入队成功
		default:
			// 缓冲区满，记录警告
			d.logger.Warn("Fanout buffer full, dropping event", "bufferSize", d.config.BufferSize)
		}
	})
	if err != nil {
		cancel()
		return err
	}

	d.subscription = sub
	d.logger.Info("Bus subscriber started",
		"subject", wire.SubjectFanoutWildcard,
		"workerCount", d.config.WorkerCount,
		"bufferSize", d.config.BufferSize,
	)
	return nil
}

// Publish 向频道发布载荷
func (d *NATSDispatcher) Publish(ctx context.Context, channel string, excludeUserID int64, payload []byte) error {
	envelope := wire.Envelope{
		Channel:       channel,
		ExcludeUserID: excludeUserID,
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		d.logger.Error("Failed to marshal envelope", "channel", channel, "error", err)
		return err
	}

	subject := wire.BuildFanoutSubject(channel)
	if err := d.nc.Publish(subject, data); err != nil {
		d.logger.Error("Failed to publish to bus", "subject", subject, "error", err)
		return err
	}

	d.logger.Debug("Published to bus", "channel", channel, "subject", subject)
	return nil
}

// worker 工作协程
func (d *NATSDispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-d.msgChan:
			if !ok {
				return
			}
			d.handleEnvelope(msg.Data)
		}
	}
}

// handleEnvelope 处理总线封包，投递到本地注册表
// 解码失败只记录日志，不影响其他频道/会话
func (d *NATSDispatcher) handleEnvelope(data []byte) {
	var envelope wire.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		d.logger.Error("Failed to unmarshal envelope", "error", err)
		return
	}

	delivered := d.registry.Deliver(envelope.Channel, envelope.Payload, envelope.ExcludeUserID)
	d.logger.Debug("Delivered bus event",
		"channel", envelope.Channel,
		"delivered", delivered)
}

// Close 停止分发器
func (d *NATSDispatcher) Close() error {
	if d.cancelFunc != nil {
		d.cancelFunc()
	}

	if d.subscription != nil {
		if err := d.subscription.Unsubscribe(); err != nil {
			d.logger.Error("Failed to unsubscribe", "error", err)
		}
	}

	if d.msgChan != nil {
		close(d.msgChan)
	}

	d.wg.Wait()

	d.logger.Info("Bus subscriber stopped")
	return nil
}
