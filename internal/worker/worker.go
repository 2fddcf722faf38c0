package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"sudooom.social.realtime/internal/config"
)

// 后台任务类型
const (
	TaskStoryExpire       = "story:expire"
	TaskNotificationPrune = "notification:prune"
)

// StorySweeper 故事过期清理依赖
type StorySweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// NotificationPruner 悬挂通知清理依赖
type NotificationPruner interface {
	PruneDangling(ctx context.Context) (int64, error)
}

// Worker 后台任务执行器
// 基于 Redis 队列调度两类周期任务：过期故事删除、
// 主体实体已删除的通知级联清理
type Worker struct {
	server  *asynq.Server
	client  *asynq.Client
	mux     *asynq.ServeMux
	cfg     config.WorkerConfig
	stories StorySweeper
	pruner  NotificationPruner
	logger  *slog.Logger
}

// New 创建后台任务执行器
func New(redisCfg config.RedisConfig, workerCfg config.WorkerConfig, stories StorySweeper, pruner NotificationPruner) *Worker {
	if workerCfg.Concurrency <= 0 {
		workerCfg.Concurrency = 4
	}
	if workerCfg.StorySweepInterval <= 0 {
		workerCfg.StorySweepInterval = time.Hour
	}
	if workerCfg.PruneInterval <= 0 {
		workerCfg.PruneInterval = 6 * time.Hour
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", redisCfg.Host, redisCfg.Port),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}

	logger := slog.Default()
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: workerCfg.Concurrency,
		Queues:      map[string]int{"default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Background task failed", "type", task.Type(), "error", err)
		}),
	})

	w := &Worker{
		server:  server,
		client:  asynq.NewClient(redisOpt),
		mux:     asynq.NewServeMux(),
		cfg:     workerCfg,
		stories: stories,
		pruner:  pruner,
		logger:  logger,
	}

	w.mux.HandleFunc(TaskStoryExpire, w.handleStoryExpire)
	w.mux.HandleFunc(TaskNotificationPrune, w.handleNotificationPrune)
	return w
}

// Start 启动执行器和周期入队协程
func (w *Worker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}

	go w.scheduleLoop(ctx)

	w.logger.Info("Background worker started",
		"concurrency", w.cfg.Concurrency,
		"storySweepInterval", w.cfg.StorySweepInterval,
		"pruneInterval", w.cfg.PruneInterval)
	return nil
}

// Stop 停止执行器
func (w *Worker) Stop() {
	w.server.Shutdown()
	if err := w.client.Close(); err != nil {
		w.logger.Warn("Failed to close task client", "error", err)
	}
	w.logger.Info("Background worker stopped")
}

// scheduleLoop 按配置的间隔周期入队
// Unique 选项保证多进程部署时同一周期只执行一次
func (w *Worker) scheduleLoop(ctx context.Context) {
	storyTicker := time.NewTicker(w.cfg.StorySweepInterval)
	pruneTicker := time.NewTicker(w.cfg.PruneInterval)
	defer storyTicker.Stop()
	defer pruneTicker.Stop()

	w.enqueue(ctx, TaskStoryExpire, w.cfg.StorySweepInterval)
	w.enqueue(ctx, TaskNotificationPrune, w.cfg.PruneInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-storyTicker.C:
			w.enqueue(ctx, TaskStoryExpire, w.cfg.StorySweepInterval)
		case <-pruneTicker.C:
			w.enqueue(ctx, TaskNotificationPrune, w.cfg.PruneInterval)
		}
	}
}

func (w *Worker) enqueue(ctx context.Context, taskType string, uniqueTTL time.Duration) {
	task := asynq.NewTask(taskType, nil)
	_, err := w.client.EnqueueContext(ctx, task, asynq.Unique(uniqueTTL), asynq.MaxRetry(3))
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		w.logger.Warn("Failed to enqueue task", "type", taskType, "error", err)
	}
}

func (w *Worker) handleStoryExpire(ctx context.Context, _ *asynq.Task) error {
	deleted, err := w.stories.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	w.logger.Debug("Story sweep finished", "deleted", deleted)
	return nil
}

func (w *Worker) handleNotificationPrune(ctx context.Context, _ *asynq.Task) error {
	pruned, err := w.pruner.PruneDangling(ctx)
	if err != nil {
		return err
	}
	w.logger.Debug("Notification prune finished", "pruned", pruned)
	return nil
}
