package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sudooom.social.realtime/internal/attachment"
	"sudooom.social.realtime/internal/bus"
	"sudooom.social.realtime/internal/cache"
	"sudooom.social.realtime/internal/config"
	"sudooom.social.realtime/internal/handler"
	"sudooom.social.realtime/internal/health"
	"sudooom.social.realtime/internal/jwt"
	"sudooom.social.realtime/internal/registry"
	"sudooom.social.realtime/internal/router"
	"sudooom.social.realtime/internal/service"
	"sudooom.social.realtime/internal/snowflake"
	"sudooom.social.realtime/internal/store"
	"sudooom.social.realtime/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库
	db, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)

	// 连接 Redis
	redisClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis", "host", cfg.Redis.Host)

	// 组注册表与广播分发器
	reg := registry.New()

	var dispatcher bus.Dispatcher
	var natsClient *bus.Client
	switch cfg.Bus.Mode {
	case bus.ModeNATS:
		natsClient, err = bus.NewClient(cfg.NATS)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)

		natsDispatcher := bus.NewNATSDispatcher(natsClient.Conn(), reg, bus.SubscriberConfig{})
		if err := natsDispatcher.Start(ctx); err != nil {
			logger.Error("Failed to start bus subscriber", "error", err)
			os.Exit(1)
		}
		dispatcher = natsDispatcher
	default:
		dispatcher = bus.NewMemoryDispatcher(reg)
	}
	defer dispatcher.Close()

	// 附件存储
	storage, err := attachment.NewStorage(cfg.Attachment.Dir)
	if err != nil {
		logger.Error("Failed to init attachment storage", "dir", cfg.Attachment.Dir, "error", err)
		os.Exit(1)
	}

	// 基础组件
	node := snowflake.NewNode(cfg.App.NodeID)
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessExpire)
	unreadCounter := cache.NewUnreadCounter(redisClient)

	// 存储层
	convStore := store.NewConversationStore(db)
	msgStore := store.NewMessageStore(db)
	notifStore := store.NewNotificationStore(db)
	followStore := store.NewFollowStore(db)
	userStore := store.NewUserStore(db)
	contentStore := store.NewContentStore(db)
	storyStore := store.NewStoryStore(db)

	// 服务层
	notifyService := service.NewNotifyService(notifStore, userStore, unreadCounter, dispatcher, node)
	chatService := service.NewChatService(convStore, msgStore, storage, dispatcher, notifyService, node)
	followService := service.NewFollowService(followStore, convStore, userStore, notifyService, notifStore, node)
	engagementService := service.NewEngagementService(contentStore, notifyService, node)
	notificationService := service.NewNotificationService(notifStore, unreadCounter)

	// 处理器
	chatHandler := handler.NewChatHandler(jwtService, userStore, chatService, reg)
	notifHandler := handler.NewNotificationHandler(jwtService, notificationService, reg)
	followHandler := handler.NewFollowHandler(followService)
	engagementHandler := handler.NewEngagementHandler(engagementService)

	// 后台任务
	backgroundWorker := worker.New(cfg.Redis, cfg.Worker, storyStore, notifStore)
	if err := backgroundWorker.Start(ctx); err != nil {
		logger.Error("Failed to start background worker", "error", err)
		os.Exit(1)
	}

	// 健康检查
	var healthChecker *health.Checker
	if natsClient != nil {
		healthChecker = health.NewChecker(cfg.App.Name, db, redisClient, natsClient.Conn(), reg)
	} else {
		healthChecker = health.NewChecker(cfg.App.Name, db, redisClient, nil, reg)
	}

	// HTTP 服务
	engine := router.Setup(jwtService, chatHandler, notifHandler, followHandler, engagementHandler, healthChecker)
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: engine,
	}

	go func() {
		logger.Info("Realtime service started",
			"name", cfg.App.Name,
			"addr", cfg.Server.Addr,
			"busMode", cfg.Bus.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", "error", err)
	}

	backgroundWorker.Stop()
	logger.Info("Realtime service stopped")
}

// parseLogLevel 解析日志级别
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
