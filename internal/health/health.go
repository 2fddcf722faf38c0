package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Status 健康状态
type Status struct {
	Service  string `json:"service"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	NATS     string `json:"nats"`
	Channels int    `json:"channels"`
}

// ChannelCounter 活跃频道计数接口
type ChannelCounter interface {
	ChannelCount() int
}

// Checker 健康检查器
// NATS 连接为 nil 表示进程内总线模式，不参与健康判定
type Checker struct {
	service     string
	db          *pgxpool.Pool
	redisClient *redis.Client
	nc          *nats.Conn
	channels    ChannelCounter
}

// NewChecker 创建健康检查器
func NewChecker(service string, db *pgxpool.Pool, redisClient *redis.Client, nc *nats.Conn, channels ChannelCounter) *Checker {
	return &Checker{
		service:     service,
		db:          db,
		redisClient: redisClient,
		nc:          nc,
		channels:    channels,
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Service: h.service,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// 检查数据库
	if h.db != nil {
		if err := h.db.Ping(checkCtx); err == nil {
			status.Database = "connected"
		} else {
			status.Database = "disconnected"
		}
	} else {
		status.Database = "not configured"
	}

	// 检查 Redis
	if h.redisClient != nil {
		if err := h.redisClient.Ping(checkCtx).Err(); err == nil {
			status.Redis = "connected"
		} else {
			status.Redis = "disconnected"
		}
	} else {
		status.Redis = "not configured"
	}

	// 检查 NATS
	if h.nc != nil {
		if h.nc.IsConnected() {
			status.NATS = "connected"
		} else {
			status.NATS = "disconnected"
		}
	} else {
		status.NATS = "not configured"
	}

	if h.channels != nil {
		status.Channels = h.channels.ChannelCount()
	}

	return status
}

// IsHealthy 检查是否健康
func (h *Checker) IsHealthy(ctx context.Context) bool {
	status := h.Check(ctx)
	if status.Database == "disconnected" {
		return false
	}
	if status.NATS == "disconnected" {
		return false
	}
	return true
}

// ServeHTTP HTTP 健康检查端点
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if !h.IsHealthy(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(status)
}
