package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Bus        BusConfig        `mapstructure:"bus"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Attachment AttachmentConfig `mapstructure:"attachment"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	NodeID   int64  `mapstructure:"node_id"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// BusConfig 广播总线配置
// Mode 为 memory 时使用进程内总线（单进程/测试部署），
// 为 nats 时使用共享消息总线（多进程水平扩展部署）
type BusConfig struct {
	Mode string `mapstructure:"mode"`
}

type JWTConfig struct {
	Secret       string        `mapstructure:"secret"`
	AccessExpire time.Duration `mapstructure:"access_expire"`
}

type AttachmentConfig struct {
	Dir string `mapstructure:"dir"`
}

type WorkerConfig struct {
	Concurrency        int           `mapstructure:"concurrency"`
	StorySweepInterval time.Duration `mapstructure:"story_sweep_interval"`
	PruneInterval      time.Duration `mapstructure:"prune_interval"`
}

// Load 从指定路径加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
