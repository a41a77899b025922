package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	domainCache "github.com/justinwongcn/retain/internal/domain/cache"
	"github.com/justinwongcn/retain/internal/infrastructure/redisclient"
	"github.com/justinwongcn/retain/internal/logger"
)

var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("配置不能为空")
	// ErrInvalidConfig 配置无法解析或取值非法
	ErrInvalidConfig = errors.New("无效的缓存配置")
	// ErrUnknownBackend 不支持的存储后端
	ErrUnknownBackend = errors.New("未知的存储后端")
)

// Backend 缓存项的存储后端
type Backend string

const (
	// BackendMemory 进程内存储
	BackendMemory Backend = "memory"
	// BackendRedis Redis存储
	BackendRedis Backend = "redis"
)

// Config 缓存配置
// 字段可以通过 LoadConfig 从环境变量填充
type Config struct {
	// EvictionThreshold 淘汰阈值，最近使用的前N个键即使没有持有者也会保留
	EvictionThreshold int `env:"RETAIN_EVICTION_THRESHOLD" envDefault:"5"`

	// DefaultExpiration 加载后写入缓存的过期时间，0表示永不过期，负数非法
	DefaultExpiration time.Duration `env:"RETAIN_DEFAULT_EXPIRATION" envDefault:"0s"`

	// CleanupInterval 内存后端清理过期项的间隔，0表示不清理
	CleanupInterval time.Duration `env:"RETAIN_CLEANUP_INTERVAL" envDefault:"10m"`

	// DeleteTimeout 淘汰时删除缓存项的超时时间
	DeleteTimeout time.Duration `env:"RETAIN_DELETE_TIMEOUT" envDefault:"5s"`

	// Backend 存储后端 ("memory", "redis")
	Backend Backend `env:"RETAIN_BACKEND" envDefault:"memory"`

	// RedisKeyPrefix Redis后端的键前缀
	RedisKeyPrefix string `env:"RETAIN_REDIS_KEY_PREFIX" envDefault:"retain:"`

	// LogLevel 日志级别 ("debug", "info", "warn", "error")
	LogLevel string `env:"RETAIN_LOG_LEVEL" envDefault:"info"`

	// LogFormat 日志格式 ("text", "json")
	LogFormat string `env:"RETAIN_LOG_FORMAT" envDefault:"text"`

	// Redis 连接配置，RedisClient为空时使用
	RedisURL            string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisRetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RedisRetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"`
	RedisConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s"`

	// RedisClient 已有的Redis客户端，由调用方负责关闭
	RedisClient redis.UniversalClient `env:"-"`

	// Logger 日志记录器，为空时按LogLevel和LogFormat创建
	Logger *slog.Logger `env:"-"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() *Config {
	redisCfg := redisclient.DefaultConfig()
	return &Config{
		EvictionThreshold:   domainCache.DefaultEvictionThreshold,
		DefaultExpiration:   0,
		CleanupInterval:     10 * time.Minute,
		DeleteTimeout:       5 * time.Second,
		Backend:             BackendMemory,
		RedisKeyPrefix:      "retain:",
		LogLevel:            "info",
		LogFormat:           string(logger.FormatText),
		RedisURL:            redisCfg.URL,
		RedisRetryAttempts:  redisCfg.RetryAttempts,
		RedisRetryInterval:  redisCfg.RetryInterval,
		RedisConnectTimeout: redisCfg.ConnectTimeout,
	}
}

// LoadConfig 从环境变量加载配置
// 当前目录存在 .env 文件时先加载它，已存在的环境变量不会被覆盖
func LoadConfig() (*Config, error) {
	// .env 文件可能不存在
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Option 缓存选项函数
type Option func(*Config)

// WithEvictionThreshold 设置淘汰阈值
func WithEvictionThreshold(threshold int) Option {
	return func(c *Config) {
		c.EvictionThreshold = threshold
	}
}

// WithDefaultExpiration 设置默认过期时间
func WithDefaultExpiration(expiration time.Duration) Option {
	return func(c *Config) {
		c.DefaultExpiration = expiration
	}
}

// WithCleanupInterval 设置清理间隔
func WithCleanupInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.CleanupInterval = interval
	}
}

// WithDeleteTimeout 设置淘汰时删除缓存项的超时时间
func WithDeleteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.DeleteTimeout = timeout
	}
}

// WithBackend 设置存储后端
func WithBackend(backend Backend) Option {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithRedisClient 使用已有的Redis客户端，同时把后端切换为redis
func WithRedisClient(client redis.UniversalClient) Option {
	return func(c *Config) {
		c.RedisClient = client
		c.Backend = BackendRedis
	}
}

// WithRedisKeyPrefix 设置Redis键前缀
func WithRedisKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.RedisKeyPrefix = prefix
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// redisConfig 转换为连接配置
func (c *Config) redisConfig() redisclient.Config {
	return redisclient.Config{
		URL:            c.RedisURL,
		RetryAttempts:  c.RedisRetryAttempts,
		RetryInterval:  c.RedisRetryInterval,
		ConnectTimeout: c.RedisConnectTimeout,
	}
}

// buildLogger 返回配置的日志记录器
func (c *Config) buildLogger() (*slog.Logger, error) {
	if c.Logger != nil {
		return c.Logger, nil
	}

	level := slog.LevelInfo
	if c.LogLevel != "" {
		var err error
		if level, err = logger.ParseLevel(c.LogLevel); err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
	}

	format := logger.FormatText
	if c.LogFormat != "" {
		format = logger.Format(strings.ToLower(strings.TrimSpace(c.LogFormat)))
		if format != logger.FormatText && format != logger.FormatJSON {
			return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("无效的日志格式 %q", c.LogFormat))
		}
	}

	return logger.New(
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithOutput(os.Stderr),
		logger.WithAttr(slog.String("component", "retain")),
	), nil
}
