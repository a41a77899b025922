// Package redisclient 负责建立Redis连接
package redisclient

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrFailedToParseURL Redis连接地址解析失败
	ErrFailedToParseURL = errors.New("解析redis连接地址失败")
	// ErrNotReady 重试次数用尽仍无法连接
	ErrNotReady = errors.New("redis在规定时间内未就绪")
	// ErrHealthcheckFailed 健康检查失败
	ErrHealthcheckFailed = errors.New("redis健康检查失败")
)

// Config Redis连接配置，字段可以通过环境变量填充
type Config struct {
	// URL 连接地址，格式如 redis://:password@localhost:6379/0
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	// RetryAttempts 连接重试次数
	RetryAttempts int `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	// RetryInterval 两次重试之间的间隔
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"`
	// ConnectTimeout 整个连接过程的超时时间
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig 返回默认连接配置
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379/0",
		RetryAttempts:  3,
		RetryInterval:  time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}

// Connect 连接Redis，失败时按RetryInterval重试RetryAttempts次
// 返回: 已通过PING检查的客户端
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseURL, err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	var lastErr error
	for range max(cfg.RetryAttempts, 1) {
		client := redis.NewClient(opt)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrNotReady, lastErr)
}

// Healthcheck 返回Redis健康检查函数
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
