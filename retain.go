package retain

import (
	"context"
	"errors"

	"github.com/justinwongcn/retain/cache"
)

// NewCache 创建缓存服务
// 这是创建缓存服务的便捷方法，使用默认配置
func NewCache(options ...cache.Option) (*cache.Service, error) {
	return cache.NewService(options...)
}

// NewCacheWithConfig 使用配置创建缓存服务
func NewCacheWithConfig(config *cache.Config) (*cache.Service, error) {
	return cache.NewServiceWithConfig(config)
}

// NewCacheFromEnv 从环境变量（和 .env 文件）读取配置并创建缓存服务
// options 在环境变量之后应用
func NewCacheFromEnv(options ...cache.Option) (*cache.Service, error) {
	config, err := cache.LoadConfig()
	if err != nil {
		return nil, err
	}
	for _, option := range options {
		option(config)
	}
	return cache.NewServiceWithConfig(config)
}

// NewEvictionPolicy 创建淘汰策略
// 适用于自己管理缓存存储、只需要淘汰决策的场景
func NewEvictionPolicy[K comparable](deleter cache.Deleter[K], threshold int) *cache.EvictionPolicy[K] {
	return cache.NewEvictionPolicy[K](deleter, threshold)
}

// WithLease 持有key期间执行fn，结束后归还租约
// fn的错误和归还租约的错误都会返回
func WithLease(ctx context.Context, c Cache, key string, loader cache.Loader, fn func(val any) error) error {
	lease, val, err := c.Acquire(ctx, key, loader)
	if err != nil {
		return err
	}
	fnErr := fn(val)
	return errors.Join(fnErr, c.Release(ctx, lease))
}

// Version 返回 retain 库的版本
const Version = "1.0.0"

// GetVersion 获取版本信息
func GetVersion() string {
	return Version
}
