package cache

import (
	"context"
	"time"
)

// Repository 定义缓存仓储接口
// 这是领域层的核心接口，定义了缓存的基本操作
// 遵循DDD原则，接口在领域层定义，实现在基础设施层
type Repository interface {
	// Set 设置缓存值
	// ctx: 上下文，用于传递请求级别的信息和控制超时
	// key: 缓存键
	// val: 缓存值，可以是任意类型
	// expiration: 过期时间，0表示永不过期
	Set(ctx context.Context, key string, val any, expiration time.Duration) error

	// Get 获取缓存值
	// 返回: 缓存值和错误信息，如果键不存在返回包装了ErrKeyNotFound的错误
	Get(ctx context.Context, key string) (any, error)

	// Delete 删除缓存值
	// 返回: 操作错误，键不存在不算错误
	Delete(ctx context.Context, key string) error

	// LoadAndDelete 原子性地获取并删除缓存值
	LoadAndDelete(ctx context.Context, key string) (any, error)

	// OnEvicted 设置缓存项被删除时的回调函数
	OnEvicted(fn func(key string, val any))
}

// Loader 数据加载函数，缓存未命中时用于从数据源加载数据
type Loader func(ctx context.Context, key string) (any, error)
