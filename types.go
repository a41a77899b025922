package retain

import (
	"context"

	"github.com/justinwongcn/retain/cache"
)

// Cache 定义引用计数缓存接口
// 调用方持有缓存项期间它不会被淘汰，释放后由淘汰阈值决定是否保留
type Cache interface {
	// Acquire 持有并获取缓存项
	// key: 缓存键
	// loader: 未命中时的加载函数
	// 返回: 租约、缓存值和错误信息
	Acquire(ctx context.Context, key string, loader cache.Loader) (*cache.Lease, any, error)

	// Release 归还租约
	// lease: Acquire返回的租约
	// 返回: 错误信息
	Release(ctx context.Context, lease *cache.Lease) error

	// Retain 为key增加一个持有者
	Retain(ctx context.Context, key string) error

	// ReleaseKey 为key减少一个持有者
	ReleaseKey(ctx context.Context, key string) error

	// RetainerCount 返回key的持有者数量
	RetainerCount(ctx context.Context, key string) int

	// EvictionThreshold 返回淘汰阈值
	EvictionThreshold() int

	// SetEvictionThreshold 设置淘汰阈值，调低时立即淘汰
	SetEvictionThreshold(threshold int)

	// Reset 清空持有信息
	Reset()

	// Stats 返回统计信息
	Stats() cache.Stats

	// Close 关闭缓存
	Close() error
}

var _ Cache = (*cache.Service)(nil)
