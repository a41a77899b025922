package cache

import (
	domainCache "github.com/justinwongcn/retain/internal/domain/cache"
)

// DefaultEvictionThreshold 默认淘汰阈值
const DefaultEvictionThreshold = domainCache.DefaultEvictionThreshold

// EvictionPolicy 引用计数加最近使用顺序的淘汰策略
// 没有持有者且不在最近使用的前N个键之内的键会交给Deleter删除。
// 非线程安全，调用方需要自己加锁。
type EvictionPolicy[K comparable] = domainCache.EvictionPolicy[K]

// Deleter 被淘汰的键通过它从缓存中删除
type Deleter[K comparable] = domainCache.Deleter[K]

// DeleterFunc 把普通函数适配为Deleter
type DeleterFunc[K comparable] = domainCache.DeleterFunc[K]

// NewEvictionPolicy 创建淘汰策略
// cache: 负责删除缓存项
// threshold: 淘汰阈值，负数按0处理
func NewEvictionPolicy[K comparable](cache Deleter[K], threshold int) *EvictionPolicy[K] {
	return domainCache.NewEvictionPolicy[K](cache, threshold)
}
