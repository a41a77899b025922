package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domainCache "github.com/justinwongcn/retain/internal/domain/cache"
	"github.com/justinwongcn/retain/internal/logger"
)

// defaultDeleteTimeout 淘汰时删除缓存项的默认超时时间
const defaultDeleteTimeout = 5 * time.Second

// RetainedCacheOption 定义RetainedCache配置选项函数类型
type RetainedCacheOption func(c *RetainedCache)

// RetainedCacheWithExpiration 设置加载后写入缓存的过期时间
func RetainedCacheWithExpiration(expiration domainCache.Expiration) RetainedCacheOption {
	return func(c *RetainedCache) {
		c.expiration = expiration
	}
}

// RetainedCacheWithDeleteTimeout 设置淘汰时删除缓存项的超时时间
func RetainedCacheWithDeleteTimeout(timeout time.Duration) RetainedCacheOption {
	return func(c *RetainedCache) {
		if timeout > 0 {
			c.deleteTimeout = timeout
		}
	}
}

// RetainedCacheWithLogger 设置日志记录器
func RetainedCacheWithLogger(l *slog.Logger) RetainedCacheOption {
	return func(c *RetainedCache) {
		c.logger = logger.OrDiscard(l)
	}
}

// RetainedCache 基于引用计数的缓存
// 调用方通过Acquire获得租约并持有缓存项，通过Release归还租约。
// 没有持有者且超出淘汰阈值的缓存项会从底层仓储中删除。
// 缓存未命中时使用singleflight合并相同key的并发加载。
// 线程安全，所有策略操作都在同一把互斥锁内串行执行。
type RetainedCache struct {
	repo          domainCache.Repository
	policy        *domainCache.EvictionPolicy[string]
	mutex         sync.Mutex
	g             singleflight.Group
	leases        map[uuid.UUID]*domainCache.Lease
	stats         domainCache.RetentionStats
	expiration    domainCache.Expiration
	deleteTimeout time.Duration
	logger        *slog.Logger
	// evicted 本次持锁期间被淘汰、等待从仓储删除的键
	evicted []string
}

// NewRetainedCache 创建引用计数缓存
// repo: 底层缓存仓储，被淘汰的键在释放锁之后通过repo.Delete删除
// threshold: 淘汰阈值，负数按0处理
func NewRetainedCache(repo domainCache.Repository, threshold int, opts ...RetainedCacheOption) *RetainedCache {
	c := &RetainedCache{
		repo:          repo,
		leases:        make(map[uuid.UUID]*domainCache.Lease),
		stats:         domainCache.NewRetentionStats(),
		deleteTimeout: defaultDeleteTimeout,
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.policy = domainCache.NewEvictionPolicy[string](repositoryDeleter{c: c}, threshold)
	c.policy.OnEvicted(func(key string) {
		// 在持有 c.mutex 的 Release/SetEvictionThreshold 中调用
		c.stats = c.stats.IncrementEvictions()
		c.logger.Debug("缓存项已淘汰", slog.String("key", key))
	})
	return c
}

// repositoryDeleter 把仓储适配为淘汰策略需要的Deleter
// 策略在 c.mutex 内调用 Delete，这里只记录键，真正的删除由 unlock 完成
type repositoryDeleter struct {
	c *RetainedCache
}

// Delete 记录被淘汰的键
func (d repositoryDeleter) Delete(key string) {
	d.c.evicted = append(d.c.evicted, key)
}

// unlock 释放 c.mutex，然后删除持锁期间被淘汰的缓存项
// 仓储删除可能访问网络，放在锁外执行。删除前这个键如果被重新加载，
// 新值也会被删除，下次获取时重新加载。
func (c *RetainedCache) unlock() {
	keys := c.evicted
	c.evicted = nil
	c.mutex.Unlock()

	for _, key := range keys {
		c.deleteEvicted(key)
	}
}

// deleteEvicted 在超时上下文中删除缓存项
// 删除失败只记录日志
func (c *RetainedCache) deleteEvicted(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.deleteTimeout)
	defer cancel()
	if err := c.repo.Delete(ctx, key); err != nil {
		c.logger.Warn("删除被淘汰的缓存项失败", slog.String("key", key), slog.Any("error", err))
	}
}

// Acquire 持有并获取缓存项
// 先为key增加一个持有者，再读取缓存；未命中时调用loader加载并写入缓存。
// 加载失败或未命中且loader为nil时会撤销这次持有并返回错误：
// 之前已跟踪的key按普通释放处理，之前未跟踪的key直接从策略中移除，
// 不会占用淘汰阈值内的位置。
// 返回: 租约、缓存值和错误信息
func (c *RetainedCache) Acquire(ctx context.Context, key string, loader domainCache.Loader) (*domainCache.Lease, any, error) {
	cacheKey, err := domainCache.NewCacheKey(key)
	if err != nil {
		return nil, nil, err
	}

	c.mutex.Lock()
	tracked := c.policy.Contains(key)
	c.policy.Retain(key)
	c.stats = c.stats.IncrementRetains()
	c.mutex.Unlock()

	val, err := c.get(ctx, key, loader)
	if err != nil {
		c.mutex.Lock()
		if tracked {
			c.policy.Release(key)
		} else {
			c.policy.Forget(key)
		}
		c.stats = c.stats.IncrementReleases()
		c.unlock()
		return nil, nil, err
	}

	lease := domainCache.NewLease(cacheKey)
	c.mutex.Lock()
	c.leases[lease.ID()] = lease
	c.mutex.Unlock()
	return lease, val, nil
}

// get 读取缓存，未命中时通过singleflight加载
func (c *RetainedCache) get(ctx context.Context, key string, loader domainCache.Loader) (any, error) {
	val, err := c.repo.Get(ctx, key)
	if err == nil {
		c.record(domainCache.RetentionStats.IncrementHits)
		return val, nil
	}
	if !errors.Is(err, domainCache.ErrKeyNotFound) {
		return nil, err
	}
	c.record(domainCache.RetentionStats.IncrementMisses)
	if loader == nil {
		return nil, err
	}

	val, err, _ = c.g.Do(key, func() (any, error) {
		c.logger.Debug("缓存未命中，从数据源加载数据", slog.String("key", key))
		newVal, loadErr := loader(ctx, key)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := c.repo.Set(ctx, key, newVal, c.expiration.Duration()); setErr != nil {
			return nil, fmt.Errorf("%w, 原因：%s", domainCache.ErrFailedToRefreshCache, setErr.Error())
		}
		return newVal, nil
	})
	if err != nil {
		c.record(domainCache.RetentionStats.IncrementLoadFailures)
		c.logger.Error("加载缓存项失败", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}
	c.record(domainCache.RetentionStats.IncrementLoads)
	return val, nil
}

// record 在锁内更新统计
func (c *RetainedCache) record(fn func(domainCache.RetentionStats) domainCache.RetentionStats) {
	c.mutex.Lock()
	c.stats = fn(c.stats)
	c.mutex.Unlock()
}

// Release 归还租约
// 未知租约返回ErrLeaseNotFound，重复归还返回ErrLeaseReleased
func (c *RetainedCache) Release(_ context.Context, lease *domainCache.Lease) error {
	if lease == nil {
		return domainCache.ErrLeaseNotFound
	}

	c.mutex.Lock()
	defer c.unlock()

	held, ok := c.leases[lease.ID()]
	if !ok {
		if lease.IsReleased() {
			return domainCache.ErrLeaseReleased
		}
		return domainCache.ErrLeaseNotFound
	}
	if err := held.MarkReleased(time.Now()); err != nil {
		return err
	}
	delete(c.leases, lease.ID())
	c.policy.Release(held.Key().String())
	c.stats = c.stats.IncrementReleases()
	return nil
}

// Retain 直接为key增加一个持有者，不读取缓存
func (c *RetainedCache) Retain(key string) error {
	if _, err := domainCache.NewCacheKey(key); err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.policy.Retain(key)
	c.stats = c.stats.IncrementRetains()
	return nil
}

// ReleaseKey 直接为key减少一个持有者
// 未跟踪的key被忽略
func (c *RetainedCache) ReleaseKey(key string) error {
	if _, err := domainCache.NewCacheKey(key); err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.unlock()
	if c.policy.RetainerCount(key) > 0 {
		c.stats = c.stats.IncrementReleases()
	}
	c.policy.Release(key)
	return nil
}

// RetainerCount 返回key当前的持有者数量
func (c *RetainedCache) RetainerCount(key string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.policy.RetainerCount(key)
}

// EvictionThreshold 返回淘汰阈值
func (c *RetainedCache) EvictionThreshold() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.policy.EvictionThreshold()
}

// SetEvictionThreshold 设置淘汰阈值，调低时立刻淘汰
func (c *RetainedCache) SetEvictionThreshold(threshold int) {
	c.mutex.Lock()
	defer c.unlock()
	c.policy.SetEvictionThreshold(threshold)
}

// Reset 清空所有持有信息和未归还的租约，不删除缓存项
func (c *RetainedCache) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.policy.Reset()
	clear(c.leases)
}

// Stats 返回统计信息快照
func (c *RetainedCache) Stats() domainCache.RetentionStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stats
}

// TrackedKeys 返回当前跟踪的键数量
func (c *RetainedCache) TrackedKeys() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.policy.Len()
}

// ActiveLeases 返回尚未归还的租约数量
func (c *RetainedCache) ActiveLeases() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.leases)
}

// Close 关闭底层仓储（如果支持）
func (c *RetainedCache) Close() error {
	if closer, ok := c.repo.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
