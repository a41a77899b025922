package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainCache "github.com/justinwongcn/retain/internal/domain/cache"
)

const errKeyNotFoundFormat = "%w, key: %s"

// janitorBatch 每轮清理最多检查的缓存项数量，避免长时间占用锁
const janitorBatch = 10000

var errDuplicateClose = errors.New("重复关闭")

var _ domainCache.Repository = (*BuildInMapCache)(nil)

// BuildInMapCacheOption 定义缓存配置选项函数类型
type BuildInMapCacheOption func(cache *BuildInMapCache)

// BuildInMapCache 基于内置map实现的缓存
// 读写通过读写锁保护，过期项由后台goroutine定期清理
type BuildInMapCache struct {
	data      map[string]*item
	mutex     sync.RWMutex
	close     chan struct{}
	closeOnce sync.Once
	// onEvicted 缓存项因过期或删除被移除时调用，调用时持有写锁
	onEvicted func(key string, val any)
}

// item 缓存项，零值deadline表示永不过期
type item struct {
	val      any
	deadline time.Time
}

// NewBuildInMapCache 创建新的内置map缓存实例
// interval: 过期检查间隔，小于等于0时不启动后台清理，过期项只在读取时删除
// opts: 可选配置项
func NewBuildInMapCache(interval time.Duration, opts ...BuildInMapCacheOption) *BuildInMapCache {
	res := &BuildInMapCache{
		data:      make(map[string]*item, 100),
		close:     make(chan struct{}),
		onEvicted: func(key string, val any) {},
	}

	for _, opt := range opts {
		opt(res)
	}

	if interval > 0 {
		go res.janitor(interval)
	}

	return res
}

// BuildInMapCacheWithEvictedCallback 设置缓存项被删除时的回调函数
func BuildInMapCacheWithEvictedCallback(fn func(key string, val any)) BuildInMapCacheOption {
	return func(cache *BuildInMapCache) {
		if fn != nil {
			cache.onEvicted = fn
		}
	}
}

// janitor 定期清理过期缓存项，直到缓存被关闭
func (b *BuildInMapCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case t := <-ticker.C:
			b.mutex.Lock()
			i := 0
			for key, val := range b.data {
				if i > janitorBatch {
					break
				}
				if val.deadlineBefore(t) {
					b.delete(key)
				}
				i++
			}
			b.mutex.Unlock()
		case <-b.close:
			return
		}
	}
}

// deadlineBefore 检查缓存项是否在指定时间前过期
func (i *item) deadlineBefore(t time.Time) bool {
	return !i.deadline.IsZero() && i.deadline.Before(t)
}

// Set 设置缓存值
// expiration: 过期时间，0表示永不过期
func (b *BuildInMapCache) Set(_ context.Context, key string, val any, expiration time.Duration) error {
	var dl time.Time
	if expiration > 0 {
		dl = time.Now().Add(expiration)
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.data[key] = &item{
		val:      val,
		deadline: dl,
	}
	return nil
}

// Get 获取缓存值
// 缓存项已过期时会删除该项并返回键不存在错误
func (b *BuildInMapCache) Get(_ context.Context, key string) (any, error) {
	b.mutex.RLock()
	res, ok := b.data[key]
	b.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf(errKeyNotFoundFormat, domainCache.ErrKeyNotFound, key)
	}

	now := time.Now()
	if res.deadlineBefore(now) {
		// 再次检查，防止在升级锁的间隙被其他goroutine修改
		b.mutex.Lock()
		defer b.mutex.Unlock()
		res, ok = b.data[key]
		if !ok {
			return nil, fmt.Errorf(errKeyNotFoundFormat, domainCache.ErrKeyNotFound, key)
		}
		if res.deadlineBefore(now) {
			b.delete(key)
			return nil, fmt.Errorf(errKeyNotFoundFormat, domainCache.ErrKeyNotFound, key)
		}
	}
	return res.val, nil
}

// Delete 删除缓存值，键不存在不算错误
func (b *BuildInMapCache) Delete(_ context.Context, key string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.delete(key)
	return nil
}

// LoadAndDelete 获取并删除缓存值
func (b *BuildInMapCache) LoadAndDelete(_ context.Context, key string) (any, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	val, ok := b.data[key]
	if !ok {
		return nil, fmt.Errorf(errKeyNotFoundFormat, domainCache.ErrKeyNotFound, key)
	}
	b.delete(key)
	return val.val, nil
}

// OnEvicted 设置缓存项被删除时的回调函数
func (b *BuildInMapCache) OnEvicted(fn func(key string, val any)) {
	if fn == nil {
		fn = func(key string, val any) {}
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.onEvicted = fn
}

// Len 返回当前缓存项数量，包括尚未清理的过期项
func (b *BuildInMapCache) Len() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.data)
}

// delete 删除缓存项并触发onEvicted
// 注意: 此方法应在持有写锁的情况下调用
func (b *BuildInMapCache) delete(key string) {
	itm, ok := b.data[key]
	if !ok {
		return
	}
	delete(b.data, key)
	b.onEvicted(key, itm.val)
}

// Close 关闭缓存，停止后台清理goroutine
// 重复关闭返回错误
func (b *BuildInMapCache) Close() error {
	err := errDuplicateClose
	b.closeOnce.Do(func() {
		close(b.close)
		err = nil
	})
	return err
}
