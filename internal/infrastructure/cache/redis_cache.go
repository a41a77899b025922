package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	domainCache "github.com/justinwongcn/retain/internal/domain/cache"
)

var _ domainCache.Repository = (*RedisCache)(nil)

// RedisCommander RedisCache用到的Redis命令
// redis.Client、redis.ClusterClient等都实现了该接口
type RedisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// RedisCacheOption 定义RedisCache配置选项函数类型
type RedisCacheOption func(c *RedisCache)

// RedisCacheWithKeyPrefix 设置键前缀
func RedisCacheWithKeyPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// RedisCache 基于Redis实现的缓存仓储
// []byte和string按原样写入，其他类型编码为JSON；Get总是返回[]byte。
// Delete和LoadAndDelete使用GETDEL（Redis 6.2+），以便把被删除的值交给onEvicted。
type RedisCache struct {
	client    RedisCommander
	prefix    string
	mutex     sync.RWMutex
	onEvicted func(key string, val any)
}

// NewRedisCache 创建Redis缓存仓储
func NewRedisCache(client RedisCommander, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client:    client,
		onEvicted: func(key string, val any) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (r *RedisCache) key(key string) string {
	return r.prefix + key
}

// Set 设置缓存值
// expiration: 过期时间，0表示永不过期
func (r *RedisCache) Set(ctx context.Context, key string, val any, expiration time.Duration) error {
	data, err := encodeValue(val)
	if err != nil {
		return fmt.Errorf("编码缓存值失败, key: %s: %w", key, err)
	}
	return r.client.Set(ctx, r.key(key), data, expiration).Err()
}

// Get 获取缓存值
// 键不存在时返回包装了ErrKeyNotFound的错误
func (r *RedisCache) Get(ctx context.Context, key string) (any, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf(errKeyNotFoundFormat, domainCache.ErrKeyNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Delete 删除缓存值，键不存在不算错误
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	_, err := r.LoadAndDelete(ctx, key)
	if errors.Is(err, domainCache.ErrKeyNotFound) {
		return nil
	}
	return err
}

// LoadAndDelete 原子性地获取并删除缓存值
func (r *RedisCache) LoadAndDelete(ctx context.Context, key string) (any, error) {
	val, err := r.client.GetDel(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf(errKeyNotFoundFormat, domainCache.ErrKeyNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	r.mutex.RLock()
	fn := r.onEvicted
	r.mutex.RUnlock()
	fn(key, val)
	return val, nil
}

// OnEvicted 设置缓存项被删除时的回调函数
func (r *RedisCache) OnEvicted(fn func(key string, val any)) {
	if fn == nil {
		fn = func(key string, val any) {}
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.onEvicted = fn
}

// encodeValue 把缓存值转换为可以写入Redis的形式
func encodeValue(val any) (any, error) {
	switch v := val.(type) {
	case []byte:
		return v, nil
	case string:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
