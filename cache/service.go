package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	appCache "github.com/justinwongcn/retain/internal/application/cache"
	domainCache "github.com/justinwongcn/retain/internal/domain/cache"
	infraCache "github.com/justinwongcn/retain/internal/infrastructure/cache"
	"github.com/justinwongcn/retain/internal/infrastructure/redisclient"
)

var (
	// ErrInvalidCacheKey 缓存键非法
	ErrInvalidCacheKey = domainCache.ErrInvalidCacheKey
	// ErrKeyNotFound 缓存未命中且无法加载
	ErrKeyNotFound = domainCache.ErrKeyNotFound
	// ErrFailedToRefreshCache 加载成功但写入缓存失败
	ErrFailedToRefreshCache = domainCache.ErrFailedToRefreshCache
	// ErrLeaseNotFound 租约不存在
	ErrLeaseNotFound = domainCache.ErrLeaseNotFound
	// ErrLeaseReleased 租约已经归还
	ErrLeaseReleased = domainCache.ErrLeaseReleased
)

// Lease 一次持有，归还前对应的缓存项不会被淘汰
type Lease = domainCache.Lease

// Loader 缓存未命中时加载数据
type Loader = domainCache.Loader

// Service 引用计数缓存服务
// 通过Acquire获得租约持有缓存项，通过Release归还。没有持有者的缓存项
// 只在最近使用的前EvictionThreshold个键之内保留，超出后从存储后端删除。
type Service struct {
	appService  *appCache.ApplicationService
	retained    *infraCache.RetainedCache
	healthcheck func(context.Context) error
	ownedClient *redis.Client
	logger      *slog.Logger
}

// NewService 创建缓存服务
// 使用默认配置创建缓存服务实例
func NewService(options ...Option) (*Service, error) {
	config := DefaultConfig()
	for _, option := range options {
		option(config)
	}

	return NewServiceWithConfig(config)
}

// NewServiceWithConfig 使用配置创建缓存服务
func NewServiceWithConfig(config *Config) (*Service, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	l, err := config.buildLogger()
	if err != nil {
		return nil, err
	}

	expiration, err := domainCache.NewExpiration(config.DefaultExpiration)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	s := &Service{logger: l}

	var repository domainCache.Repository
	switch config.Backend {
	case BackendMemory, "":
		repository = infraCache.NewBuildInMapCache(config.CleanupInterval)
		s.healthcheck = func(context.Context) error { return nil }
	case BackendRedis:
		client := config.RedisClient
		if client == nil {
			owned, err := redisclient.Connect(context.Background(), config.redisConfig())
			if err != nil {
				return nil, fmt.Errorf("连接redis失败: %w", err)
			}
			s.ownedClient = owned
			client = owned
		}
		repository = infraCache.NewRedisCache(client, infraCache.RedisCacheWithKeyPrefix(config.RedisKeyPrefix))
		s.healthcheck = redisclient.Healthcheck(client)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, config.Backend)
	}

	s.retained = infraCache.NewRetainedCache(repository, config.EvictionThreshold,
		infraCache.RetainedCacheWithExpiration(expiration),
		infraCache.RetainedCacheWithDeleteTimeout(config.DeleteTimeout),
		infraCache.RetainedCacheWithLogger(l),
	)
	s.appService = appCache.NewApplicationService(s.retained, l)

	l.Debug("缓存服务已创建",
		slog.String("backend", string(config.Backend)),
		slog.Int("threshold", s.retained.EvictionThreshold()),
	)
	return s, nil
}

// Acquire 持有并获取缓存项
// 未命中时调用loader加载，loader为nil时返回ErrKeyNotFound。
// 返回的租约必须通过Release归还。
//
// 值的类型取决于后端和命中情况：redis后端命中时返回写入时编码后的[]byte
// （string和[]byte原样，其他类型为JSON），未命中时返回loader的原始值。
// 内存后端总是返回loader的原始值。
func (s *Service) Acquire(ctx context.Context, key string, loader Loader) (*Lease, any, error) {
	result, err := s.appService.AcquireItem(ctx, appCache.AcquireCommand{Key: key, Loader: loader})
	if err != nil {
		return nil, nil, err
	}
	return result.Lease, result.Value, nil
}

// Release 归还租约
func (s *Service) Release(ctx context.Context, lease *Lease) error {
	return s.appService.ReleaseItem(ctx, appCache.ReleaseCommand{Lease: lease})
}

// Retain 为key增加一个持有者，不读取缓存
func (s *Service) Retain(ctx context.Context, key string) error {
	return s.appService.RetainKey(ctx, appCache.RetainCommand{Key: key})
}

// ReleaseKey 为key减少一个持有者
// 与Retain配对使用，未被持有的key被忽略
func (s *Service) ReleaseKey(ctx context.Context, key string) error {
	return s.appService.ReleaseKey(ctx, appCache.RetainCommand{Key: key})
}

// RetainerCount 返回key的持有者数量，非法或未跟踪的key返回0
func (s *Service) RetainerCount(ctx context.Context, key string) int {
	result, err := s.appService.GetRetainerCount(ctx, appCache.RetainerQuery{Key: key})
	if err != nil {
		return 0
	}
	return result.Count
}

// EvictionThreshold 返回淘汰阈值
func (s *Service) EvictionThreshold() int {
	return s.retained.EvictionThreshold()
}

// SetEvictionThreshold 设置淘汰阈值，负数按0处理
// 调低阈值会立即淘汰超出范围且没有持有者的缓存项
func (s *Service) SetEvictionThreshold(threshold int) {
	s.appService.ConfigureThreshold(context.Background(), appCache.ThresholdCommand{Threshold: threshold})
}

// ModelCacheSize 同 EvictionThreshold
func (s *Service) ModelCacheSize() int {
	return s.EvictionThreshold()
}

// SetModelCacheSize 同 SetEvictionThreshold
func (s *Service) SetModelCacheSize(size int) {
	s.SetEvictionThreshold(size)
}

// Reset 清空所有持有信息，不删除缓存项
func (s *Service) Reset() {
	s.appService.ResetRetention(context.Background())
}

// Stats 获取统计信息
func (s *Service) Stats() Stats {
	result := s.appService.GetRetentionStats(context.Background())
	return Stats{
		Retains:           result.Retains,
		Releases:          result.Releases,
		Evictions:         result.Evictions,
		HitCount:          result.Hits,
		MissCount:         result.Misses,
		HitRate:           result.HitRate,
		Loads:             result.Loads,
		LoadFailures:      result.LoadFailures,
		TrackedKeys:       result.TrackedKeys,
		ActiveLeases:      result.ActiveLeases,
		EvictionThreshold: result.EvictionThreshold,
	}
}

// Healthcheck 检查存储后端是否可用
func (s *Service) Healthcheck(ctx context.Context) error {
	return s.healthcheck(ctx)
}

// Close 关闭服务
// 停止内存后端的清理协程；由服务自己创建的Redis连接也会被关闭
func (s *Service) Close() error {
	if err := s.retained.Close(); err != nil {
		return err
	}
	if s.ownedClient != nil {
		if err := s.ownedClient.Close(); err != nil {
			return fmt.Errorf("关闭redis连接失败: %w", err)
		}
		s.ownedClient = nil
	}
	return nil
}

// Stats 缓存统计信息
type Stats struct {
	Retains           int64   `json:"retains"`
	Releases          int64   `json:"releases"`
	Evictions         int64   `json:"evictions"`
	HitCount          int64   `json:"hit_count"`
	MissCount         int64   `json:"miss_count"`
	HitRate           float64 `json:"hit_rate"`
	Loads             int64   `json:"loads"`
	LoadFailures      int64   `json:"load_failures"`
	TrackedKeys       int     `json:"tracked_keys"`
	ActiveLeases      int     `json:"active_leases"`
	EvictionThreshold int     `json:"eviction_threshold"`
}
