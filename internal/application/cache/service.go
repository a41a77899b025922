package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/justinwongcn/retain/internal/domain/cache"
	"github.com/justinwongcn/retain/internal/logger"
)

// RetainedCache 应用服务依赖的引用计数缓存
// 由基础设施层的RetainedCache实现
type RetainedCache interface {
	Acquire(ctx context.Context, key string, loader cache.Loader) (*cache.Lease, any, error)
	Release(ctx context.Context, lease *cache.Lease) error
	Retain(key string) error
	ReleaseKey(key string) error
	RetainerCount(key string) int
	EvictionThreshold() int
	SetEvictionThreshold(threshold int)
	Reset()
	Stats() cache.RetentionStats
	TrackedKeys() int
	ActiveLeases() int
}

// ApplicationService 缓存应用服务
// 协调领域对象和基础设施，实现具体的业务用例
type ApplicationService struct {
	retained RetainedCache
	logger   *slog.Logger
}

// NewApplicationService 创建缓存应用服务
// retained: 引用计数缓存
// l: 日志记录器，nil表示不记录
func NewApplicationService(retained RetainedCache, l *slog.Logger) *ApplicationService {
	return &ApplicationService{
		retained: retained,
		logger:   logger.OrDiscard(l),
	}
}

// AcquireCommand 获取并持有缓存项的命令
type AcquireCommand struct {
	Key    string
	Loader cache.Loader
}

// ReleaseCommand 归还租约的命令
type ReleaseCommand struct {
	Lease *cache.Lease
}

// RetainCommand 直接持有或释放键的命令
type RetainCommand struct {
	Key string
}

// RetainerQuery 持有者数量查询
type RetainerQuery struct {
	Key string
}

// ThresholdCommand 设置淘汰阈值的命令
type ThresholdCommand struct {
	Threshold int
}

// LeaseResult 获取缓存项的结果
type LeaseResult struct {
	Lease      *cache.Lease
	LeaseID    uuid.UUID
	Key        string
	Value      any
	AcquiredAt time.Time
}

// RetainerResult 持有者数量查询结果
type RetainerResult struct {
	Key   string
	Count int
}

// RetentionStatsResult 统计结果
type RetentionStatsResult struct {
	Retains           int64
	Releases          int64
	Evictions         int64
	Hits              int64
	Misses            int64
	HitRate           float64
	Loads             int64
	LoadFailures      int64
	TrackedKeys       int
	ActiveLeases      int
	EvictionThreshold int
}

// AcquireItem 获取并持有缓存项
// 用例：调用方需要使用一个缓存项，并在使用期间阻止它被淘汰
func (s *ApplicationService) AcquireItem(ctx context.Context, cmd AcquireCommand) (*LeaseResult, error) {
	if err := s.validateKey(cmd.Key); err != nil {
		return nil, fmt.Errorf("验证获取命令失败: %w", err)
	}

	lease, val, err := s.retained.Acquire(ctx, cmd.Key, cmd.Loader)
	if err != nil {
		return nil, fmt.Errorf("获取缓存项失败: %w", err)
	}

	s.logger.Debug("缓存项已持有",
		slog.String("key", cmd.Key),
		slog.String("lease", lease.ID().String()),
	)
	return &LeaseResult{
		Lease:      lease,
		LeaseID:    lease.ID(),
		Key:        lease.Key().String(),
		Value:      val,
		AcquiredAt: lease.AcquiredAt(),
	}, nil
}

// ReleaseItem 归还租约
// 用例：调用方不再使用缓存项
func (s *ApplicationService) ReleaseItem(ctx context.Context, cmd ReleaseCommand) error {
	if cmd.Lease == nil {
		return fmt.Errorf("验证归还命令失败: %w", cache.ErrLeaseNotFound)
	}
	if err := s.retained.Release(ctx, cmd.Lease); err != nil {
		return fmt.Errorf("归还租约失败: %w", err)
	}
	s.logger.Debug("租约已归还",
		slog.String("key", cmd.Lease.Key().String()),
		slog.String("lease", cmd.Lease.ID().String()),
		slog.Duration("held", cmd.Lease.HeldFor(time.Now())),
	)
	return nil
}

// RetainKey 直接为键增加持有者
func (s *ApplicationService) RetainKey(_ context.Context, cmd RetainCommand) error {
	if err := s.retained.Retain(cmd.Key); err != nil {
		return fmt.Errorf("持有缓存键失败: %w", err)
	}
	return nil
}

// ReleaseKey 直接为键减少持有者
func (s *ApplicationService) ReleaseKey(_ context.Context, cmd RetainCommand) error {
	if err := s.retained.ReleaseKey(cmd.Key); err != nil {
		return fmt.Errorf("释放缓存键失败: %w", err)
	}
	return nil
}

// GetRetainerCount 查询持有者数量
func (s *ApplicationService) GetRetainerCount(_ context.Context, query RetainerQuery) (*RetainerResult, error) {
	if err := s.validateKey(query.Key); err != nil {
		return nil, fmt.Errorf("验证持有者查询失败: %w", err)
	}
	return &RetainerResult{
		Key:   query.Key,
		Count: s.retained.RetainerCount(query.Key),
	}, nil
}

// ConfigureThreshold 设置淘汰阈值
// 用例：运维人员调整缓存容量，调低时立即淘汰
func (s *ApplicationService) ConfigureThreshold(_ context.Context, cmd ThresholdCommand) int {
	before := s.retained.EvictionThreshold()
	s.retained.SetEvictionThreshold(cmd.Threshold)
	after := s.retained.EvictionThreshold()
	s.logger.Info("淘汰阈值已更新", slog.Int("from", before), slog.Int("to", after))
	return after
}

// ResetRetention 清空所有持有信息，不删除缓存项
func (s *ApplicationService) ResetRetention(_ context.Context) {
	s.retained.Reset()
	s.logger.Info("持有信息已重置")
}

// GetRetentionStats 获取统计信息
func (s *ApplicationService) GetRetentionStats(_ context.Context) *RetentionStatsResult {
	stats := s.retained.Stats()
	return &RetentionStatsResult{
		Retains:           stats.Retains(),
		Releases:          stats.Releases(),
		Evictions:         stats.Evictions(),
		Hits:              stats.Hits(),
		Misses:            stats.Misses(),
		HitRate:           stats.HitRate(),
		Loads:             stats.Loads(),
		LoadFailures:      stats.LoadFailures(),
		TrackedKeys:       s.retained.TrackedKeys(),
		ActiveLeases:      s.retained.ActiveLeases(),
		EvictionThreshold: s.retained.EvictionThreshold(),
	}
}

// validateKey 验证缓存键
func (s *ApplicationService) validateKey(key string) error {
	_, err := cache.NewCacheKey(key)
	return err
}
