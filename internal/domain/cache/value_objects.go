package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCacheKey 无效的缓存键错误
	ErrInvalidCacheKey = errors.New("无效的缓存键")
	// ErrInvalidExpiration 无效的过期时间错误
	ErrInvalidExpiration = errors.New("无效的过期时间")
	// ErrKeyNotFound 键未找到错误
	ErrKeyNotFound = errors.New("键未找到")
	// ErrFailedToRefreshCache 刷新缓存失败错误
	ErrFailedToRefreshCache = errors.New("刷新缓存失败")
)

// maxKeyLength 缓存键的最大字节数
const maxKeyLength = 250

// CacheKey 缓存键值对象
// 封装缓存键的业务规则和验证逻辑
type CacheKey struct {
	value string
}

// NewCacheKey 创建新的缓存键
// key: 键值字符串
// 返回: CacheKey实例和错误信息
func NewCacheKey(key string) (CacheKey, error) {
	if err := validateKey(key); err != nil {
		return CacheKey{}, fmt.Errorf("%w: %s", ErrInvalidCacheKey, err.Error())
	}
	return CacheKey{value: key}, nil
}

// String 返回缓存键的字符串表示
func (k CacheKey) String() string {
	return k.value
}

// validateKey 验证缓存键的有效性
func validateKey(key string) error {
	if key == "" {
		return errors.New("缓存键不能为空")
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("缓存键长度不能超过%d个字符", maxKeyLength)
	}
	if strings.ContainsAny(key, "\r\n") {
		return errors.New("缓存键不能包含换行符")
	}
	return nil
}

// Expiration 过期时间值对象
type Expiration struct {
	duration time.Duration
}

// NewExpiration 创建新的过期时间
// duration: 过期时间间隔，0表示永不过期
func NewExpiration(duration time.Duration) (Expiration, error) {
	if duration < 0 {
		return Expiration{}, fmt.Errorf("%w: 过期时间不能为负数", ErrInvalidExpiration)
	}
	return Expiration{duration: duration}, nil
}

// Duration 获取过期时间间隔
func (e Expiration) Duration() time.Duration {
	return e.duration
}

// RetentionStats 引用计数缓存的统计值对象
// 所有 Increment 方法都返回新的副本
type RetentionStats struct {
	retains      int64
	releases     int64
	evictions    int64
	hits         int64
	misses       int64
	loads        int64
	loadFailures int64
}

// NewRetentionStats 创建新的统计
func NewRetentionStats() RetentionStats {
	return RetentionStats{}
}

// Retains 获取持有次数
func (s RetentionStats) Retains() int64 {
	return s.retains
}

// Releases 获取释放次数
func (s RetentionStats) Releases() int64 {
	return s.releases
}

// Evictions 获取淘汰次数
func (s RetentionStats) Evictions() int64 {
	return s.evictions
}

// Hits 获取命中次数
func (s RetentionStats) Hits() int64 {
	return s.hits
}

// Misses 获取未命中次数
func (s RetentionStats) Misses() int64 {
	return s.misses
}

// Loads 获取加载成功次数
func (s RetentionStats) Loads() int64 {
	return s.loads
}

// LoadFailures 获取加载失败次数
func (s RetentionStats) LoadFailures() int64 {
	return s.loadFailures
}

// HitRate 计算命中率
func (s RetentionStats) HitRate() float64 {
	total := s.hits + s.misses
	if total == 0 {
		return 0
	}
	return float64(s.hits) / float64(total)
}

// IncrementRetains 增加持有次数
func (s RetentionStats) IncrementRetains() RetentionStats {
	s.retains++
	return s
}

// IncrementReleases 增加释放次数
func (s RetentionStats) IncrementReleases() RetentionStats {
	s.releases++
	return s
}

// IncrementEvictions 增加淘汰次数
func (s RetentionStats) IncrementEvictions() RetentionStats {
	s.evictions++
	return s
}

// IncrementHits 增加命中次数
func (s RetentionStats) IncrementHits() RetentionStats {
	s.hits++
	return s
}

// IncrementMisses 增加未命中次数
func (s RetentionStats) IncrementMisses() RetentionStats {
	s.misses++
	return s
}

// IncrementLoads 增加加载成功次数
func (s RetentionStats) IncrementLoads() RetentionStats {
	s.loads++
	return s
}

// IncrementLoadFailures 增加加载失败次数
func (s RetentionStats) IncrementLoadFailures() RetentionStats {
	s.loadFailures++
	return s
}
