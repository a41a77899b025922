package cache

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLeaseNotFound 租约不存在
	ErrLeaseNotFound = errors.New("租约不存在")
	// ErrLeaseReleased 租约已被释放
	ErrLeaseReleased = errors.New("租约已被释放")
)

// Lease 租约实体
// 代表缓存条目的一个持有者，每个租约对应策略中的一次 Retain
// 同一个租约只能释放一次
type Lease struct {
	id         uuid.UUID
	key        CacheKey
	acquiredAt time.Time
	releasedAt time.Time
}

// NewLease 创建新的租约
// key: 被持有的缓存键
func NewLease(key CacheKey) *Lease {
	return &Lease{
		id:         uuid.New(),
		key:        key,
		acquiredAt: time.Now(),
	}
}

// ID 获取租约ID
func (l *Lease) ID() uuid.UUID {
	return l.id
}

// Key 获取被持有的缓存键
func (l *Lease) Key() CacheKey {
	return l.key
}

// AcquiredAt 获取租约创建时间
func (l *Lease) AcquiredAt() time.Time {
	return l.acquiredAt
}

// ReleasedAt 获取租约释放时间，未释放时为零值
func (l *Lease) ReleasedAt() time.Time {
	return l.releasedAt
}

// IsReleased 检查租约是否已释放
func (l *Lease) IsReleased() bool {
	return !l.releasedAt.IsZero()
}

// MarkReleased 标记租约已释放
// 返回: 重复释放时返回ErrLeaseReleased
func (l *Lease) MarkReleased(now time.Time) error {
	if l.IsReleased() {
		return ErrLeaseReleased
	}
	l.releasedAt = now
	return nil
}

// HeldFor 计算租约的持有时长
// now: 未释放时使用的当前时间
func (l *Lease) HeldFor(now time.Time) time.Duration {
	if l.IsReleased() {
		return l.releasedAt.Sub(l.acquiredAt)
	}
	return now.Sub(l.acquiredAt)
}
