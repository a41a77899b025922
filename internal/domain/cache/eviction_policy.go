package cache

import (
	"github.com/justinwongcn/retain/internal/domain/tools"
)

// DefaultEvictionThreshold 默认的淘汰阈值
const DefaultEvictionThreshold = 5

// Deleter 淘汰策略依赖的缓存协作者
// 策略只负责决定删除哪些键，真正的值由协作者保存
// Delete 没有返回值，策略视其为不会失败的操作
type Deleter[K comparable] interface {
	Delete(key K)
}

// DeleterFunc 把普通函数适配为 Deleter
type DeleterFunc[K comparable] func(key K)

// Delete 调用 f(key)
func (f DeleterFunc[K]) Delete(key K) {
	f(key)
}

// EvictionPolicy 基于引用计数的缓存淘汰策略
//
// 每个键维护一个持有者计数，并按最近一次 Retain/Release 的时间排成最近使用链表，
// 链表头部为最近使用的键。最近使用的 threshold 个键不会被淘汰；
// 排在阈值之外且计数为 0 的键会在 Release 或调低阈值时从链表中移除，
// 并通过 Deleter 从缓存中删除。计数大于 0 的键无论多旧都不会被淘汰。
//
// EvictionPolicy 不是并发安全的，多个 goroutine 使用时需要调用方自行加锁。
type EvictionPolicy[K comparable] struct {
	retainers map[K]int
	recent    *tools.LinkedList[K]
	index     map[K]*tools.Element[K]
	threshold int
	cache     Deleter[K]
	onEvicted func(key K)
}

// NewEvictionPolicy 创建淘汰策略
// cache: 被管理的缓存
// threshold: 淘汰阈值，负数按 0 处理
func NewEvictionPolicy[K comparable](cache Deleter[K], threshold int) *EvictionPolicy[K] {
	return &EvictionPolicy[K]{
		retainers: make(map[K]int),
		recent:    tools.NewLinkedList[K](),
		index:     make(map[K]*tools.Element[K]),
		threshold: max(threshold, 0),
		cache:     cache,
		onEvicted: func(key K) {},
	}
}

// OnEvicted 设置淘汰回调，在 Deleter.Delete 之后调用
func (p *EvictionPolicy[K]) OnEvicted(fn func(key K)) {
	if fn == nil {
		fn = func(key K) {}
	}
	p.onEvicted = fn
}

// Cache 返回被管理的缓存
func (p *EvictionPolicy[K]) Cache() Deleter[K] {
	return p.cache
}

// EvictionThreshold 返回当前淘汰阈值
func (p *EvictionPolicy[K]) EvictionThreshold() int {
	return p.threshold
}

// SetEvictionThreshold 设置淘汰阈值
// 负数按 0 处理，调低阈值会立刻执行一次淘汰，调高阈值只影响之后的淘汰
func (p *EvictionPolicy[K]) SetEvictionThreshold(threshold int) {
	threshold = max(threshold, 0)
	lowered := threshold < p.threshold
	p.threshold = threshold
	if lowered {
		p.evict()
	}
}

// RetainerCount 返回键当前的持有者数量，未跟踪的键返回 0
func (p *EvictionPolicy[K]) RetainerCount(key K) int {
	return p.retainers[key]
}

// Len 返回当前跟踪的键数量
func (p *EvictionPolicy[K]) Len() int {
	return p.recent.Len()
}

// Keys 按最近使用顺序返回跟踪的键，最近使用的在前
func (p *EvictionPolicy[K]) Keys() []K {
	return p.recent.AsSlice()
}

// Reset 清空所有计数和最近使用顺序，不会调用 Deleter
// 调用方需要保证缓存中没有因此遗留的条目
func (p *EvictionPolicy[K]) Reset() {
	clear(p.retainers)
	clear(p.index)
	p.recent.Clear()
}

// Retain 为键增加一个持有者，并把键标记为最近使用
// Retain 不会触发淘汰
func (p *EvictionPolicy[K]) Retain(key K) {
	p.retainers[key]++
	p.touch(key)
}

// Release 为键减少一个持有者，并把键标记为最近使用，随后执行淘汰
// 计数最小为 0；未跟踪的键直接忽略
func (p *EvictionPolicy[K]) Release(key K) {
	count, ok := p.retainers[key]
	if !ok {
		return
	}
	if count > 0 {
		p.retainers[key] = count - 1
	}
	p.touch(key)
	p.evict()
}

// Contains 判断键是否正在被跟踪
func (p *EvictionPolicy[K]) Contains(key K) bool {
	_, ok := p.retainers[key]
	return ok
}

// Forget 撤销一次没有完成的 Retain
// 计数减一但不改变最近使用顺序，计数归零时直接移除该键，
// 不调用 Deleter 也不执行淘汰。未跟踪的键直接忽略
func (p *EvictionPolicy[K]) Forget(key K) {
	count, ok := p.retainers[key]
	if !ok {
		return
	}
	if count > 1 {
		p.retainers[key] = count - 1
		return
	}
	if e, ok := p.index[key]; ok {
		p.recent.Remove(e)
		delete(p.index, key)
	}
	delete(p.retainers, key)
}

// touch 把键移动到链表头部
func (p *EvictionPolicy[K]) touch(key K) {
	if e, ok := p.index[key]; ok {
		p.recent.MoveToFront(e)
		return
	}
	p.index[key] = p.recent.PushFront(key)
}

// evict 从最旧的键开始向前扫描，直到进入阈值范围
// 扫描到的计数为 0 的键被移除并交给 Deleter 删除
func (p *EvictionPolicy[K]) evict() {
	pos := p.recent.Len() - 1
	for e := p.recent.Back(); e != nil && pos >= p.threshold; pos-- {
		prev := e.Prev()
		key := e.Value
		if p.retainers[key] == 0 {
			p.recent.Remove(e)
			delete(p.index, key)
			delete(p.retainers, key)
			p.cache.Delete(key)
			p.onEvicted(key)
		}
		e = prev
	}
}
