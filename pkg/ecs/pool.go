package ecs

// Handle 是池中对象的稳定引用
// 由槽位索引和代数组成，槽位被回收并重新分配后旧句柄自动失效
// 零值表示无效句柄
type Handle struct {
	index int32
	gen   uint32
}

// NilHandle 是无效句柄
var NilHandle = Handle{}

// IsNil 判断句柄是否为零值
func (h Handle) IsNil() bool {
	return h.gen == 0
}

// Index 返回槽位索引
func (h Handle) Index() int {
	return int(h.index)
}

// NoGrace 表示释放的槽位在同一帧即可重新分配
const NoGrace = -1

type slot[T any] struct {
	value   T
	valid   bool
	gen     uint32
	freedAt int
}

// Pool 是固定容量的对象池
//
// 分配时从头扫描第一个可用槽位：槽位无效，且当前帧大于释放帧加宽限帧数。
// 宽限期保证刚释放的槽位不会在同一帧（或下一帧）被复用，
// 持有旧引用的代码不会把新对象误认为旧对象。
// 池从不移动对象，句柄在对象存活期间保持稳定。
type Pool[T any] struct {
	slots []slot[T]
	grace int
	frame int
	live  int
}

// NewPool 创建容量为 capacity 的对象池
// grace 为释放后需要等待的帧数，NoGrace 表示立即可复用
func NewPool[T any](capacity, grace int) *Pool[T] {
	p := &Pool[T]{
		slots: make([]slot[T], capacity),
		grace: grace,
	}
	for i := range p.slots {
		p.slots[i].freedAt = -1 << 30 // 从未使用的槽位总是可用
	}
	return p
}

// SetFrame 设置当前帧号，帧号必须单调递增
func (p *Pool[T]) SetFrame(frame int) {
	p.frame = frame
}

// Frame 返回当前帧号
func (p *Pool[T]) Frame() int {
	return p.frame
}

// Cap 返回池容量
func (p *Pool[T]) Cap() int {
	return len(p.slots)
}

// Len 返回存活对象数量
func (p *Pool[T]) Len() int {
	return p.live
}

func (p *Pool[T]) reusable(s *slot[T]) bool {
	return !s.valid && p.frame > s.freedAt+p.grace
}

// Alloc 分配一个槽位并返回清零后的对象
// 池满时返回 false，且不修改任何槽位
func (p *Pool[T]) Alloc() (Handle, *T, bool) {
	for i := range p.slots {
		s := &p.slots[i]
		if !p.reusable(s) {
			continue
		}
		var zero T
		s.value = zero
		s.valid = true
		s.gen++
		if s.gen == 0 {
			s.gen = 1
		}
		p.live++
		return Handle{index: int32(i), gen: s.gen}, &s.value, true
	}
	return NilHandle, nil, false
}

// Free 释放句柄指向的对象，句柄已失效时返回 false
func (p *Pool[T]) Free(h Handle) bool {
	if !p.Valid(h) {
		return false
	}
	p.FreeAt(h.Index())
	return true
}

// FreeAt 释放指定槽位
func (p *Pool[T]) FreeAt(i int) {
	s := &p.slots[i]
	if !s.valid {
		return
	}
	s.valid = false
	s.freedAt = p.frame
	p.live--
}

// Valid 判断句柄是否仍指向存活对象
func (p *Pool[T]) Valid(h Handle) bool {
	if h.IsNil() || h.Index() >= len(p.slots) {
		return false
	}
	s := &p.slots[h.index]
	return s.valid && s.gen == h.gen
}

// Get 通过句柄获取对象
func (p *Pool[T]) Get(h Handle) (*T, bool) {
	if !p.Valid(h) {
		return nil, false
	}
	return &p.slots[h.index].value, true
}

// At 按索引获取存活对象，用于按索引遍历整个池
// 遍历期间分配新对象是安全的
func (p *Pool[T]) At(i int) (*T, bool) {
	s := &p.slots[i]
	if !s.valid {
		return nil, false
	}
	return &s.value, true
}

// IsValidAt 判断指定槽位是否存活
func (p *Pool[T]) IsValidAt(i int) bool {
	return p.slots[i].valid
}

// HandleAt 返回指定槽位当前对象的句柄
func (p *Pool[T]) HandleAt(i int) Handle {
	s := &p.slots[i]
	if !s.valid {
		return NilHandle
	}
	return Handle{index: int32(i), gen: s.gen}
}

// FreedAt 返回槽位最近一次释放时的帧号
func (p *Pool[T]) FreedAt(i int) int {
	return p.slots[i].freedAt
}

// Clear 释放所有存活对象
func (p *Pool[T]) Clear() {
	for i := range p.slots {
		p.FreeAt(i)
	}
}
