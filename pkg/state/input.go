package state

import (
	"context"
	"sync"
	"sync/atomic"
)

// Input is a mutable value with push-based change notification.
type Input[T any] struct {
	mu          sync.Mutex
	value       T
	set         bool
	closed      bool
	nextID      uint64
	seq         uint64
	subscribers []*Subscription
	queue       []queued[T]
	dispatching bool
}

// queued is a pending delivery. seq numbers writes in issue order.
type queued[T any] struct {
	seq   uint64
	value T
}

// NewInput returns an empty Input. Value reports ok=false until the first write.
func NewInput[T any]() *Input[T] {
	return &Input[T]{}
}

// Value returns the latest value and whether one has been written.
func (in *Input[T]) Value() (T, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.value, in.set
}

// ValueOr returns the latest value or fallback when nothing was written yet.
func (in *Input[T]) ValueOr(fallback T) T {
	value, ok := in.Value()
	if !ok {
		return fallback
	}
	return value
}

// Put stores value and publishes it.
func (in *Input[T]) Put(value T) {
	in.mu.Lock()
	in.value = value
	in.set = true
	in.enqueue(value)
	in.drain()
}

// Modify computes the next value from the latest one while holding the write
// lock. fn returns ok=false to skip the write; Modify reports whether a value
// was stored.
func (in *Input[T]) Modify(fn func(current T, set bool) (next T, ok bool)) bool {
	if fn == nil {
		return false
	}
	in.mu.Lock()
	next, ok := fn(in.value, in.set)
	if !ok {
		in.mu.Unlock()
		return false
	}
	in.value = next
	in.set = true
	in.enqueue(next)
	in.drain()
	return true
}

func (in *Input[T]) enqueue(value T) {
	in.seq++
	in.queue = append(in.queue, queued[T]{seq: in.seq, value: value})
}

// drain delivers queued values in order. It must be called with in.mu held and
// always returns with it released.
func (in *Input[T]) drain() {
	if in.dispatching {
		in.mu.Unlock()
		return
	}
	in.dispatching = true
	for len(in.queue) > 0 {
		next := in.queue[0]
		in.queue[0] = queued[T]{}
		in.queue = in.queue[1:]

		targets := make([]*Subscription, len(in.subscribers))
		copy(targets, in.subscribers)
		in.mu.Unlock()

		for _, sub := range targets {
			if !sub.Active() || next.seq <= sub.since {
				continue
			}
			sub.deliver(next.value)
		}

		in.mu.Lock()
	}
	in.queue = nil
	in.dispatching = false
	in.mu.Unlock()
}

// Subscribe registers fn for every future write. When a value is already
// present fn receives it immediately. Cancelling ctx releases the
// subscription; a nil ctx never cancels.
func (in *Input[T]) Subscribe(ctx context.Context, fn func(T)) *Subscription {
	sub := &Subscription{}
	if fn == nil {
		return sub
	}
	if ctx != nil && ctx.Err() != nil {
		return sub
	}

	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return sub
	}
	in.nextID++
	sub.id = in.nextID
	sub.since = in.seq
	sub.active.Store(true)
	sub.release = func() { in.remove(sub.id) }
	sub.deliver = func(value any) {
		typed, _ := value.(T)
		fn(typed)
	}
	in.subscribers = append(in.subscribers, sub)
	current, set := in.value, in.set
	in.mu.Unlock()

	if ctx != nil {
		sub.watch(context.AfterFunc(ctx, sub.Unsubscribe))
	}
	if set {
		fn(current)
	}
	return sub
}

// Subscribers reports how many subscriptions are currently registered.
func (in *Input[T]) Subscribers() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.subscribers)
}

// Close releases every subscription and rejects new ones. The value remains
// readable and writable.
func (in *Input[T]) Close() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.closed = true
	subs := in.subscribers
	in.subscribers = nil
	in.mu.Unlock()

	for _, sub := range subs {
		sub.deactivate()
	}
}

func (in *Input[T]) remove(id uint64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i, sub := range in.subscribers {
		if sub.id == id {
			in.subscribers = append(in.subscribers[:i:i], in.subscribers[i+1:]...)
			return
		}
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id      uint64
	since   uint64
	active  atomic.Bool
	once    sync.Once
	release func()
	deliver func(any)

	mu      sync.Mutex
	stop    func() bool
	stopped bool
}

// Active reports whether the subscription still receives values.
func (s *Subscription) Active() bool {
	return s != nil && s.active.Load()
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.active.Store(false)
		if s.release != nil {
			s.release()
		}
		s.unwatch()
	})
}

func (s *Subscription) deactivate() {
	s.once.Do(func() {
		s.active.Store(false)
		s.unwatch()
	})
}

// watch records the context hook so releasing the subscription also detaches
// it from the context.
func (s *Subscription) watch(stop func() bool) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		stop()
		return
	}
	s.stop = stop
	s.mu.Unlock()
}

func (s *Subscription) unwatch() {
	s.mu.Lock()
	s.stopped = true
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}
