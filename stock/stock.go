// Package stock implements a named, bounded pool of reusable items with
// idle/busy/creating bookkeeping, FIFO waiters, and scheduled idle cleanup
// (spec.md §4.2). It generalizes the connection-pooling concern that, in
// the teacher, is expressed as a buffer with bounded capacity and
// scheduled flush/drop behavior.
//
// Grounded on quarry/policy/buffered.go's BufferedPolicy: a mutex-guarded
// state machine with explicit capacity limits, drop/evict rules when full,
// and a logger threaded through for observability. Stock keeps that shape —
// one mutex guarding bounded lists, explicit limit-exceeded handling — and
// replaces "buffer events, flush to a sink" with "create/borrow/release
// resources, serve FIFO waiters".
//
// The source's single-threaded event-loop callbacks (Create(handler),
// ItemCreateSuccess/Error) are re-expressed as blocking, context-aware Go
// calls per spec.md §5: Get blocks until an item is available, creation
// fails, or ctx is done.
package stock

import (
	"container/list"
	"context"
	"math"
	"sync"
	"time"
)

// Item is a resource managed by a Stock.
type Item interface {
	// Borrow is called when an idle item is about to be handed out again.
	// false means the item is no longer usable and must be destroyed.
	Borrow() bool
	// Release is called on Put when reuse is requested. false means the
	// item could not be cleanly released and must be destroyed instead.
	Release() bool
	// Faded reports whether the item has been marked for forced retirement
	// (e.g. by FadeAll); true forces destroy-on-put regardless of reuse.
	Faded() bool
	// Destroy releases any underlying resource. Called at most once.
	Destroy()
}

// Factory creates new Items for a Stock. Create should respect ctx
// cancellation where the underlying resource acquisition supports it.
type Factory interface {
	Create(ctx context.Context) (Item, error)
}

// DefaultCleanupInterval is how long a Stock waits, once idle exceeds
// MaxIdle, before trimming the idle list (spec.md §4.2 "fires after ~20s").
const DefaultCleanupInterval = 20 * time.Second

// DefaultClearInterval is the period of the "may clear" idle sweep
// (spec.md §4.2 "~60s").
const DefaultClearInterval = 60 * time.Second

// Stats is a point-in-time snapshot of a Stock's list sizes.
type Stats struct {
	Idle, Busy, Creating, Waiting int
}

// Stock is a named pool of equivalent reusable items.
type Stock struct {
	name    string
	factory Factory
	limit   int // 0 means unlimited
	maxIdle int

	cleanupInterval time.Duration
	clearInterval   time.Duration

	onEmpty func()

	mu       sync.Mutex
	idle     []Item
	busy     int
	creating int
	waiters  *list.List // of chan waitResult

	mayClear     bool
	cleanupTimer *time.Timer
	clearTimer   *time.Timer
	closed       bool
}

type waitResult struct {
	item Item
	err  error
}

// Option configures a Stock at construction.
type Option func(*Stock)

// WithIntervals overrides the cleanup/clear tick periods, primarily for
// tests that can't wait on the production defaults.
func WithIntervals(cleanup, clear time.Duration) Option {
	return func(s *Stock) {
		s.cleanupInterval = cleanup
		s.clearInterval = clear
	}
}

// WithEmptyNotify registers a callback invoked synchronously, on the
// goroutine whose call left the Stock empty, once idle, busy, and creating
// are all empty, mirroring OnStockEmpty (spec.md §4.2).
func WithEmptyNotify(fn func()) Option {
	return func(s *Stock) { s.onEmpty = fn }
}

// New constructs a Stock. limit <= 0 means unlimited concurrent
// busy+creating items. maxIdle <= 0 is treated as 1.
func New(name string, factory Factory, limit, maxIdle int, opts ...Option) *Stock {
	if maxIdle <= 0 {
		maxIdle = 1
	}
	s := &Stock{
		name:            name,
		factory:         factory,
		limit:           limit,
		maxIdle:         maxIdle,
		cleanupInterval: DefaultCleanupInterval,
		clearInterval:   DefaultClearInterval,
		waiters:         list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.clearTimer = time.AfterFunc(s.clearInterval, s.onClearTick)
	return s
}

// Get returns an item, creating one if under limit or parking as a FIFO
// waiter if at limit. Blocks until an item is available, creation fails,
// or ctx is done (spec.md §4.2 Get).
func (s *Stock) Get(ctx context.Context) (Item, error) {
	s.mu.Lock()
	s.mayClear = false

	for len(s.idle) > 0 {
		item := s.idle[0]
		s.idle = s.idle[1:]
		if item.Borrow() {
			s.busy++
			s.mu.Unlock()
			return item, nil
		}
		item.Destroy()
	}

	if s.limit <= 0 || s.busy+s.creating < s.limit {
		s.creating++
		s.mu.Unlock()

		item, err := s.factory.Create(ctx)

		s.mu.Lock()
		s.creating--
		if err != nil {
			s.mu.Unlock()
			s.checkEmpty()
			return nil, err
		}
		s.busy++
		s.mu.Unlock()
		return item, nil
	}

	ch := make(chan waitResult, 1)
	elem := s.waiters.PushBack(ch)
	s.mu.Unlock()

	select {
	case res := <-ch:
		return res.item, res.err
	case <-ctx.Done():
		s.mu.Lock()
		s.waiters.Remove(elem)
		s.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Put returns an item to the pool. If reuse is false, the item is faded,
// or Release() reports failure, the item is destroyed instead of recycled
// (spec.md §4.2 Put).
func (s *Stock) Put(item Item, reuse bool) {
	s.mu.Lock()
	s.mayClear = false
	s.busy--

	if !reuse || item.Faded() || !item.Release() {
		item.Destroy()
		s.mu.Unlock()
		s.serveWaiterByCreating()
		return
	}

	if elem := s.waiters.Front(); elem != nil {
		s.waiters.Remove(elem)
		ch := elem.Value.(chan waitResult)
		s.busy++
		s.mu.Unlock()
		ch <- waitResult{item: item}
		return
	}

	s.idle = append([]Item{item}, s.idle...)
	needsCleanup := len(s.idle) > s.maxIdle
	s.mu.Unlock()

	if needsCleanup {
		s.scheduleCleanup()
	}
}

// serveWaiterByCreating starts a new creation on behalf of the
// front-of-queue waiter if the limit now permits it, after an item was
// destroyed rather than recycled. Runs the factory call without holding
// the lock, matching Get's shape.
func (s *Stock) serveWaiterByCreating() {
	s.mu.Lock()
	elem := s.waiters.Front()
	if elem == nil || (s.limit > 0 && s.busy+s.creating >= s.limit) {
		s.mu.Unlock()
		s.checkEmpty()
		return
	}
	s.waiters.Remove(elem)
	ch := elem.Value.(chan waitResult)
	s.creating++
	s.mu.Unlock()

	item, err := s.factory.Create(context.Background())

	s.mu.Lock()
	s.creating--
	if err == nil {
		s.busy++
	}
	s.mu.Unlock()

	ch <- waitResult{item: item, err: err}
	if err != nil {
		s.checkEmpty()
	}
}

// scheduleCleanup destroys roughly one third of the idle items over
// maxIdle, rescheduling itself until idle <= maxIdle (spec.md §4.2 Cleanup
// tick).
func (s *Stock) scheduleCleanup() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.cleanupTimer != nil {
		s.mu.Unlock()
		return // already scheduled
	}
	s.cleanupTimer = time.AfterFunc(s.cleanupInterval, s.onCleanupTick)
	s.mu.Unlock()
}

func (s *Stock) onCleanupTick() {
	s.mu.Lock()
	s.cleanupTimer = nil

	excess := len(s.idle) - s.maxIdle
	if excess > 0 {
		n := int(math.Ceil(float64(excess) / 3))
		if n > len(s.idle) {
			n = len(s.idle)
		}
		for i := 0; i < n; i++ {
			s.idle[i].Destroy()
		}
		s.idle = s.idle[n:]
	}

	stillOver := len(s.idle) > s.maxIdle
	s.mu.Unlock()

	if stillOver {
		s.scheduleCleanup()
	} else {
		s.checkEmpty()
	}
}

// onClearTick destroys all idle items if no Get/Put activity occurred
// since the previous tick, and always reschedules itself (spec.md §4.2
// Clear tick).
func (s *Stock) onClearTick() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.mayClear {
		for _, it := range s.idle {
			it.Destroy()
		}
		s.idle = nil
	}
	s.mayClear = true
	s.clearTimer = time.AfterFunc(s.clearInterval, s.onClearTick)
	s.mu.Unlock()
}

// FadeAll destroys all currently idle items. It does not mark busy items
// faded: a busy item is destroyed on its next Put only if its own Faded()
// reports true. Future creations are unaffected (spec.md §4.2 Fade all).
func (s *Stock) FadeAll() {
	s.mu.Lock()
	for _, it := range s.idle {
		it.Destroy()
	}
	s.idle = nil
	s.mu.Unlock()
}

// checkEmpty invokes the empty-notify callback if idle, busy, and creating
// are all zero (spec.md §4.2 Empty notify).
func (s *Stock) checkEmpty() {
	s.mu.Lock()
	empty := len(s.idle) == 0 && s.busy == 0 && s.creating == 0
	onEmpty := s.onEmpty
	s.mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty()
	}
}

// Stats returns a point-in-time snapshot of the pool's lists.
func (s *Stock) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Idle:     len(s.idle),
		Busy:     s.busy,
		Creating: s.creating,
		Waiting:  s.waiters.Len(),
	}
}

// Close stops the pool's background timers and destroys all idle items.
// Busy items already checked out are unaffected.
func (s *Stock) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cleanupTimer != nil {
		s.cleanupTimer.Stop()
	}
	if s.clearTimer != nil {
		s.clearTimer.Stop()
	}
	for _, it := range s.idle {
		it.Destroy()
	}
	s.idle = nil
	s.mu.Unlock()
}
