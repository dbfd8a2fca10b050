// Package selector implements the pure selection primitives over an
// address list: PickFailover, PickModulo, RoundRobinBalancer, and the
// top-level sticky-mode dispatch (spec.md §4.3).
//
// Directly grounded on quarry/proxy/selector.go's selectRoundRobin/
// selectRandom/selectSticky methods: the mutex-guarded-state-struct shape
// (poolState -> RoundRobinBalancer) is kept, and the 3-strategy
// proxy-rotation semantics there are replaced with the spec's sticky-mode
// dispatch semantics.
package selector

import (
	"time"

	"github.com/justapithecus/waystation/types"
)

// List is the interface the selector primitives need: a size, and a
// health check per member index (allowFade mirrors FailureManager.Check's
// parameter of the same name). Selectors never parse requests or know
// about SocketAddress; they operate purely on indices.
type List interface {
	Size() int
	Check(now time.Time, idx int, allowFade bool) bool
}

// PickFailover returns the first member that Check(now, allowFade=true)
// reports good. If none are good, it returns index 0 as a last resort
// (spec.md §4.3 PickFailover).
func PickFailover(list List, now time.Time) int {
	n := list.Size()
	for i := 0; i < n; i++ {
		if list.Check(now, i, true) {
			return i
		}
	}
	return 0
}

// PickModulo starts at h mod n and linearly probes forward (wrapping),
// allowing fade on the first (primary) probe but not on subsequent ones:
// the primary sticky target is preferred even while fading, but a
// degraded primary should prefer a non-fading alternate over another
// fading one (spec.md §4.3 PickModulo rationale). If every probe fails,
// it returns the originally selected index.
func PickModulo(list List, now time.Time, h uint32) int {
	n := list.Size()
	start := int(h % uint32(n))

	if list.Check(now, start, true) {
		return start
	}
	for step := 1; step < n; step++ {
		idx := (start + step) % n
		if list.Check(now, idx, false) {
			return idx
		}
	}
	return start
}

// RoundRobinBalancer maintains a persistent cursor over a list so
// round-robin rotates across calls instead of resetting every request
// (spec.md §4.4 rationale). Not safe for concurrent use without external
// locking — callers (BalancerMap, Cluster) serialize access per the
// single-event-loop-per-worker model (spec.md §5).
type RoundRobinBalancer struct {
	next uint
}

// Get picks list[next] and, if that pick is not Check-good, keeps walking
// up to a full revolution, returning the first good member or the
// starting pick if none are good. The cursor always advances to just past
// whichever index is actually returned, so the next call resumes after
// it rather than re-probing the same skipped-to member
// (spec.md §4.3 RoundRobinBalancer.Get).
func (b *RoundRobinBalancer) Get(list List, now time.Time, allowFade bool) int {
	n := uint(list.Size())
	if n == 0 {
		return 0
	}
	if b.next >= n {
		b.next = 0
	}

	start := b.next

	if list.Check(now, int(start), allowFade) {
		b.next = (start + 1) % n
		return int(start)
	}
	for step := uint(1); step < n; step++ {
		idx := (start + step) % n
		if list.Check(now, int(idx), allowFade) {
			b.next = (idx + 1) % n
			return int(idx)
		}
	}
	b.next = (start + 1) % n
	return int(start)
}

// Pick is the top-level sticky-mode dispatch (spec.md §4.3 Pick):
//
//   - list.Size() == 1                 -> 0
//   - StickyNone                       -> round-robin (allowFade=true)
//   - StickyFailover                   -> PickFailover
//   - a modulo-using mode with h != 0  -> PickModulo
//   - otherwise                        -> round-robin (allowFade = mode == StickyNone)
func Pick(list List, rr *RoundRobinBalancer, now time.Time, h uint32, mode types.StickyMode) int {
	if list.Size() == 1 {
		return 0
	}
	switch {
	case mode == types.StickyNone:
		return rr.Get(list, now, true)
	case mode == types.StickyFailover:
		return PickFailover(list, now)
	case mode.UsesModulo() && h != 0:
		return PickModulo(list, now, h)
	default:
		return rr.Get(list, now, mode == types.StickyNone)
	}
}
