// Package dispatch implements the per-attempt retry wrapper around a pick
// (spec.md §4.5 BalancerRequest): pick a member, try it, and on failure
// mark it down and retry against a fresh pick, bounded by a retry budget
// sized to the address list.
//
// Grounded on quarry/adapter/webhook/webhook.go's retry-with-backoff
// dispatch loop (the closest teacher analog to "try, mark failure, retry
// bounded number of times") generalized from a fixed retry count to the
// spec's list-size-derived budget, and re-expressed per spec.md §5 as a
// blocking context-aware call instead of an on_done/on_error callback pair.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/waystation/addrlist"
	"github.com/justapithecus/waystation/failure"
	"github.com/justapithecus/waystation/metrics"
	"github.com/justapithecus/waystation/selector"
	"github.com/justapithecus/waystation/types"
)

// RetryBudget returns the number of retries (attempts beyond the first)
// allowed for an address list of the given size, per spec.md §4.5's table
// {0:0, 1:0, 2:1, 3:2, >=4:3}.
func RetryBudget(size int) int {
	switch {
	case size <= 1:
		return 0
	case size == 2:
		return 1
	case size == 3:
		return 2
	default:
		return 3
	}
}

// AttemptFunc performs one connection attempt against addr. A non-nil
// error is treated as a CONNECT failure against addr's FailureInfo.
type AttemptFunc func(ctx context.Context, addr types.SocketAddress) error

// Result is what a successful dispatch returns to the caller: which
// address was ultimately used.
type Result struct {
	Address types.SocketAddress
}

// Run executes the BalancerRequest retry loop: picks a member via
// selector.Pick, invokes attempt, and on failure marks the member's
// FailureInfo CONNECT-bad and retries against a fresh pick, up to
// RetryBudget(list.Size()) additional attempts (spec.md §4.5).
//
// now is sampled once per attempt, not once for the whole call, so a
// long-lived retry loop observes wall-clock-accurate failure expiries.
func Run(ctx context.Context, list addrlist.Wrapper, rr *selector.RoundRobinBalancer, mode types.StickyMode, stickyHash uint32, attempt AttemptFunc) (Result, error) {
	retries := RetryBudget(list.Size())

	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		now := time.Now()
		idx := selector.Pick(list, rr, now, stickyHash, mode)
		addr := list.At(idx)
		info := list.Manager.Make(addr)

		err := attempt(ctx, addr)
		if err == nil {
			info.Unset(types.FailureConnect)
			return Result{Address: addr}, nil
		}

		lastErr = err
		info.Set(types.FailureConnect, now, types.DefaultConnectFailureDuration)

		if retries <= 0 {
			return Result{}, fmt.Errorf("dispatch: exhausted retries, last error: %w", lastErr)
		}
		retries--
	}
}

// ClusterPicker is the subset of *cluster.Cluster RunCluster needs. It is
// declared here (rather than importing package cluster) because Cluster
// already performs the mode-appropriate selector dispatch internally for
// both static and Zeroconf clusters — RunCluster only needs to pick, mark,
// and retry, the same BalancerRequest shape Run implements for a raw
// address list.
type ClusterPicker interface {
	Pick(now time.Time, stickyHash uint32) (types.SocketAddress, error)
	Manager() *failure.Manager
	Size() int
}

// RunCluster is Run generalized to a ClusterPicker instead of a raw
// addrlist.Wrapper, so the same retry-budget-and-mark-bad loop works
// uniformly whether the cluster is statically configured or
// Zeroconf-discovered (spec.md §4.5). collector may be nil.
func RunCluster(ctx context.Context, c ClusterPicker, stickyHash uint32, attempt AttemptFunc, collector *metrics.Collector) (Result, error) {
	retries := RetryBudget(c.Size())

	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		now := time.Now()
		addr, err := c.Pick(now, stickyHash)
		if err != nil {
			var clusterEmpty *types.ClusterEmptyError
			if errors.As(err, &clusterEmpty) {
				collector.IncClusterEmpty()
			}
			return Result{}, err
		}
		info := c.Manager().Make(addr)

		err = attempt(ctx, addr)
		if err == nil {
			info.Unset(types.FailureConnect)
			collector.IncPick()
			return Result{Address: addr}, nil
		}
		lastErr = err
		info.Set(types.FailureConnect, now, types.DefaultConnectFailureDuration)
		collector.IncFailureSet("connect")

		if retries <= 0 {
			collector.IncRetriesExhausted()
			return Result{}, fmt.Errorf("dispatch: exhausted retries, last error: %w", lastErr)
		}
		retries--
	}
}
