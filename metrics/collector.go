// Package metrics provides process-wide counters for one worker: picks,
// failure-status transitions, pool activity, and monitor outcomes
// (SPEC_FULL.md §2).
//
// The Collector accumulates counters for the lifetime of a worker
// process. It is a leaf package with no internal dependencies so that
// failure, stock, and monitor can all report into it without an import
// cycle.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters. Returned
// by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Picks
	PicksTotal    int64
	PicksFailover int64 // picks that fell back to the last-resort address

	// Failure manager transitions
	FailuresFade     int64
	FailuresProtocol int64
	FailuresConnect  int64
	FailuresMonitor  int64
	ClearedOK        int64

	// Stock / connection pool
	StockCreated   int64
	StockReused    int64
	StockDestroyed int64
	StockWaited    int64 // Get calls that had to park on a waiter

	// Monitor probes
	MonitorSuccess int64
	MonitorFade    int64
	MonitorTimeout int64
	MonitorError   int64

	// Dispatch
	RetriesExhausted int64
	ClusterEmpty     int64

	// Dimensions (informational, set at construction)
	Worker string
}

// Collector accumulates metrics for one worker process. Thread-safe via
// sync.Mutex. All increment methods are nil-receiver safe so a nil
// *Collector (metrics disabled) can be threaded through call sites
// unconditionally.
type Collector struct {
	mu sync.Mutex

	picksTotal    int64
	picksFailover int64

	failuresFade     int64
	failuresProtocol int64
	failuresConnect  int64
	failuresMonitor  int64
	clearedOK        int64

	stockCreated   int64
	stockReused    int64
	stockDestroyed int64
	stockWaited    int64

	monitorSuccess int64
	monitorFade    int64
	monitorTimeout int64
	monitorError   int64

	retriesExhausted int64
	clusterEmpty     int64

	worker string
}

// NewCollector creates a Collector labeled with the worker's identity
// (e.g. "worker-0"), used only as an informational dimension on Snapshot.
func NewCollector(worker string) *Collector {
	return &Collector{worker: worker}
}

// --- Picks ---

// IncPick records a successful Pick call.
func (c *Collector) IncPick() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.picksTotal++
	c.mu.Unlock()
}

// IncPickFailover records a PickFailover call that had to fall back to
// the last-resort address because no member passed Check.
func (c *Collector) IncPickFailover() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.picksTotal++
	c.picksFailover++
	c.mu.Unlock()
}

// --- Failure manager ---

// IncFailureSet records a FailureInfo.Set call for the given status:
// "fade", "protocol", "connect", or "monitor".
func (c *Collector) IncFailureSet(status string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	switch status {
	case "fade":
		c.failuresFade++
	case "protocol":
		c.failuresProtocol++
	case "connect":
		c.failuresConnect++
	case "monitor":
		c.failuresMonitor++
	}
	c.mu.Unlock()
}

// IncClearedOK records an Unset(OK) call clearing all statuses.
func (c *Collector) IncClearedOK() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.clearedOK++
	c.mu.Unlock()
}

// --- Stock ---

// IncStockCreated records a successful item creation.
func (c *Collector) IncStockCreated() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stockCreated++
	c.mu.Unlock()
}

// IncStockReused records an idle item handed back out via Get.
func (c *Collector) IncStockReused() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stockReused++
	c.mu.Unlock()
}

// IncStockDestroyed records an item destroyed (put-destroy, cleanup
// tick, clear tick, or fade-all).
func (c *Collector) IncStockDestroyed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stockDestroyed++
	c.mu.Unlock()
}

// IncStockWaited records a Get call parked on the waiter queue because
// the stock's limit was reached.
func (c *Collector) IncStockWaited() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stockWaited++
	c.mu.Unlock()
}

// --- Monitor ---

// IncMonitorOutcome records one terminal monitor probe outcome:
// "success", "fade", "timeout", or "error".
func (c *Collector) IncMonitorOutcome(outcome string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	switch outcome {
	case "success":
		c.monitorSuccess++
	case "fade":
		c.monitorFade++
	case "timeout":
		c.monitorTimeout++
	case "error":
		c.monitorError++
	}
	c.mu.Unlock()
}

// --- Dispatch ---

// IncRetriesExhausted records a BalancerRequest that ran out of retries
// and surfaced its last error to the caller.
func (c *Collector) IncRetriesExhausted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.retriesExhausted++
	c.mu.Unlock()
}

// IncClusterEmpty records a pick against a Zeroconf cluster with no
// active members (surfaced to the client as HTTP 503, spec.md §7).
func (c *Collector) IncClusterEmpty() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.clusterEmpty++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		PicksTotal:    c.picksTotal,
		PicksFailover: c.picksFailover,

		FailuresFade:     c.failuresFade,
		FailuresProtocol: c.failuresProtocol,
		FailuresConnect:  c.failuresConnect,
		FailuresMonitor:  c.failuresMonitor,
		ClearedOK:        c.clearedOK,

		StockCreated:   c.stockCreated,
		StockReused:    c.stockReused,
		StockDestroyed: c.stockDestroyed,
		StockWaited:    c.stockWaited,

		MonitorSuccess: c.monitorSuccess,
		MonitorFade:    c.monitorFade,
		MonitorTimeout: c.monitorTimeout,
		MonitorError:   c.monitorError,

		RetriesExhausted: c.retriesExhausted,
		ClusterEmpty:     c.clusterEmpty,

		Worker: c.worker,
	}
}
