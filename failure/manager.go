// Package failure implements the per-address health state tracker
// (spec.md §4.1): an expiring, severity-ordered set of statuses per
// SocketAddress, shared by every Cluster within a worker.
//
// Grounded on quarry/metrics/collector.go's mutex-guarded counters struct
// and quarry/policy/policy.go's statsRecorder locked/unlocked method
// pairing: one lock per record, explicit Set/Unset mutators, and a
// snapshot-style Get/Check read path.
package failure

import (
	"sync"
	"time"

	"github.com/justapithecus/waystation/types"
)

// Info is one address's expiring failure state. Reference-counted: callers
// obtained via Manager.Make hold a reference, and the record outlives any
// single holder (spec.md §3).
type Info struct {
	mu sync.Mutex

	fadeExpires     time.Time
	protocolExpires time.Time
	connectExpires  time.Time
	protocolCounter uint
	protocolThresh  uint

	monitor bool

	refs int32
}

// Set applies a failure status with the given duration, per spec.md §4.1
// "Semantics of Set(s, d)". MONITOR ignores duration and just sets the flag.
func (i *Info) Set(status types.FailureStatus, now time.Time, d time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch status {
	case types.FailureFade:
		i.fadeExpires = laterOf(i.fadeExpires, now.Add(d))
	case types.FailureProtocol:
		i.protocolExpires = laterOf(i.protocolExpires, now.Add(d))
		i.protocolCounter++
	case types.FailureConnect:
		i.connectExpires = laterOf(i.connectExpires, now.Add(d))
	case types.FailureMonitor:
		i.monitor = true
	}
}

// Unset clears a status, per spec.md §4.1 "Semantics of Unset(s)".
// Unset(OK) is the catch-all that clears everything.
func (i *Info) Unset(status types.FailureStatus) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.unsetLocked(status)
}

func (i *Info) unsetLocked(status types.FailureStatus) {
	switch status {
	case types.FailureOK:
		i.fadeExpires = time.Time{}
		i.protocolExpires = time.Time{}
		i.protocolCounter = 0
		i.connectExpires = time.Time{}
		i.monitor = false
	case types.FailureFade:
		i.fadeExpires = alreadyExpired
	case types.FailureConnect:
		i.connectExpires = alreadyExpired
	case types.FailureProtocol:
		i.protocolExpires = time.Time{}
		i.protocolCounter = 0
	case types.FailureMonitor:
		i.monitor = false
	}
}

// alreadyExpired is a fixed point in the past used so Unset(FADE)/Unset(CONNECT)
// can simply overwrite the expiry rather than branch on now.
var alreadyExpired = time.Unix(0, 0)

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// Get returns the most severe active status at now, per spec.md §4.1
// "Check ordering": monitor, then connect, then protocol (counter-gated),
// then fade, else OK.
func (i *Info) Get(now time.Time) types.FailureStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.getLocked(now, false)
}

func (i *Info) getLocked(now time.Time, allowFade bool) types.FailureStatus {
	if i.monitor {
		return types.FailureMonitor
	}
	if i.connectExpires.After(now) {
		return types.FailureConnect
	}
	if i.protocolExpires.After(now) && i.protocolCounter >= i.protocolThresh {
		return types.FailureProtocol
	}
	if !allowFade && i.fadeExpires.After(now) {
		return types.FailureFade
	}
	return types.FailureOK
}

// Check reports whether the address passes all active statuses. With
// allowFade, an active FADE status is ignored (spec.md §4.1 Check).
func (i *Info) Check(now time.Time, allowFade bool) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.getLocked(now, allowFade) == types.FailureOK
}

// AddRef increments the reference count. Callers obtaining an *Info via
// Manager.Make hold one implicit reference already; AddRef is for holders
// that keep the pointer beyond the call that produced it (e.g. a
// MonitorController bound for its lifetime).
func (i *Info) AddRef() { i.mu.Lock(); i.refs++; i.mu.Unlock() }

// Release decrements the reference count. The Manager does not evict
// records on refs reaching zero today (addresses are assumed long-lived
// for a worker's process lifetime) but the count is tracked so a future
// Zeroconf-churn-driven GC pass has something to consult.
func (i *Info) Release() { i.mu.Lock(); i.refs--; i.mu.Unlock() }

// Manager holds one Info record per known SocketAddress, shared by every
// Cluster in a worker (spec.md §5 "Shared resource policy").
type Manager struct {
	mu                sync.Mutex
	records           map[string]*Info
	protocolThreshold uint
}

// NewManager constructs an empty Manager using the spec's default protocol
// failure threshold (spec.md §9: "must default to 8").
func NewManager() *Manager {
	return NewManagerWithThreshold(types.DefaultProtocolThreshold)
}

// NewManagerWithThreshold constructs a Manager with a non-default protocol
// failure threshold. Exposed for configuration per spec.md §9's note that
// an implementation "is free to expose it as configuration".
func NewManagerWithThreshold(threshold uint) *Manager {
	return &Manager{records: make(map[string]*Info), protocolThreshold: threshold}
}

// Make returns the existing record for addr, creating one on first use.
// The returned pointer is stable for the Manager's lifetime.
func (m *Manager) Make(addr types.SocketAddress) *Info {
	key := addr.SteadyKey()

	m.mu.Lock()
	defer m.mu.Unlock()

	if info, ok := m.records[key]; ok {
		info.AddRef()
		return info
	}
	info := &Info{refs: 1, protocolThresh: m.protocolThreshold}
	m.records[key] = info
	return info
}

// Check is a convenience wrapper around Make(addr).Check(now, allowFade).
func (m *Manager) Check(now time.Time, addr types.SocketAddress, allowFade bool) bool {
	return m.Make(addr).Check(now, allowFade)
}

// Get is a convenience wrapper around Make(addr).Get(now).
func (m *Manager) Get(now time.Time, addr types.SocketAddress) types.FailureStatus {
	return m.Make(addr).Get(now)
}

// Len reports how many addresses the Manager is currently tracking. Test/debug use.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
