// Package zeroconf watches an mDNS/DNS-SD service and reports membership
// changes to a Listener, implementing the discovery half of spec.md §4.6
// ("Discovery callbacks").
//
// Grounded on quarry/runtime/fanout.go's goroutine-per-source fan-out
// pattern (there: fan a single event stream out to several sinks;
// here: fan a single zeroconf.Resolver browse channel out to
// OnNewObject/OnRemoveObject calls), adapted to the grandcat/zeroconf
// ecosystem library since no example repo implements service discovery
// itself.
package zeroconf

import (
	"context"
	"fmt"
	"net/netip"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/justapithecus/waystation/types"
)

// Listener receives membership change notifications. Implemented by
// package cluster's Cluster type.
type Listener interface {
	OnNewObject(key string, addr types.SocketAddress)
	OnRemoveObject(key string)
}

// Explorer browses a single mDNS service/domain pair and forwards add/
// remove events to a Listener for as long as Run is active.
type Explorer struct {
	service  string
	domain   string
	listener Listener

	mu    sync.Mutex
	known map[string]bool // service instance names currently reported present
}

// New constructs an Explorer for the given service (e.g.
// "_waystation._tcp") and domain (e.g. "local."), notifying listener of
// membership changes.
func New(service, domain string, listener Listener) *Explorer {
	return &Explorer{
		service:  service,
		domain:   domain,
		listener: listener,
		known:    make(map[string]bool),
	}
}

// Run browses until ctx is cancelled. Safe to run in its own goroutine;
// returns when browsing stops (ctx done or an unrecoverable resolver
// error).
func (e *Explorer) Run(ctx context.Context) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("zeroconf: create resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(ctx, e.service, e.domain, entries); err != nil {
		return fmt.Errorf("zeroconf: browse %s%s: %w", e.service, e.domain, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			e.handleEntry(entry)
		}
	}
}

func (e *Explorer) handleEntry(entry *zeroconf.ServiceEntry) {
	key := entry.Instance

	removed := len(entry.AddrIPv4) == 0 && len(entry.AddrIPv6) == 0
	e.mu.Lock()
	wasKnown := e.known[key]
	if removed {
		delete(e.known, key)
	} else {
		e.known[key] = true
	}
	e.mu.Unlock()

	if removed {
		if wasKnown {
			e.listener.OnRemoveObject(key)
		}
		return
	}

	var ip netip.Addr
	switch {
	case len(entry.AddrIPv4) > 0:
		ip, _ = netip.AddrFromSlice(entry.AddrIPv4[0].To4())
	case len(entry.AddrIPv6) > 0:
		ip, _ = netip.AddrFromSlice(entry.AddrIPv6[0].To16())
	default:
		return
	}

	addr := types.NewInetAddress(ip, uint16(entry.Port))
	e.listener.OnNewObject(key, addr)
}
