package worker

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/justapithecus/waystation/metrics"
	"github.com/justapithecus/waystation/stock"
	"github.com/justapithecus/waystation/types"
)

// connItem wraps a pooled net.Conn as a stock.Item (spec.md §4.2). Borrow
// and Release always succeed: a dead TCP connection surfaces as a write/
// read error on the next use, which the caller reports as a ConnectError
// rather than something Stock itself can detect cheaply.
type connItem struct {
	conn  net.Conn
	faded bool
}

func (c *connItem) Borrow() bool  { return true }
func (c *connItem) Release() bool { return true }
func (c *connItem) Faded() bool   { return c.faded }
func (c *connItem) Destroy()      { _ = c.conn.Close() }

// connFactory dials fresh connections to one backend address for a Stock.
type connFactory struct {
	addr        types.SocketAddress
	dialTimeout time.Duration
	metrics     *metrics.Collector
}

func (f *connFactory) Create(ctx context.Context) (stock.Item, error) {
	network, address := f.addr.DialArgs()
	dialer := net.Dialer{Timeout: f.dialTimeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	f.metrics.IncStockCreated()
	return &connItem{conn: conn}, nil
}

// connPools lazily creates one stock.Stock per backend address, so the
// pool tracks dynamic Zeroconf membership without a separate teardown
// step: an address that stops being picked simply stops being asked for,
// and its Stock idles out via its own cleanup/clear timers.
//
// Grounded on stock.Map's name-keyed lazy-construction shape
// (quarry-adjacent: stock/map.go), specialized here to a fixed dial
// timeout and limit/maxIdle pulled from the owning cluster's StockConfig.
type connPools struct {
	mu      sync.Mutex
	byAddr  map[string]*stock.Stock
	limit   int
	maxIdle int
	timeout time.Duration
	metrics *metrics.Collector
}

func newConnPools(limit, maxIdle int, dialTimeout time.Duration, collector *metrics.Collector) *connPools {
	return &connPools{
		byAddr:  make(map[string]*stock.Stock),
		limit:   limit,
		maxIdle: maxIdle,
		timeout: dialTimeout,
		metrics: collector,
	}
}

func (p *connPools) stockFor(addr types.SocketAddress) *stock.Stock {
	key := addr.SteadyKey()

	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.byAddr[key]; ok {
		return s
	}
	factory := &connFactory{addr: addr, dialTimeout: p.timeout, metrics: p.metrics}
	s := stock.New(addr.String(), factory, p.limit, p.maxIdle)
	p.byAddr[key] = s
	return s
}

// Get borrows a connection to addr, dialing one if the pool has none idle.
func (p *connPools) Get(ctx context.Context, addr types.SocketAddress) (net.Conn, error) {
	item, err := p.stockFor(addr).Get(ctx)
	if err != nil {
		return nil, err
	}
	return item.(*connItem).conn, nil
}

// Put returns conn to addr's pool. reuse is false whenever the request that
// borrowed it ended in error, so the connection is closed rather than
// recycled in an unknown state.
func (p *connPools) Put(addr types.SocketAddress, conn net.Conn, reuse bool) {
	p.stockFor(addr).Put(&connItem{conn: conn}, reuse)
}

// Close destroys every pool's idle/busy bookkeeping timers.
func (p *connPools) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.byAddr {
		s.Close()
	}
}
