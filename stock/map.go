package stock

import "sync"

// Map owns a collection of Stocks keyed by name, creating one on first
// use and retiring it once it goes empty (spec.md §4.2 StockMap).
type Map struct {
	mu      sync.Mutex
	stocks  map[string]*Stock
	limit   int
	maxIdle int
	newFor  func(name string) Factory
	opts    []Option
}

// NewMap constructs a StockMap. newFor builds the Factory for a given
// stock name (e.g. "dial tcp://10.0.0.1:8080"), letting one Map serve
// many distinct backend targets.
func NewMap(limit, maxIdle int, newFor func(name string) Factory, opts ...Option) *Map {
	return &Map{
		stocks:  make(map[string]*Stock),
		limit:   limit,
		maxIdle: maxIdle,
		newFor:  newFor,
		opts:    opts,
	}
}

// Get returns (creating if needed) the Stock for name.
func (m *Map) Get(name string) *Stock {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stocks[name]; ok {
		return s
	}

	opts := append([]Option{}, m.opts...)
	opts = append(opts, WithEmptyNotify(func() { m.retire(name) }))
	s := New(name, m.newFor(name), m.limit, m.maxIdle, opts...)
	m.stocks[name] = s
	return s
}

func (m *Map) retire(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stocks[name]; ok {
		s.Close()
		delete(m.stocks, name)
	}
}

// Len returns the number of currently live (non-empty) stocks.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stocks)
}

// Close closes every live stock.
func (m *Map) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, s := range m.stocks {
		s.Close()
		delete(m.stocks, name)
	}
}
