// Package worker composes one running waystation instance: the clusters
// configured in a config.Config, their connection pools, monitors, and
// (optional) Zeroconf explorers, plus the HTTP entrypoint that computes a
// request's sticky hash and drives dispatch.RunCluster through to a
// forward.Forwarder (spec.md §2 "System Overview" data flow, end to end).
//
// Grounded on quarry/runtime/executor.go's ExecutorManager: a single
// struct owning every live subsystem (policy, sink, lifecycle state) with
// one constructor that wires them together and one Close/Stop that tears
// them back down. Worker plays the same composition-root role for the
// proxy's request path instead of quarry's job-execution path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/waystation/balancer"
	"github.com/justapithecus/waystation/cluster"
	"github.com/justapithecus/waystation/config"
	"github.com/justapithecus/waystation/controlproto"
	"github.com/justapithecus/waystation/dispatch"
	"github.com/justapithecus/waystation/failure"
	"github.com/justapithecus/waystation/forward"
	"github.com/justapithecus/waystation/log"
	"github.com/justapithecus/waystation/metrics"
	"github.com/justapithecus/waystation/monitor"
	"github.com/justapithecus/waystation/stickycache"
	"github.com/justapithecus/waystation/types"
	"github.com/justapithecus/waystation/zeroconf"
)

// Worker is one running waystation instance: every configured cluster,
// its connection pool, and the shared subsystems (FailureManager,
// BalancerMap, StickyCache) they all draw on.
type Worker struct {
	cfg     *config.Config
	logger  *log.Logger
	metrics *metrics.Collector

	manager     *failure.Manager
	balancers   *balancer.Map
	sticky      stickycache.Store
	stickyRedis *stickycache.RedisReplicator

	clusters map[string]*cluster.Cluster
	pools    map[string]*connPools

	forwarders map[types.NodeProtocol]forward.Forwarder

	mu          sync.Mutex
	controllers []*monitor.Controller
	listeners   []*monitoredListener
	explorers   []*zeroconf.Explorer

	controlConn *net.UDPConn
}

// New validates cfg and constructs one Cluster, connection pool, and set
// of monitors per configured cluster. It does not yet start Zeroconf
// discovery or the control-plane listener; call Run for that.
func New(cfg *config.Config, logger *log.Logger) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Worker{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics.NewCollector("waystation"),
		manager:   failure.NewManager(),
		balancers: balancer.New(),
		clusters:  make(map[string]*cluster.Cluster),
		pools:     make(map[string]*connPools),
	}
	w.forwarders = map[types.NodeProtocol]forward.Forwarder{
		types.NodeHTTP:   forward.NewHTTPForwarder(),
		types.NodeStatic: forward.NewStaticFileForwarder(),
	}

	if cfg.StickyCache.RedisURL != "" {
		replicator, err := stickycache.NewRedisReplicator(stickycache.RedisConfig{
			URL:       cfg.StickyCache.RedisURL,
			KeyPrefix: cfg.StickyCache.KeyPrefix,
			Timeout:   cfg.StickyCache.Timeout,
			Retries:   cfg.StickyCache.Retries,
			TTL:       cfg.StickyCache.TTL,
		}, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("worker: sticky cache: %w", err)
		}
		w.stickyRedis = replicator
		w.sticky = replicator
	} else {
		w.sticky = stickycache.New()
	}

	for _, cc := range cfg.ClusterConfigs() {
		c, err := cluster.New(cc, w.manager, w.balancers, w.sticky)
		if err != nil {
			return nil, fmt.Errorf("worker: cluster %q: %w", cc.Name, err)
		}
		w.clusters[cc.Name] = c

		stockCfg := cfg.Clusters[cc.Name].StockOrDefault()
		w.pools[cc.Name] = newConnPools(stockCfg.Limit, stockCfg.MaxIdle, forward.DefaultDialTimeout, w.metrics)

		if cc.Zeroconf != nil {
			listener := newMonitoredListener(c, w.manager, cc.Monitor, w.metrics)
			w.listeners = append(w.listeners, listener)
			w.explorers = append(w.explorers, zeroconf.New(cc.Zeroconf.ServiceType, cc.Zeroconf.Domain, listener))
		} else if cc.Monitor != nil {
			addrs := c.Wrapper().List.All()
			w.controllers = append(w.controllers, startStaticMonitors(context.Background(), addrs, w.manager, cc.Monitor, w.metrics)...)
		}
	}

	return w, nil
}

// Metrics returns the worker's metrics collector, for a CLI "stats" command.
func (w *Worker) Metrics() *metrics.Collector { return w.metrics }

// Run starts Zeroconf discovery (one goroutine per configured Zeroconf
// cluster) and the UDP control-plane listener (if configured), blocking
// until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for i, explorer := range w.explorers {
		wg.Add(1)
		go func(e *zeroconf.Explorer, idx int) {
			defer wg.Done()
			if err := e.Run(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("zeroconf explorer stopped", map[string]any{"index": idx, "error": err.Error()})
			}
		}(explorer, i)
	}

	if w.cfg.Control.Listen != "" {
		if err := w.startControlListener(ctx); err != nil {
			return fmt.Errorf("worker: control listener: %w", err)
		}
	}

	if w.cfg.Debug.Listen != "" {
		w.startDebugServer(ctx)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

// startDebugServer binds the read-only HTTP metrics/inspection endpoint
// the `stats` and `inspect` CLI commands query, shutting down when ctx is
// cancelled. Bind failures are logged, not fatal: the debug endpoint is a
// convenience, not load-bearing for request dispatch.
func (w *Worker) startDebugServer(ctx context.Context) {
	srv := &http.Server{Addr: w.cfg.Debug.Listen, Handler: w.DebugHandler()}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			w.logger.Warn("debug server stopped", map[string]any{"error": err.Error()})
		}
	}()
}

// startControlListener binds the UDP control-plane socket (spec.md §6.1)
// and services datagrams in its own goroutine until ctx is cancelled.
func (w *Worker) startControlListener(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", w.cfg.Control.Listen)
	if err != nil {
		return fmt.Errorf("invalid control listen address %q: %w", w.cfg.Control.Listen, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen udp %q: %w", w.cfg.Control.Listen, err)
	}
	w.controlConn = conn

	handler := controlproto.NewHandler(w.manager)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		buf := make([]byte, 64*1024)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			cmds, err := controlproto.ParseDatagram(buf[:n])
			if err != nil {
				w.logger.Warn("control datagram rejected", map[string]any{"error": err.Error()})
				continue
			}
			for _, res := range handler.Dispatch(clockNow(), cmds) {
				if res.Err != nil {
					w.logger.Warn("control command failed", map[string]any{"op": res.Op.String(), "error": res.Err.Error()})
				}
			}
		}
	}()
	return nil
}

// Close stops every monitor, Zeroconf-driven monitor, and connection pool,
// and closes the control-plane socket.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ctrl := range w.controllers {
		ctrl.Stop()
	}
	for _, l := range w.listeners {
		l.stopAll()
	}
	for _, p := range w.pools {
		p.Close()
	}
	if w.controlConn != nil {
		_ = w.controlConn.Close()
	}
	if w.stickyRedis != nil {
		if err := w.stickyRedis.Close(); err != nil {
			w.logger.Warn("sticky cache redis client close failed", map[string]any{"error": err.Error()})
		}
	}
}

// ServeHTTP implements http.Handler: resolve the target cluster, compute
// the sticky hash per its configured StickyMode, dispatch to a healthy
// member, and hand off to the protocol's Forwarder (spec.md §2 data flow;
// §4.8 sticky hash sources; §7 user-visible failure behavior).
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	c, cc, err := w.resolveCluster(r)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}

	hash := stickyHash(cc.Sticky, r)

	pool := w.pools[cc.Name]
	result, err := dispatch.RunCluster(r.Context(), c, uint32(hash), func(ctx context.Context, addr types.SocketAddress) error {
		if cc.Protocol != types.NodeHTTP {
			return nil // non-HTTP protocols dial inside their own Forwarder
		}
		conn, dialErr := pool.Get(ctx, addr)
		if dialErr != nil {
			return dialErr
		}
		r = r.WithContext(withPooledConn(ctx, conn))
		return nil
	}, w.metrics)

	if err != nil {
		writeDispatchError(rw, err)
		return
	}

	target := forward.Target{Protocol: cc.Protocol, Address: result.Address}
	if cc.Protocol == types.NodeHTTP {
		target.Conn = connFromContext(r.Context())
	}

	forwarder, ok := w.forwarders[cc.Protocol]
	if !ok {
		http.Error(rw, fmt.Sprintf("no forwarder registered for protocol %q", cc.Protocol), http.StatusNotImplemented)
		return
	}

	sw := &statusWriter{ResponseWriter: rw}
	reuse := false
	if err := forwarder.Forward(r.Context(), target, r, sw); err != nil {
		w.logger.Warn("forward failed", map[string]any{"cluster": cc.Name, "address": result.Address.String(), "error": err.Error()})
		if !headersSent(sw) {
			http.Error(rw, "bad gateway", http.StatusBadGateway)
		}
	} else {
		reuse = true
	}
	if cc.Protocol == types.NodeHTTP && target.Conn != nil {
		pool.Put(result.Address, target.Conn, reuse)
	}
}

// resolveCluster matches the inbound request's Host header against a
// configured cluster name, falling back to the sole configured cluster
// when only one exists (documented design decision, DESIGN.md "Cluster
// selection for an inbound HTTP request").
func (w *Worker) resolveCluster(r *http.Request) (*cluster.Cluster, types.ClusterConfig, error) {
	host := strings.ToLower(r.Host)
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}

	if c, ok := w.clusters[host]; ok {
		cc, _ := w.cfg.Cluster(host)
		return c, cc, nil
	}

	if len(w.clusters) == 1 {
		for name, c := range w.clusters {
			cc, _ := w.cfg.Cluster(name)
			return c, cc, nil
		}
	}

	return nil, types.ClusterConfig{}, fmt.Errorf("no cluster configured for host %q", r.Host)
}

// writeDispatchError translates a dispatch.RunCluster error into the
// user-visible status codes spec.md §7 specifies: an empty Zeroconf
// cluster is 503 with a fixed message; any other exhausted-retries error
// is 503 carrying the last error's message.
func writeDispatchError(rw http.ResponseWriter, err error) {
	var clusterEmpty *types.ClusterEmptyError
	if errors.As(err, &clusterEmpty) {
		http.Error(rw, "Zeroconf cluster is empty", http.StatusServiceUnavailable)
		return
	}
	http.Error(rw, err.Error(), http.StatusServiceUnavailable)
}

// clockNow is time.Now, named so control-plane datagram handling reads as
// operating on "now" the same way monitor.Controller does.
func clockNow() time.Time { return time.Now() }
