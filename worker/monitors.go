package worker

import (
	"context"
	"sync"

	"github.com/justapithecus/waystation/cluster"
	"github.com/justapithecus/waystation/failure"
	"github.com/justapithecus/waystation/metrics"
	"github.com/justapithecus/waystation/monitor"
	"github.com/justapithecus/waystation/types"
)

// buildProber constructs the monitor.Prober named by cfg.Kind (spec.md
// §4.7). Unrecognized kinds fall back to a connect probe, matching
// types.MonitorConfig.Validate's own default-to-connect-timeout shape.
func buildProber(cfg types.MonitorConfig) monitor.Prober {
	switch cfg.Kind {
	case types.MonitorPing:
		return monitor.NewPingProber(cfg.Timeout)
	case types.MonitorExpect:
		return monitor.NewExpectProber(monitor.ExpectConfig{
			Timeout:    cfg.Timeout,
			Send:       cfg.Send,
			Expect:     []byte(cfg.Expect),
			FadeExpect: []byte(cfg.FadeExpect),
		})
	default:
		return monitor.NewConnectProber(cfg.ConnectTimeout)
	}
}

// startStaticMonitors enlists one Controller per statically configured
// member against the cluster's shared FailureManager (spec.md §4.7).
// Returns the started controllers so the caller can Stop them on shutdown.
func startStaticMonitors(ctx context.Context, addrs []types.SocketAddress, manager *failure.Manager, monCfg *types.MonitorConfig, collector *metrics.Collector) []*monitor.Controller {
	if monCfg == nil {
		return nil
	}

	controllers := make([]*monitor.Controller, 0, len(addrs))
	for _, addr := range addrs {
		network, address := addr.DialArgs()
		info := manager.Make(addr)
		prober := buildProber(*monCfg)
		ctrl := monitor.NewController(prober, network, address, info, monitor.Config{
			Interval: monCfg.Interval,
			Timeout:  monCfg.Timeout,
		}, nil, collector)
		ctrl.Start(ctx)
		controllers = append(controllers, ctrl)
	}
	return controllers
}

// monitoredListener wraps a *cluster.Cluster's zeroconf.Listener contract
// so that every discovered member also gets its own monitor.Controller,
// and a removed member has its Controller stopped — wiring spec.md §4.7
// (Monitor Subsystem) to §4.6's discovery callbacks, since a Zeroconf
// member's lifetime is only known to the Listener that tracks it.
type monitoredListener struct {
	inner   *cluster.Cluster
	manager *failure.Manager
	monCfg  *types.MonitorConfig
	metrics *metrics.Collector

	mu          sync.Mutex
	controllers map[string]*monitor.Controller
}

func newMonitoredListener(inner *cluster.Cluster, manager *failure.Manager, monCfg *types.MonitorConfig, collector *metrics.Collector) *monitoredListener {
	return &monitoredListener{
		inner:       inner,
		manager:     manager,
		monCfg:      monCfg,
		metrics:     collector,
		controllers: make(map[string]*monitor.Controller),
	}
}

// OnNewObject implements zeroconf.Listener.
func (m *monitoredListener) OnNewObject(key string, addr types.SocketAddress) {
	m.inner.OnNewObject(key, addr)
	if m.monCfg == nil {
		return
	}

	network, address := addr.DialArgs()
	info := m.manager.Make(addr)
	prober := buildProber(*m.monCfg)
	ctrl := monitor.NewController(prober, network, address, info, monitor.Config{
		Interval: m.monCfg.Interval,
		Timeout:  m.monCfg.Timeout,
	}, nil, m.metrics)

	m.mu.Lock()
	if old, ok := m.controllers[key]; ok {
		old.Stop()
	}
	m.controllers[key] = ctrl
	m.mu.Unlock()

	ctrl.Start(context.Background())
}

// OnRemoveObject implements zeroconf.Listener.
func (m *monitoredListener) OnRemoveObject(key string) {
	m.inner.OnRemoveObject(key)

	m.mu.Lock()
	ctrl, ok := m.controllers[key]
	delete(m.controllers, key)
	m.mu.Unlock()

	if ok {
		ctrl.Stop()
	}
}

// stopAll stops every currently tracked Controller, for worker shutdown.
func (m *monitoredListener) stopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ctrl := range m.controllers {
		ctrl.Stop()
	}
}
