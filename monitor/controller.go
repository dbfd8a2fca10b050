package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/justapithecus/waystation/failure"
	"github.com/justapithecus/waystation/metrics"
	"github.com/justapithecus/waystation/types"
)

// FadeDuration is how long a Fade outcome marks the node faded for
// (spec.md §4.7 "On Fade: FailureInfo.SetFade(now, 5 minutes)").
const FadeDuration = 5 * time.Minute

// Config configures a Controller's timing.
type Config struct {
	// Interval between probes after a completed run.
	Interval time.Duration
	// Timeout bounds a single probe; also passed through to the Prober via
	// context, so a Prober's own internal timeout should be <= this.
	Timeout time.Duration
}

// Controller binds one Prober to one (cluster, node, port) triple's
// failure.Info, running probes on a timer and feeding outcomes back
// (spec.md §4.7 MonitorController).
type Controller struct {
	prober  Prober
	network string
	addr    string
	info    *failure.Info
	cfg     Config
	clock   types.Clock
	metrics *metrics.Collector

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewController constructs a Controller. The returned Controller does not
// start probing until Start is called. collector may be nil (all
// Collector methods are nil-receiver-safe).
func NewController(prober Prober, network, addr string, info *failure.Info, cfg Config, clock types.Clock, collector *metrics.Collector) *Controller {
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &Controller{
		prober:  prober,
		network: network,
		addr:    addr,
		info:    info,
		cfg:     cfg,
		clock:   clock,
		metrics: collector,
	}
}

// Start begins periodic probing, running the first probe immediately.
func (c *Controller) Start(ctx context.Context) {
	c.info.AddRef()
	c.runAndReschedule(ctx)
}

// Stop cancels any pending probe timer and releases the Controller's
// reference on its failure.Info.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	c.info.Release()
}

func (c *Controller) runAndReschedule(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	outcome := c.prober.Probe(probeCtx, c.network, c.addr)
	cancel()

	c.metrics.IncMonitorOutcome(outcome.String())

	now := c.clock.Now()
	switch outcome {
	case OutcomeSuccess:
		c.info.Unset(types.FailureMonitor)
		c.info.Unset(types.FailureFade)
	case OutcomeFade:
		c.info.Set(types.FailureFade, now, FadeDuration)
	case OutcomeTimeout, OutcomeError:
		c.info.Set(types.FailureMonitor, now, 0)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.timer = time.AfterFunc(c.cfg.Interval, func() { c.runAndReschedule(ctx) })
}
