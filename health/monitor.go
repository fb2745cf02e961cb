package health

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/chatguard/observe"
)

// DefaultInterval is the cadence of periodic probes.
const DefaultInterval = 30 * time.Second

// MonitorState is the lifecycle state of a Monitor.
type MonitorState int

const (
	// MonitorIdle means no periodic probing is active.
	MonitorIdle MonitorState = iota
	// MonitorMonitoring means the periodic probe loop is running.
	MonitorMonitoring
)

// String returns the string representation of the state.
func (s MonitorState) String() string {
	switch s {
	case MonitorIdle:
		return "idle"
	case MonitorMonitoring:
		return "monitoring"
	default:
		return "unknown"
	}
}

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// Endpoint is the URL probed on every tick.
	Endpoint string

	// Interval between periodic probes. Default: 30s.
	Interval time.Duration

	// Timeout bounds each probe. Default: 10s.
	Timeout time.Duration

	// Prober performs the request. Default: HTTPProber on http.DefaultClient.
	Prober Prober

	Logger  observe.Logger
	Metrics observe.Metrics
	Tracer  observe.Tracer
}

// Monitor probes an endpoint on a fixed cadence and keeps a bounded history.
type Monitor struct {
	cfg     MonitorConfig
	history *History
	flight  singleflight.Group

	mu      sync.Mutex
	state   MonitorState
	healthy bool
	cancel  context.CancelFunc
	done    chan struct{}
	loopCtx context.Context
}

// NewMonitor creates an idle monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Prober == nil {
		cfg.Prober = NewHTTPProber(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NoopMetrics()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observe.NoopTracer()
	}
	cfg.Logger = cfg.Logger.With(observe.Field{Key: "component", Value: "health"})

	return &Monitor{
		cfg:     cfg,
		history: NewHistory(),
	}
}

// StartPeriodicCheck performs one non-silent probe and then probes silently
// every Interval until Stop is called or ctx is done. If the monitor is
// already running it returns the latest result without probing.
func (m *Monitor) StartPeriodicCheck(ctx context.Context) ProbeResult {
	m.mu.Lock()
	if m.state == MonitorMonitoring {
		m.mu.Unlock()
		latest, _ := m.history.Latest()
		return latest
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.state = MonitorMonitoring
	m.cancel = cancel
	m.done = done
	m.loopCtx = loopCtx
	m.mu.Unlock()

	m.cfg.Logger.Info(ctx, "health monitoring started",
		observe.Field{Key: "endpoint", Value: m.cfg.Endpoint},
		observe.Field{Key: "interval", Value: m.cfg.Interval},
	)

	first := m.PerformHealthCheck(ctx, false)
	go m.loop(loopCtx, done)
	return first
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer m.finish(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			m.PerformHealthCheck(ctx, true)
		}
	}
}

// finish returns the monitor to Idle when the loop owning done exits on its
// own, e.g. because the context passed to StartPeriodicCheck ended.
func (m *Monitor) finish(done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != done {
		return
	}
	m.cancel()
	m.state = MonitorIdle
	m.cancel = nil
	m.done = nil
	m.loopCtx = nil
}

// Stop ends periodic probing and waits for the loop to exit. The monitor
// returns to Idle and may be started again.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.state != MonitorMonitoring {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.state = MonitorIdle
	m.cancel = nil
	m.done = nil
	m.loopCtx = nil
	m.mu.Unlock()

	cancel()
	<-done
}

// PerformHealthCheck probes the endpoint once and records the result.
// Concurrent calls share a single in-flight probe. When not silent, a
// failure is classified and logged with remediation hints.
func (m *Monitor) PerformHealthCheck(ctx context.Context, silent bool) ProbeResult {
	v, _, _ := m.flight.Do("probe", func() (any, error) {
		shared, release := m.sharedContext(ctx)
		defer release()
		return m.probe(shared), nil
	})
	result := v.(ProbeResult)

	switch {
	case result.Succeeded && !silent:
		m.cfg.Logger.Info(ctx, "backend reachable",
			observe.Field{Key: "latency_ms", Value: result.LatencyMs},
		)
	case result.Succeeded:
		m.cfg.Logger.Debug(ctx, "backend reachable",
			observe.Field{Key: "latency_ms", Value: result.LatencyMs},
		)
	case !silent:
		hints := Classify(result.ErrorMessage)
		messages := make([]string, len(hints))
		for i, h := range hints {
			messages[i] = h.Message
		}
		m.cfg.Logger.Warn(ctx, "backend unreachable",
			observe.Field{Key: "url", Value: result.URL},
			observe.Field{Key: "error", Value: result.ErrorMessage},
			observe.Field{Key: "categories", Value: Categories(hints)},
			observe.Field{Key: "hints", Value: messages},
		)
	default:
		m.cfg.Logger.Debug(ctx, "backend unreachable",
			observe.Field{Key: "error", Value: result.ErrorMessage},
		)
	}
	return result
}

// sharedContext returns the context a shared check runs on. It never ends with
// the caller that happened to start the check: while monitoring it follows the
// loop, so Stop still interrupts it, and otherwise only the prober's timeout
// bounds it.
func (m *Monitor) sharedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	loopCtx := m.loopCtx
	m.mu.Unlock()
	if loopCtx == nil {
		return shared, cancel
	}
	stop := context.AfterFunc(loopCtx, cancel)
	return shared, func() {
		stop()
		cancel()
	}
}

func (m *Monitor) probe(ctx context.Context) ProbeResult {
	ctx, span := m.cfg.Tracer.StartSpan(ctx, "health.probe",
		attribute.String("probe.url", m.cfg.Endpoint),
	)

	result := m.history.Add(m.cfg.Prober.Probe(ctx, m.cfg.Endpoint, m.cfg.Timeout))

	m.mu.Lock()
	m.healthy = result.Succeeded
	m.mu.Unlock()

	m.cfg.Metrics.RecordProbe(ctx, result.URL, result.Succeeded,
		time.Duration(result.LatencyMs)*time.Millisecond)
	m.cfg.Tracer.EndSpan(span, result.Err())
	return result
}

// Report derives the current report. It does not modify the history.
func (m *Monitor) Report() Report {
	return ComputeReport(m.history.Snapshot())
}

// History returns the recorded probes, newest first.
func (m *Monitor) History() []ProbeResult {
	return m.history.Snapshot()
}

// IsHealthy reports whether the latest probe succeeded.
func (m *Monitor) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

// State returns the lifecycle state.
func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Check returns nil when the latest probe succeeded. It never probes.
func (m *Monitor) Check(context.Context) error {
	latest, ok := m.history.Latest()
	if !ok {
		return ErrNoProbes
	}
	return latest.Err()
}
