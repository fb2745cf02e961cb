package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/chatguard/observe"
	"github.com/jonwraymond/chatguard/resilience"
)

// Config configures an Orchestrator.
type Config struct {
	// Feature names the feature being brought up. Required.
	Feature string

	// Stages are evaluated in order on every attempt.
	Stages []Stage

	// Keywords correlate error events with this feature. Default: [Feature].
	Keywords []string

	// MaxAttempts bounds top-level attempts. Default: 3.
	MaxAttempts int

	// RetryDelay separates top-level attempts. Default: 2s.
	RetryDelay time.Duration

	// ControllerRetries is the extra tries given to a Recoverable final
	// stage within one attempt. Default: 3. Negative disables them.
	ControllerRetries int

	// ControllerRetryDelay separates those tries. Default: 1500ms.
	ControllerRetryDelay time.Duration

	// ErrorRetriggerDelay delays the run scheduled by a correlated error
	// event. Default: 1s.
	ErrorRetriggerDelay time.Duration

	// AuthCheckInterval is the cadence of StartAuthWatch. Default: 30s.
	AuthCheckInterval time.Duration

	// StageTimeout bounds a single stage evaluation. Zero means no bound.
	StageTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.ControllerRetries < 0 {
		c.ControllerRetries = 0
	} else if c.ControllerRetries == 0 {
		c.ControllerRetries = 3
	}
	if c.ControllerRetryDelay <= 0 {
		c.ControllerRetryDelay = 1500 * time.Millisecond
	}
	if c.ErrorRetriggerDelay <= 0 {
		c.ErrorRetriggerDelay = time.Second
	}
	if c.AuthCheckInterval <= 0 {
		c.AuthCheckInterval = 30 * time.Second
	}
	if len(c.Keywords) == 0 && c.Feature != "" {
		c.Keywords = []string{c.Feature}
	}
}

// Option configures optional collaborators.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t observe.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithRefresh sets the action run on a visibility event while Ready.
func WithRefresh(fn func(ctx context.Context) error) Option {
	return func(o *Orchestrator) { o.refresh = fn }
}

// WithAuthCheck sets the predicate used by StartAuthWatch.
func WithAuthCheck(fn GateFunc) Option {
	return func(o *Orchestrator) { o.authCheck = fn }
}

// Result summarizes a run.
type Result struct {
	Feature  string
	State    State
	Attempts []Attempt
	Duration time.Duration
}

// Orchestrator drives one feature through its stages.
type Orchestrator struct {
	cfg       Config
	logger    observe.Logger
	metrics   observe.Metrics
	tracer    observe.Tracer
	refresh   func(ctx context.Context) error
	authCheck GateFunc

	sched   *resilience.Scheduler
	running atomic.Bool
	closed  atomic.Bool

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup
	closeOnce  sync.Once

	mu       sync.Mutex
	state    State
	last     *Result
	rerun    *resilience.Task
	watching bool
	detach   []func()
}

// New creates an orchestrator in StatePending.
func New(cfg Config, opts ...Option) *Orchestrator {
	cfg.applyDefaults()

	o := &Orchestrator{
		cfg:   cfg,
		sched: resilience.NewScheduler(),
		state: StatePending,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = observe.NopLogger()
	}
	if o.metrics == nil {
		o.metrics = observe.NoopMetrics()
	}
	if o.tracer == nil {
		o.tracer = observe.NoopTracer()
	}
	o.logger = o.logger.With(
		observe.Field{Key: "component", Value: "bootstrap"},
		observe.Field{Key: "feature", Value: cfg.Feature},
	)
	o.baseCtx, o.cancelBase = context.WithCancel(context.Background())
	return o
}

// Run drives the stages until the feature is Ready, a stage fails fatally
// or MaxAttempts attempts have failed. It returns ErrInProgress if another
// run is active. A failed run is logged and returned; no further attempt is
// made until Run is called again.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	if o.closed.Load() {
		return Result{}, ErrClosed
	}
	if !o.running.CompareAndSwap(false, true) {
		return Result{}, ErrInProgress
	}
	defer o.running.Store(false)

	ctx = o.own(ctx)
	start := time.Now()
	ctx, span := o.tracer.StartSpan(ctx, "bootstrap.run",
		attribute.String("bootstrap.feature", o.cfg.Feature),
	)

	o.logger.Info(ctx, "bootstrap started",
		observe.Field{Key: "stages", Value: len(o.cfg.Stages)},
		observe.Field{Key: "max_attempts", Value: o.cfg.MaxAttempts},
	)

	var attempts []Attempt
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  o.cfg.MaxAttempts,
		InitialDelay: o.cfg.RetryDelay,
		Strategy:     resilience.BackoffConstant,
		RetryIf:      func(err error) bool { return !IsFatal(err) },
		OnRetry: func(attempt int, err error, delay time.Duration) {
			o.setState(StateRetryWait)
			o.logger.Warn(ctx, "bootstrap attempt failed, retrying",
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "stage", Value: attempts[len(attempts)-1].StageName},
				observe.Field{Key: "error", Value: err},
				observe.Field{Key: "delay", Value: delay},
			)
		},
	})

	err := retry.Execute(ctx, func(ctx context.Context, n int) error {
		o.setState(StateChecking)
		att := o.attempt(ctx, n)
		attempts = append(attempts, att)
		return att.Err
	})

	result := Result{
		Feature:  o.cfg.Feature,
		Attempts: attempts,
		Duration: time.Since(start),
	}

	if err == nil {
		result.State = StateReady
		o.logger.Info(ctx, "feature ready",
			observe.Field{Key: "attempts", Value: len(attempts)},
			observe.Field{Key: "duration", Value: result.Duration},
		)
	} else {
		result.State = StateFailed
		err = o.failure(attempts, err)
		fields := []observe.Field{
			{Key: "attempts", Value: len(attempts)},
			{Key: "error", Value: err},
		}
		if n := len(attempts); n > 0 {
			fields = append(fields, observe.Field{Key: "stage", Value: attempts[n-1].StageName})
		}
		o.logger.Error(ctx, "bootstrap failed", fields...)
	}

	o.mu.Lock()
	o.state = result.State
	o.last = &result
	o.mu.Unlock()

	o.tracer.EndSpan(span, err)
	return result, err
}

// failure maps the retry error to the error returned by Run.
func (o *Orchestrator) failure(attempts []Attempt, err error) error {
	if IsFatal(err) || len(attempts) == 0 {
		return err
	}
	last := attempts[len(attempts)-1]
	if errors.Is(err, resilience.ErrMaxRetriesExceeded) {
		return fmt.Errorf("%w (%d): %w", ErrMaxAttempts, len(attempts), last.Err)
	}
	return err
}

func (o *Orchestrator) attempt(ctx context.Context, n int) Attempt {
	start := time.Now()
	ctx, span := o.tracer.StartSpan(ctx, "bootstrap.attempt",
		attribute.String("bootstrap.feature", o.cfg.Feature),
		attribute.Int("bootstrap.attempt", n),
	)

	att := Attempt{Number: n, Outcome: OutcomeSuccess}
	last := len(o.cfg.Stages) - 1
	for i, st := range o.cfg.Stages {
		att.StageIndex, att.StageName = i, st.Name

		err := o.evaluate(ctx, st)
		if err != nil && st.Recoverable && i == last && !IsFatal(err) {
			err = o.retryStage(ctx, st, n, err)
		}
		if err != nil {
			att.Err = fmt.Errorf("stage %q: %w", st.Name, err)
			att.Outcome = outcomeOf(err)
			o.logger.Warn(ctx, "stage failed",
				observe.Field{Key: "attempt", Value: n},
				observe.Field{Key: "stage", Value: st.Name},
				observe.Field{Key: "outcome", Value: att.Outcome.String()},
				observe.Field{Key: "error", Value: err},
			)
			break
		}
		o.logger.Debug(ctx, "stage passed",
			observe.Field{Key: "attempt", Value: n},
			observe.Field{Key: "stage", Value: st.Name},
		)
	}

	o.metrics.RecordAttempt(ctx, o.cfg.Feature, att.Outcome.String(), time.Since(start))
	o.tracer.EndSpan(span, att.Err)
	return att
}

func (o *Orchestrator) evaluate(ctx context.Context, st Stage) error {
	return resilience.ExecuteWithTimeout(ctx, o.cfg.StageTimeout, st.evaluate)
}

// retryStage gives a Recoverable stage its secondary budget. These tries do
// not count as top-level attempts.
func (o *Orchestrator) retryStage(ctx context.Context, st Stage, attempt int, err error) error {
	for try := 1; try <= o.cfg.ControllerRetries; try++ {
		o.logger.Warn(ctx, "stage failed, retrying within attempt",
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "stage", Value: st.Name},
			observe.Field{Key: "try", Value: try},
			observe.Field{Key: "error", Value: err},
		)
		if serr := resilience.Sleep(ctx, o.cfg.ControllerRetryDelay); serr != nil {
			return serr
		}
		err = o.evaluate(ctx, st)
		if err == nil || IsFatal(err) {
			return err
		}
	}
	return err
}

// Attach subscribes to bus. Correlated error and rejection events schedule
// a fresh run after ErrorRetriggerDelay; rejections are reported handled.
// Events published from within the orchestrator's own runs and refreshes
// are ignored, so a failed run cannot restart itself. A visibility event
// refreshes the feature when it is Ready. The returned function detaches;
// Close detaches as well.
func (o *Orchestrator) Attach(bus *EventBus) (detach func()) {
	unsubscribe := bus.Subscribe(o.handle)

	o.mu.Lock()
	o.detach = append(o.detach, unsubscribe)
	o.mu.Unlock()
	return unsubscribe
}

func (o *Orchestrator) handle(ctx context.Context, ev Event) bool {
	if o.closed.Load() {
		return false
	}

	switch ev.Kind {
	case EventError, EventRejection:
		if !o.correlated(ev.Message) {
			return false
		}
		if o.owns(ctx) {
			// raised by this orchestrator's own run or refresh
			o.logger.Debug(ctx, "feature error from own run ignored",
				observe.Field{Key: "message", Value: ev.Message},
			)
			return false
		}
		o.logger.Warn(ctx, "feature error observed, scheduling bootstrap",
			observe.Field{Key: "event", Value: ev.Kind.String()},
			observe.Field{Key: "message", Value: ev.Message},
		)
		o.scheduleRun()
		return ev.Kind == EventRejection

	case EventVisibility:
		if !ev.Visible || o.refresh == nil || o.State() != StateReady {
			return false
		}
		if err := o.refresh(o.own(ctx)); err != nil {
			o.logger.Warn(ctx, "refresh failed", observe.Field{Key: "error", Value: err})
		}
		return false
	}
	return false
}

type ownerKey struct{}

// own marks ctx as belonging to work started by o. Events published under
// such a context never schedule a run of o.
func (o *Orchestrator) own(ctx context.Context) context.Context {
	return context.WithValue(ctx, ownerKey{}, o)
}

func (o *Orchestrator) owns(ctx context.Context) bool {
	owner, _ := ctx.Value(ownerKey{}).(*Orchestrator)
	return owner == o
}

func (o *Orchestrator) correlated(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range o.cfg.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// scheduleRun schedules one run. Triggers arriving while a run is pending
// coalesce into it.
func (o *Orchestrator) scheduleRun() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.rerun != nil {
		return
	}
	task, err := o.sched.After(o.cfg.ErrorRetriggerDelay, func() {
		o.mu.Lock()
		o.rerun = nil
		if o.closed.Load() {
			o.mu.Unlock()
			return
		}
		o.wg.Add(1)
		o.mu.Unlock()
		defer o.wg.Done()

		if _, err := o.Run(o.baseCtx); errors.Is(err, ErrInProgress) {
			o.logger.Debug(o.baseCtx, "scheduled bootstrap skipped, run in progress")
		}
	})
	if err != nil {
		return
	}
	o.rerun = task
}

// StartAuthWatch checks authentication every AuthCheckInterval until ctx is
// done or Close is called. A failed check is logged; it does not change the
// feature state. Without WithAuthCheck it does nothing.
func (o *Orchestrator) StartAuthWatch(ctx context.Context) {
	if o.authCheck == nil {
		return
	}

	o.mu.Lock()
	if o.watching || o.closed.Load() {
		o.mu.Unlock()
		return
	}
	o.watching = true
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			o.watching = false
			o.mu.Unlock()
		}()

		ticker := time.NewTicker(o.cfg.AuthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-o.baseCtx.Done():
				return
			case <-ticker.C:
				if err := o.authCheck(ctx); err != nil {
					o.logger.Warn(ctx, "authentication check failed",
						observe.Field{Key: "error", Value: err},
					)
				}
			}
		}
	}()
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastResult returns the result of the most recent completed run.
func (o *Orchestrator) LastResult() (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return Result{}, false
	}
	return *o.last, true
}

// Pending returns the number of scheduled runs not yet started.
func (o *Orchestrator) Pending() int {
	return o.sched.Pending()
}

// Running reports whether a run is active.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Close cancels scheduled runs and the auth watch, detaches from every bus
// and waits for background goroutines. Subsequent Run calls return
// ErrClosed.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed.Store(true)
		o.mu.Unlock()

		o.sched.Close()
		o.cancelBase()

		o.mu.Lock()
		detach := o.detach
		o.detach = nil
		o.rerun = nil
		o.mu.Unlock()

		for _, fn := range detach {
			fn()
		}
		o.wg.Wait()
	})
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
