package guard

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/chatguard/observe"
)

// Config configures a Guard.
type Config struct {
	// Cooldown is the longest the in-flight flag stays set. Default: 2s.
	Cooldown time.Duration

	// DuplicateWindow is how long an allowed fingerprint blocks a repeat.
	// Default: 3s.
	DuplicateWindow time.Duration

	// Now returns the current time. Default: time.Now.
	Now func() time.Time

	Logger  observe.Logger
	Metrics observe.Metrics
}

// Guard is a time-windowed single-flight gate for uploads.
type Guard struct {
	cfg Config

	mu            sync.Mutex
	inFlightUntil time.Time
	recent        map[Fingerprint]time.Time
}

// New creates a guard with defaults applied.
func New(cfg Config) *Guard {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 2 * time.Second
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 3 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NoopMetrics()
	}
	cfg.Logger = cfg.Logger.With(observe.Field{Key: "component", Value: "guard"})

	return &Guard{
		cfg:    cfg,
		recent: make(map[Fingerprint]time.Time),
	}
}

// Allow reports whether a request for fp may proceed and, if so, marks it
// in flight. The flag clears when the cooldown elapses.
func (g *Guard) Allow(fp Fingerprint) bool {
	return g.Check(fp) == nil
}

// Check is Allow with the denial reason: ErrInFlight or ErrDuplicate.
func (g *Guard) Check(fp Fingerprint) error {
	_, err := g.decide(context.Background(), fp)
	return err
}

// Ticket is the in-flight claim handed out by Acquire.
type Ticket struct {
	g     *Guard
	until time.Time
}

// Release clears the in-flight flag early, but only while this ticket still
// owns it. A ticket whose cooldown has passed, and which may have been
// superseded by a later upload, releases nothing. The fingerprint stays
// recorded until its window expires.
func (t Ticket) Release() {
	if t.g == nil {
		return
	}
	t.g.mu.Lock()
	if t.g.inFlightUntil.Equal(t.until) {
		t.g.inFlightUntil = time.Time{}
	}
	t.g.mu.Unlock()
}

// Acquire is Check returning the ticket for an allowed request.
func (g *Guard) Acquire(ctx context.Context, fp Fingerprint) (Ticket, error) {
	until, err := g.decide(ctx, fp)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{g: g, until: until}, nil
}

// Do runs fn if the file is allowed and releases its ticket when fn
// returns.
func (g *Guard) Do(ctx context.Context, f File, fn func(ctx context.Context) error) error {
	ticket, err := g.Acquire(ctx, f.Fingerprint())
	if err != nil {
		return err
	}
	defer ticket.Release()
	return fn(ctx)
}

// InFlight reports whether the in-flight flag is set.
func (g *Guard) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Now().Before(g.inFlightUntil)
}

// Len returns the number of fingerprints still inside their window.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.cfg.Now())
	return len(g.recent)
}

// decide is the check-and-set. On allow it returns the in-flight deadline
// it set, which identifies the claim.
func (g *Guard) decide(ctx context.Context, fp Fingerprint) (time.Time, error) {
	g.mu.Lock()
	now := g.cfg.Now()
	g.prune(now)

	var (
		until time.Time
		err   error
	)
	switch {
	case now.Before(g.inFlightUntil):
		err = ErrInFlight
	case now.Before(g.recent[fp]):
		err = ErrDuplicate
	default:
		until = now.Add(g.cfg.Cooldown)
		g.inFlightUntil = until
		g.recent[fp] = now.Add(g.cfg.DuplicateWindow)
	}
	g.mu.Unlock()

	g.cfg.Metrics.RecordGuard(ctx, err == nil, reason(err))
	if err != nil {
		g.cfg.Logger.Debug(ctx, "upload suppressed",
			observe.Field{Key: "fingerprint", Value: string(fp)},
			observe.Field{Key: "reason", Value: reason(err)},
		)
	}
	return until, err
}

// prune drops expired fingerprints. Caller holds g.mu.
func (g *Guard) prune(now time.Time) {
	for fp, until := range g.recent {
		if !now.Before(until) {
			delete(g.recent, fp)
		}
	}
}
