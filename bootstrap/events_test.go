package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventBus_PublishAndUnsubscribe(t *testing.T) {
	bus := NewEventBus()

	var got []Event
	unsubscribe := bus.Subscribe(func(_ context.Context, ev Event) bool {
		got = append(got, ev)
		return ev.Kind == EventRejection
	})

	if bus.PublishError(context.Background(), errors.New("boom")) {
		t.Error("error event reported handled")
	}
	if !bus.PublishRejection(context.Background(), "unhandled") {
		t.Error("rejection event not reported handled")
	}
	if bus.PublishError(context.Background(), nil) {
		t.Error("nil error published")
	}
	if len(got) != 2 || got[0].Message != "boom" || got[1].Kind != EventRejection {
		t.Errorf("got = %+v", got)
	}

	unsubscribe()
	unsubscribe()
	if bus.Len() != 0 {
		t.Errorf("Len() = %d, want 0", bus.Len())
	}
	bus.PublishVisibility(context.Background(), true)
	if len(got) != 2 {
		t.Errorf("handler called after unsubscribe")
	}
}

func TestEventKind_String(t *testing.T) {
	kinds := map[EventKind]string{
		EventError:      "error",
		EventRejection:  "rejection",
		EventVisibility: "visibility",
		EventKind(9):    "unknown",
	}
	for k, want := range kinds {
		if got := k.String(); got != want {
			t.Errorf("EventKind.String() = %v, want %v", got, want)
		}
	}
}

func TestAttach_CorrelatedErrorTriggersOneRun(t *testing.T) {
	gate := passing()
	bus := NewEventBus()
	o := New(fastConfig(gate.stage("auth")))
	defer o.Close()
	o.Attach(bus)

	ctx := context.Background()
	bus.PublishError(ctx, errors.New("unrelated: chat send failed"))
	if o.Pending() != 0 {
		t.Fatalf("Pending() = %d after uncorrelated error, want 0", o.Pending())
	}

	bus.PublishError(ctx, errors.New("Social controller: friends fetch failed"))
	bus.PublishError(ctx, errors.New("social: retry"))
	bus.PublishRejection(ctx, "SOCIAL promise rejected")
	if o.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1 coalesced run", o.Pending())
	}

	waitFor(t, func() bool { return o.State() == StateReady })
	time.Sleep(30 * time.Millisecond)

	if got := gate.calls.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
	if o.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", o.Pending())
	}
}

func TestAttach_RejectionHandled(t *testing.T) {
	bus := NewEventBus()
	cfg := fastConfig(passing().stage("auth"))
	cfg.ErrorRetriggerDelay = time.Hour
	o := New(cfg)
	defer o.Close()
	o.Attach(bus)

	if !bus.PublishRejection(context.Background(), "social feed rejected") {
		t.Error("correlated rejection not handled")
	}
	if bus.PublishRejection(context.Background(), "upload rejected") {
		t.Error("uncorrelated rejection handled")
	}
	if bus.PublishError(context.Background(), errors.New("social broke")) {
		t.Error("error event reported handled")
	}
}

func TestAttach_VisibilityRefreshesOnlyWhenReady(t *testing.T) {
	var refreshes atomic.Int32
	bus := NewEventBus()
	o := New(fastConfig(passing().stage("auth")), WithRefresh(func(context.Context) error {
		refreshes.Add(1)
		return nil
	}))
	defer o.Close()
	o.Attach(bus)

	ctx := context.Background()
	bus.PublishVisibility(ctx, true)
	if refreshes.Load() != 0 {
		t.Error("refreshed while pending")
	}

	if _, err := o.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	bus.PublishVisibility(ctx, false)
	bus.PublishVisibility(ctx, true)

	if got := refreshes.Load(); got != 1 {
		t.Errorf("refreshes = %d, want 1", got)
	}
	if o.Pending() != 0 {
		t.Errorf("visibility scheduled a run")
	}
}

func TestAttach_Detach(t *testing.T) {
	bus := NewEventBus()
	o := New(fastConfig(passing().stage("auth")))
	defer o.Close()

	detach := o.Attach(bus)
	detach()

	bus.PublishError(context.Background(), errors.New("social broke"))
	if o.Pending() != 0 {
		t.Errorf("Pending() = %d after detach, want 0", o.Pending())
	}
}

func TestClose_CancelsScheduledRunsAndDetaches(t *testing.T) {
	gate := passing()
	bus := NewEventBus()
	cfg := fastConfig(gate.stage("auth"))
	cfg.ErrorRetriggerDelay = 20 * time.Millisecond
	o := New(cfg)
	o.Attach(bus)

	bus.PublishError(context.Background(), errors.New("social broke"))
	if o.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", o.Pending())
	}

	o.Close()
	if o.Pending() != 0 {
		t.Errorf("Pending() after Close = %d, want 0", o.Pending())
	}
	if bus.Len() != 0 {
		t.Errorf("bus subscribers after Close = %d, want 0", bus.Len())
	}

	time.Sleep(50 * time.Millisecond)
	if gate.calls.Load() != 0 {
		t.Error("scheduled run fired after Close")
	}
}

func TestAttach_RecoversAfterFailure(t *testing.T) {
	authed := atomic.Bool{}
	gate := Stage{Name: "auth", Check: func(context.Context) error {
		if !authed.Load() {
			return ErrNotAuthenticated
		}
		return nil
	}}
	bus := NewEventBus()
	o := New(fastConfig(gate))
	defer o.Close()
	o.Attach(bus)

	if _, err := o.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want failure")
	}
	if o.State() != StateFailed {
		t.Fatalf("State() = %v, want failed", o.State())
	}

	authed.Store(true)
	bus.PublishError(context.Background(), errors.New("social: 401 from friends endpoint"))
	waitFor(t, func() bool { return o.State() == StateReady })
}

func TestAttach_IgnoresErrorsFromOwnRun(t *testing.T) {
	bus := NewEventBus()
	var calls atomic.Int32
	failing := Stage{Name: "controller:social", Check: func(ctx context.Context) error {
		calls.Add(1)
		err := errors.New("social: fetch friends: HTTP 503")
		bus.PublishError(ctx, err)
		return err
	}}

	cfg := fastConfig(failing)
	cfg.MaxAttempts = 2
	cfg.ControllerRetries = -1
	cfg.ErrorRetriggerDelay = time.Millisecond
	o := New(cfg)
	defer o.Close()
	o.Attach(bus)

	if _, err := o.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want failure")
	}
	time.Sleep(30 * time.Millisecond)

	if o.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", o.Pending())
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("stage calls = %d, want 2 with no self-triggered rerun", got)
	}
	if o.State() != StateFailed {
		t.Errorf("State() = %v, want failed", o.State())
	}

	// a report from outside the run still triggers recovery
	bus.PublishError(context.Background(), errors.New("social: user action failed"))
	waitFor(t, func() bool { return calls.Load() > 2 })
}

func TestAttach_IgnoresErrorsFromOwnRefresh(t *testing.T) {
	bus := NewEventBus()
	var refreshes atomic.Int32
	cfg := fastConfig(passing().stage("auth"))
	cfg.ErrorRetriggerDelay = time.Millisecond
	o := New(cfg, WithRefresh(func(ctx context.Context) error {
		refreshes.Add(1)
		err := errors.New("social: refresh friends: HTTP 503")
		bus.PublishError(ctx, err)
		return err
	}))
	defer o.Close()
	o.Attach(bus)

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	bus.PublishVisibility(context.Background(), true)

	if refreshes.Load() != 1 {
		t.Errorf("refreshes = %d, want 1", refreshes.Load())
	}
	if o.Pending() != 0 {
		t.Errorf("Pending() = %d after failed refresh, want 0", o.Pending())
	}
}
