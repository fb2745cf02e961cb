package main

import (
	"context"
	"fmt"

	"github.com/jonwraymond/chatguard/bootstrap"
	"github.com/jonwraymond/chatguard/chat"
	"github.com/jonwraymond/chatguard/config"
	"github.com/jonwraymond/chatguard/guard"
	"github.com/jonwraymond/chatguard/health"
	"github.com/jonwraymond/chatguard/observe"
)

// AppContext holds the collaborators shared by the subcommands.
type AppContext struct {
	Config   *config.Config
	Observer observe.Observer
	Logger   observe.Logger
	Metrics  observe.Metrics
	Tracer   observe.Tracer
	Bus      *bootstrap.EventBus
	Registry *bootstrap.Registry
}

func buildAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe(version))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}

	return &AppContext{
		Config:   cfg,
		Observer: obs,
		Logger:   obs.Logger(),
		Metrics:  metrics,
		Tracer:   observe.NewTracer(obs.Tracer()),
		Bus:      bootstrap.NewEventBus(),
		Registry: bootstrap.NewRegistry(),
	}, nil
}

// Close flushes telemetry.
func (a *AppContext) Close(ctx context.Context) error {
	return a.Observer.Shutdown(ctx)
}

func (a *AppContext) newMonitor() *health.Monitor {
	return health.NewMonitor(health.MonitorConfig{
		Endpoint: a.Config.HealthEndpoint(),
		Interval: a.Config.Health.Interval,
		Timeout:  a.Config.Health.Timeout,
		Logger:   a.Logger,
		Metrics:  a.Metrics,
		Tracer:   a.Tracer,
	})
}

func (a *AppContext) newClient() *chat.Client {
	return chat.NewClient(chat.ClientConfig{
		BaseURL: a.Config.API.BaseURL,
		Tokens:  a.Config.TokenSource(),
		Bus:     a.Bus,
		Timeout: a.Config.Health.Timeout,
	})
}

func (a *AppContext) newGuard() *guard.Guard {
	return guard.New(a.Config.GuardFor(a.Logger, a.Metrics))
}

// newOrchestrator wires the social feature. A nil reach skips the
// reachability gate.
func (a *AppContext) newOrchestrator(doc bootstrap.ElementLookup, reach bootstrap.Reachability) *bootstrap.Orchestrator {
	tokens := a.Config.TokenSource()
	deps := chat.SocialDeps{
		Tokens:       tokens,
		Document:     doc,
		Registry:     a.Registry,
		Reachability: reach,
		NewClient:    a.newClient,
		Logger:       a.Logger,
	}

	return bootstrap.New(
		a.Config.BootstrapFor(chat.Feature, chat.SocialStages(deps)...),
		bootstrap.WithLogger(a.Logger),
		bootstrap.WithMetrics(a.Metrics),
		bootstrap.WithTracer(a.Tracer),
		bootstrap.WithRefresh(chat.RefreshFunc(a.Registry)),
		bootstrap.WithAuthCheck(bootstrap.AuthCheck(tokens)),
	)
}
