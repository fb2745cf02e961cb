package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/chatguard/auth"
)

// AuthGate passes when src yields a token that is not an expired JWT.
func AuthGate(src auth.TokenSource) Stage {
	return Stage{
		Name:  "auth",
		Check: AuthCheck(src),
	}
}

// AuthCheck is the predicate behind AuthGate, also usable with WithAuthCheck.
func AuthCheck(src auth.TokenSource) GateFunc {
	return func(ctx context.Context) error {
		if _, err := auth.Authenticated(ctx, src, time.Now()); err != nil {
			return fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
		}
		return nil
	}
}

// ElementLookup reports whether a UI element exists.
type ElementLookup interface {
	HasElement(id string) bool
}

// ElementsGate passes when every id is present.
func ElementsGate(doc ElementLookup, ids ...string) Stage {
	return Stage{
		Name: "elements",
		Check: func(context.Context) error {
			var missing []string
			for _, id := range ids {
				if !doc.HasElement(id) {
					missing = append(missing, id)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("%w: %s", ErrElementsMissing, strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

// ServiceGate passes when name is registered. If it is missing and
// construct is non-nil, the instance is constructed and registered.
func ServiceGate(reg *Registry, name string, construct func(ctx context.Context) (any, error)) Stage {
	st := Stage{
		Name: "service:" + name,
		Check: func(context.Context) error {
			if _, ok := reg.Lookup(name); !ok {
				return fmt.Errorf("%w: %s", ErrServiceMissing, name)
			}
			return nil
		},
	}
	if construct != nil {
		st.Correct = func(ctx context.Context) error {
			v, err := construct(ctx)
			if err != nil {
				return fmt.Errorf("construct %s: %w", name, err)
			}
			reg.Register(name, v)
			return nil
		}
	}
	return st
}

// Controller is a feature controller brought up by ControllerGate.
type Controller interface {
	Init(ctx context.Context) error
}

// Refresher is implemented by controllers that can reload their data.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ControllerFactory constructs a controller. Returning an error wrapped
// with Fatal stops the run.
type ControllerFactory func(ctx context.Context) (Controller, error)

// ControllerGate constructs and initializes a controller and registers it
// under name. The stage is Recoverable.
func ControllerGate(reg *Registry, name string, factory ControllerFactory) Stage {
	return Stage{
		Name:        "controller:" + name,
		Recoverable: true,
		Check: func(ctx context.Context) error {
			ctrl, err := factory(ctx)
			if err != nil {
				return fmt.Errorf("construct %s: %w", name, err)
			}
			if err := ctrl.Init(ctx); err != nil {
				return fmt.Errorf("init %s: %w", name, err)
			}
			reg.Register(name, ctrl)
			return nil
		},
	}
}

// Reachability reports whether the backend answered its latest probe.
// *health.Monitor satisfies it.
type Reachability interface {
	Check(ctx context.Context) error
}

// ReachabilityGate passes when r reports the backend reachable.
func ReachabilityGate(r Reachability) Stage {
	return Stage{
		Name:  "reachability",
		Check: r.Check,
	}
}
