package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/bootstrap"
	"github.com/jonwraymond/chatguard/observe"
)

// Feature is the name the social controller bootstraps under. Errors whose
// text contains it are correlated with the feature.
const Feature = "social"

// Element ids the social controller renders into.
const (
	ElementFriendsList    = "friends-list"
	ElementFriendRequests = "friend-requests"
)

// SocialController keeps the friends list of the signed-in user.
type SocialController struct {
	client *Client
	logger observe.Logger

	mu      sync.RWMutex
	friends []Friend
}

// NewSocialController creates a controller backed by client.
func NewSocialController(client *Client, logger observe.Logger) *SocialController {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &SocialController{client: client, logger: logger}
}

// Init loads the friends list.
func (s *SocialController) Init(ctx context.Context) error {
	return s.load(ctx)
}

// Refresh reloads the friends list.
func (s *SocialController) Refresh(ctx context.Context) error {
	return s.load(ctx)
}

// Friends returns a copy of the last loaded list.
func (s *SocialController) Friends() []Friend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Friend, len(s.friends))
	copy(out, s.friends)
	return out
}

func (s *SocialController) load(ctx context.Context) error {
	friends, err := s.client.Friends(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.friends = friends
	s.mu.Unlock()

	s.logger.Debug(ctx, "friends loaded", observe.Field{Key: "count", Value: len(friends)})
	return nil
}

var (
	_ bootstrap.Controller = (*SocialController)(nil)
	_ bootstrap.Refresher  = (*SocialController)(nil)
)

// SocialDeps are the collaborators of the social feature.
type SocialDeps struct {
	Tokens   auth.TokenSource
	Document bootstrap.ElementLookup
	Registry *bootstrap.Registry
	// Reachability, when set, gates the controller on a healthy backend.
	Reachability bootstrap.Reachability
	// NewClient constructs the API client registered as "api".
	NewClient func() *Client
	Logger    observe.Logger
}

// SocialStages returns the gate sequence of the social feature: auth, UI
// elements, the API service, optional reachability, then the controller.
func SocialStages(d SocialDeps) []bootstrap.Stage {
	stages := []bootstrap.Stage{
		bootstrap.AuthGate(d.Tokens),
		bootstrap.ElementsGate(d.Document, ElementFriendsList, ElementFriendRequests),
		bootstrap.ServiceGate(d.Registry, "api", func(context.Context) (any, error) {
			return d.NewClient(), nil
		}),
	}
	if d.Reachability != nil {
		stages = append(stages, bootstrap.ReachabilityGate(d.Reachability))
	}
	return append(stages, bootstrap.ControllerGate(d.Registry, Feature, func(context.Context) (bootstrap.Controller, error) {
		v, ok := d.Registry.Lookup("api")
		if !ok {
			return nil, bootstrap.ErrServiceMissing
		}
		client, ok := v.(*Client)
		if !ok {
			return nil, bootstrap.Fatal(fmt.Errorf("api service has type %T", v))
		}
		return NewSocialController(client, d.Logger), nil
	}))
}

// RefreshFunc returns a refresh action for bootstrap.WithRefresh that
// reloads the registered social controller.
func RefreshFunc(reg *bootstrap.Registry) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		v, ok := reg.Lookup(Feature)
		if !ok {
			return nil
		}
		if r, ok := v.(bootstrap.Refresher); ok {
			return r.Refresh(ctx)
		}
		return nil
	}
}
