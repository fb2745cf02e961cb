package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/bootstrap"
)

func TestSocialFeature_Bootstrap(t *testing.T) {
	var calls atomic.Int32
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"1","name":"ada"}]`)
	})

	reg := bootstrap.NewRegistry()
	doc := NewDocument(ElementFriendsList, ElementFriendRequests)
	tokens := auth.StaticSource{Value: "tok"}

	o := bootstrap.New(bootstrap.Config{
		Feature: Feature,
		Stages: SocialStages(SocialDeps{
			Tokens:   tokens,
			Document: doc,
			Registry: reg,
			NewClient: func() *Client {
				return NewClient(ClientConfig{BaseURL: srv.URL, Tokens: tokens})
			},
		}),
		RetryDelay:           time.Millisecond,
		ControllerRetryDelay: time.Millisecond,
	}, bootstrap.WithRefresh(RefreshFunc(reg)))
	defer o.Close()

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(result.Attempts))
	}

	v, ok := reg.Lookup(Feature)
	if !ok {
		t.Fatal("social controller not registered")
	}
	ctrl := v.(*SocialController)
	if got := ctrl.Friends(); len(got) != 1 || got[0].Name != "ada" {
		t.Errorf("Friends() = %+v", got)
	}

	if err := RefreshFunc(reg)(context.Background()); err != nil {
		t.Errorf("refresh error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("backend calls = %d, want 3", calls.Load())
	}
}

func TestSocialFeature_FailedRunStaysFailed(t *testing.T) {
	var hits atomic.Int32
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	bus := bootstrap.NewEventBus()
	reg := bootstrap.NewRegistry()
	tokens := auth.StaticSource{Value: "tok"}
	o := bootstrap.New(bootstrap.Config{
		Feature: Feature,
		Stages: SocialStages(SocialDeps{
			Tokens:   tokens,
			Document: NewDocument(ElementFriendsList, ElementFriendRequests),
			Registry: reg,
			NewClient: func() *Client {
				return NewClient(ClientConfig{BaseURL: srv.URL, Tokens: tokens, Bus: bus})
			},
		}),
		MaxAttempts:          2,
		RetryDelay:           time.Millisecond,
		ControllerRetries:    1,
		ControllerRetryDelay: time.Millisecond,
		ErrorRetriggerDelay:  time.Millisecond,
	})
	defer o.Close()
	o.Attach(bus)

	result, err := o.Run(context.Background())
	if !errors.Is(err, bootstrap.ErrMaxAttempts) {
		t.Fatalf("Run() error = %v, want ErrMaxAttempts", err)
	}
	if result.State != bootstrap.StateFailed {
		t.Errorf("State = %v, want failed", result.State)
	}
	// two attempts of one try plus one secondary try
	if got := hits.Load(); got != 4 {
		t.Errorf("backend hits = %d, want 4", got)
	}

	time.Sleep(50 * time.Millisecond)
	if got := hits.Load(); got != 4 {
		t.Errorf("backend hits after failure = %d, want 4", got)
	}
	if o.Pending() != 0 || o.State() != bootstrap.StateFailed {
		t.Errorf("Pending() = %d, State() = %v, want 0 and failed", o.Pending(), o.State())
	}
}

func TestSocialStages_MissingElements(t *testing.T) {
	reg := bootstrap.NewRegistry()
	o := bootstrap.New(bootstrap.Config{
		Feature: Feature,
		Stages: SocialStages(SocialDeps{
			Tokens:    auth.StaticSource{Value: "tok"},
			Document:  NewDocument(ElementFriendsList),
			Registry:  reg,
			NewClient: func() *Client { return NewClient(ClientConfig{BaseURL: "http://127.0.0.1:0"}) },
		}),
		MaxAttempts: 1,
	})
	defer o.Close()

	_, err := o.Run(context.Background())
	if !errors.Is(err, bootstrap.ErrElementsMissing) {
		t.Errorf("Run() error = %v, want ErrElementsMissing", err)
	}
	if _, ok := reg.Lookup("api"); ok {
		t.Error("api constructed before elements were present")
	}
}

type unreachable struct{}

func (unreachable) Check(context.Context) error { return errors.New("backend down") }

func TestSocialStages_Reachability(t *testing.T) {
	stages := SocialStages(SocialDeps{
		Tokens:       auth.StaticSource{Value: "tok"},
		Document:     NewDocument(),
		Registry:     bootstrap.NewRegistry(),
		Reachability: unreachable{},
		NewClient:    func() *Client { return nil },
	})

	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name
	}
	want := []string{"auth", "elements", "service:api", "reachability", "controller:social"}
	if len(names) != len(want) {
		t.Fatalf("stages = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("stage[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if !stages[len(stages)-1].Recoverable {
		t.Error("controller stage is not recoverable")
	}
}

func TestRefreshFunc_NothingRegistered(t *testing.T) {
	if err := RefreshFunc(bootstrap.NewRegistry())(context.Background()); err != nil {
		t.Errorf("refresh error = %v, want nil", err)
	}
}

func TestDocument(t *testing.T) {
	var d Document
	if d.HasElement("x") {
		t.Error("zero Document has element")
	}
	d.Add("b", "a")
	d.Remove("b")
	if !d.HasElement("a") || d.HasElement("b") {
		t.Errorf("IDs() = %v, want [a]", d.IDs())
	}
}
