package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/bootstrap"
	"github.com/jonwraymond/chatguard/guard"
)

func newBackend(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Friends(t *testing.T) {
	var gotAuth string
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/friends" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":"1","name":"ada","online":true},{"id":"2","name":"bob"}]`)
	})

	c := NewClient(ClientConfig{BaseURL: srv.URL + "/", Tokens: auth.StaticSource{Value: "tok"}})
	friends, err := c.Friends(context.Background())
	if err != nil {
		t.Fatalf("Friends() error = %v", err)
	}
	if len(friends) != 2 || friends[0].Name != "ada" || !friends[0].Online {
		t.Errorf("Friends() = %+v", friends)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", gotAuth)
	}
}

func TestClient_FailurePublishesCorrelatedError(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	bus := bootstrap.NewEventBus()
	var events []bootstrap.Event
	bus.Subscribe(func(_ context.Context, ev bootstrap.Event) bool {
		events = append(events, ev)
		return false
	})

	c := NewClient(ClientConfig{BaseURL: srv.URL, Bus: bus})
	_, err := c.Friends(context.Background())
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("Friends() error = %v, want ErrStatus", err)
	}
	if !strings.Contains(err.Error(), "HTTP 502: Bad Gateway") {
		t.Errorf("error = %v", err)
	}
	if len(events) != 1 || events[0].Kind != bootstrap.EventError {
		t.Fatalf("events = %+v, want one error", events)
	}
	if !strings.HasPrefix(events[0].Message, "social:") {
		t.Errorf("event message = %q, want social prefix", events[0].Message)
	}
}

func TestClient_Upload(t *testing.T) {
	var name, fp, body string
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/uploads" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		name = r.Header.Get("X-File-Name")
		fp = r.Header.Get("X-File-Fingerprint")
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusCreated)
	})

	f := guard.File{Name: "cat.png", Size: 4, LastModified: time.UnixMilli(1700000000000)}
	c := NewClient(ClientConfig{BaseURL: srv.URL})
	if err := c.Upload(context.Background(), f, strings.NewReader("meow")); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if name != "cat.png" || body != "meow" {
		t.Errorf("server saw name=%q body=%q", name, body)
	}
	if fp != string(f.Fingerprint()) {
		t.Errorf("fingerprint header = %q, want %q", fp, f.Fingerprint())
	}
}

func TestClient_UploadErrorNotCorrelatedWithSocial(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	})
	bus := bootstrap.NewEventBus()
	o := bootstrap.New(bootstrap.Config{Feature: Feature})
	defer o.Close()
	o.Attach(bus)

	c := NewClient(ClientConfig{BaseURL: srv.URL, Bus: bus})
	if err := c.Upload(context.Background(), guard.File{Name: "big.bin"}, strings.NewReader("x")); err == nil {
		t.Fatal("Upload() error = nil, want status error")
	}
	if o.Pending() != 0 {
		t.Errorf("Pending() = %d, upload failure scheduled a social bootstrap", o.Pending())
	}
}
