package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPProber_Success(t *testing.T) {
	var accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		if r.Method != http.MethodGet {
			t.Errorf("Method = %s, want GET", r.Method)
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	before := time.Now().UnixMilli()
	result := NewHTTPProber(srv.Client()).Probe(context.Background(), srv.URL+"/health", time.Second)

	if !result.Succeeded {
		t.Fatalf("Succeeded = false, ErrorMessage = %q", result.ErrorMessage)
	}
	if result.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty", result.ErrorMessage)
	}
	if result.URL != srv.URL+"/health" {
		t.Errorf("URL = %q, want %q", result.URL, srv.URL+"/health")
	}
	if result.TimestampMs < before {
		t.Errorf("TimestampMs = %d, want >= %d", result.TimestampMs, before)
	}
	if result.LatencyMs < 0 {
		t.Errorf("LatencyMs = %d, want >= 0", result.LatencyMs)
	}
	if accept != "application/json" {
		t.Errorf("Accept = %q, want application/json", accept)
	}
	if result.Err() != nil {
		t.Errorf("Err() = %v, want nil", result.Err())
	}
}

func TestHTTPProber_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{http.StatusServiceUnavailable, "HTTP 503: Service Unavailable"},
		{http.StatusNotFound, "HTTP 404: Not Found"},
		{http.StatusMovedPermanently, "HTTP 301: Moved Permanently"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			client := srv.Client()
			client.CheckRedirect = func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			}

			result := NewHTTPProber(client).Probe(context.Background(), srv.URL, time.Second)
			if result.Succeeded {
				t.Fatal("Succeeded = true, want false")
			}
			if result.ErrorMessage != tt.want {
				t.Errorf("ErrorMessage = %q, want %q", result.ErrorMessage, tt.want)
			}
			if !errors.Is(result.Err(), ErrProbeFailed) {
				t.Errorf("Err() = %v, want ErrProbeFailed", result.Err())
			}
		})
	}
}

func TestHTTPProber_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	timeout := 50 * time.Millisecond
	start := time.Now()
	result := NewHTTPProber(srv.Client()).Probe(context.Background(), srv.URL, timeout)
	elapsed := time.Since(start)

	if result.Succeeded {
		t.Fatal("Succeeded = true, want false")
	}
	if result.ErrorMessage != "request timeout after 50ms (aborted)" {
		t.Errorf("ErrorMessage = %q", result.ErrorMessage)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("probe took %v, want close to %v", elapsed, timeout)
	}
}

func TestHTTPProber_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	result := NewHTTPProber(nil).Probe(context.Background(), url, time.Second)
	if result.Succeeded {
		t.Fatal("Succeeded = true, want false")
	}
	if result.ErrorMessage == "" {
		t.Error("ErrorMessage is empty")
	}
	if !strings.Contains(strings.ToLower(result.ErrorMessage), "connection refused") {
		t.Skipf("platform reported %q", result.ErrorMessage)
	}
}

func TestHTTPProber_InvalidURL(t *testing.T) {
	result := NewHTTPProber(nil).Probe(context.Background(), "://bad", time.Second)
	if result.Succeeded || result.ErrorMessage == "" {
		t.Errorf("result = %+v, want failure with message", result)
	}
}

func TestProberFunc(t *testing.T) {
	var gotTimeout time.Duration
	p := ProberFunc(func(ctx context.Context, url string, timeout time.Duration) ProbeResult {
		gotTimeout = timeout
		return ProbeResult{Succeeded: true, URL: url}
	})

	result := p.Probe(context.Background(), "http://x/health", 3*time.Second)
	if !result.Succeeded || result.URL != "http://x/health" {
		t.Errorf("result = %+v", result)
	}
	if gotTimeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", gotTimeout)
	}
}
