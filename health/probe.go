package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a probe when no timeout is given.
const DefaultTimeout = 10 * time.Second

// ProbeResult is the outcome of one probe. It is a value and is never
// mutated once recorded.
type ProbeResult struct {
	Succeeded    bool   `json:"succeeded"`
	LatencyMs    int64  `json:"latencyMs"`
	TimestampMs  int64  `json:"timestampMs"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	URL          string `json:"url"`
}

// Err returns nil for a successful probe, otherwise an error wrapping
// ErrProbeFailed with the probe's message.
func (r ProbeResult) Err() error {
	if r.Succeeded {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrProbeFailed, r.ErrorMessage)
}

// Prober performs a single bounded-time reachability check.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: all failures are encoded in the result; Probe must not panic.
type Prober interface {
	Probe(ctx context.Context, url string, timeout time.Duration) ProbeResult
}

// ProberFunc is an adapter to allow ordinary functions to be used as Probers.
type ProberFunc func(ctx context.Context, url string, timeout time.Duration) ProbeResult

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, url string, timeout time.Duration) ProbeResult {
	return f(ctx, url, timeout)
}

// HTTPProber probes an endpoint with a GET request. A 2xx status is success.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber creates a prober using client, or http.DefaultClient if nil.
func NewHTTPProber(client *http.Client) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProber{client: client}
}

// Probe issues the request and cancels it once timeout elapses.
func (p *HTTPProber) Probe(ctx context.Context, url string, timeout time.Duration) ProbeResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg := p.do(ctx, url)
	if msg != "" && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		msg = fmt.Sprintf("request timeout after %dms (aborted)", timeout.Milliseconds())
	}

	end := time.Now()
	return ProbeResult{
		Succeeded:    msg == "",
		LatencyMs:    end.Sub(start).Milliseconds(),
		TimestampMs:  end.UnixMilli(),
		ErrorMessage: msg,
		URL:          url,
	}
}

// do returns an empty string on success and the failure text otherwise.
func (p *HTTPProber) do(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err.Error()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err.Error()
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return ""
	}
	text := http.StatusText(resp.StatusCode)
	if text == "" {
		text = "Unknown Status"
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, text)
}
