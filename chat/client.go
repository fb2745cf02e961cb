package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/bootstrap"
	"github.com/jonwraymond/chatguard/guard"
)

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("chat: unexpected status")

// Friend is an entry of the social graph.
type Friend struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the API base, e.g. https://chat.example.com.
	BaseURL string

	// Tokens authorizes every request. nil sends no Authorization header.
	Tokens auth.TokenSource

	// Bus receives an error event for every failed call. Optional.
	Bus *bootstrap.EventBus

	// Timeout bounds each request. Default: 10s.
	Timeout time.Duration

	// Base is the underlying transport. Default: http.DefaultTransport.
	Base http.RoundTripper
}

// Client talks to the chat backend.
type Client struct {
	base string
	http *http.Client
	bus  *bootstrap.EventBus
}

// NewClient creates a client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	rt := cfg.Base
	if cfg.Tokens != nil {
		rt = &auth.Transport{Source: cfg.Tokens, Base: cfg.Base}
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Transport: rt, Timeout: cfg.Timeout},
		bus:  cfg.Bus,
	}
}

// Friends fetches the social graph.
func (c *Client) Friends(ctx context.Context) ([]Friend, error) {
	var friends []Friend
	if err := c.getJSON(ctx, "/friends", &friends); err != nil {
		return nil, c.report(ctx, "social: fetch friends", err)
	}
	return friends, nil
}

// Upload posts body as the file f.
func (c *Client) Upload(ctx context.Context, f guard.File, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/uploads", body)
	if err != nil {
		return c.report(ctx, "upload", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-File-Name", f.Name)
	req.Header.Set("X-File-Fingerprint", string(f.Fingerprint()))
	if !f.LastModified.IsZero() {
		req.Header.Set("X-File-Last-Modified", strconv.FormatInt(f.LastModified.UnixMilli(), 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.report(ctx, "upload", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := statusError(resp); err != nil {
		return c.report(ctx, "upload", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// report wraps err with op and publishes it on the bus.
func (c *Client) report(ctx context.Context, op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	if c.bus != nil {
		c.bus.PublishError(ctx, err)
	}
	return err
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("%w: HTTP %d: %s", ErrStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
}
