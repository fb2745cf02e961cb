package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// TokenSource returns the current bearer token.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a source with nothing to offer returns ErrNoToken.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc is an adapter to allow ordinary functions to be used as
// TokenSources.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticSource returns a configured value after strict env expansion, so a
// value of "${CHAT_TOKEN}" fails loudly when the variable is unset.
type StaticSource struct {
	Value string
}

func (s StaticSource) Token(context.Context) (string, error) {
	if strings.TrimSpace(s.Value) == "" {
		return "", ErrNoToken
	}
	tok, err := ExpandEnvStrict(s.Value)
	if err != nil {
		return "", err
	}
	return nonEmpty(tok)
}

// EnvSource returns the first non-empty variable among Names.
type EnvSource struct {
	Names []string
}

func (s EnvSource) Token(context.Context) (string, error) {
	for _, name := range s.Names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	return "", ErrNoToken
}

// FileSource reads the token from Path on every call. A missing file is
// ErrNoToken.
type FileSource struct {
	Path string
}

func (s FileSource) Token(context.Context) (string, error) {
	if s.Path == "" {
		return "", ErrNoToken
	}
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("auth: read token file: %w", err)
	}
	return nonEmpty(string(data))
}

// Chain tries sources in order; the first non-empty token wins.
type Chain []TokenSource

func (c Chain) Token(ctx context.Context) (string, error) {
	var errs []error
	for _, src := range c {
		tok, err := src.Token(ctx)
		if err == nil && tok != "" {
			return tok, nil
		}
		if err != nil && !errors.Is(err, ErrNoToken) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("%w: %w", ErrNoToken, errors.Join(errs...))
	}
	return "", ErrNoToken
}

func nonEmpty(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrNoToken
	}
	return s, nil
}

var (
	_ TokenSource = StaticSource{}
	_ TokenSource = EnvSource{}
	_ TokenSource = FileSource{}
	_ TokenSource = Chain(nil)
	_ TokenSource = TokenSourceFunc(nil)
)
