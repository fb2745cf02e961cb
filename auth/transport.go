package auth

import (
	"fmt"
	"net/http"
)

// Transport is an http.RoundTripper that adds the bearer token from Source
// to every outgoing request.
type Transport struct {
	Source TokenSource

	// Base is the underlying transport. Default: http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper. A request is sent without a token
// when the source has none, so the server can answer 401.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	tok, err := t.Source.Token(req.Context())
	if err != nil || tok == "" {
		return base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", fmt.Sprintf("Bearer %s", tok))
	return base.RoundTrip(clone)
}
