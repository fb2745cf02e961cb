package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the client can learn from a token without a key.
type TokenInfo struct {
	// JWT is false for opaque tokens, in which case the other fields are zero.
	JWT       bool
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the token carries an expiry at or before now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Inspect decodes a JWT's claims without verifying its signature. Tokens
// that are not shaped like a JWT are treated as opaque.
func Inspect(token string) (TokenInfo, error) {
	if strings.Count(token, ".") != 2 {
		return TokenInfo{}, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	info := TokenInfo{JWT: true}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	return info, nil
}

// Authenticated returns the token from src if one exists and is not an
// expired JWT.
func Authenticated(ctx context.Context, src TokenSource, now time.Time) (string, error) {
	tok, err := src.Token(ctx)
	if err != nil {
		return "", err
	}

	info, err := Inspect(tok)
	if err != nil {
		return "", err
	}
	if info.Expired(now) {
		return "", fmt.Errorf("%w at %s", ErrTokenExpired, info.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return tok, nil
}
