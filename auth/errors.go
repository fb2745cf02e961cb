package auth

import "errors"

// Sentinel errors for token lookup and inspection.
var (
	ErrNoToken        = errors.New("auth: no token")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenMalformed = errors.New("auth: token malformed")
)
