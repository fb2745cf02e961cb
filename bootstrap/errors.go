package bootstrap

import "errors"

var (
	// ErrInProgress is returned by Run while another run is active.
	ErrInProgress = errors.New("bootstrap: run already in progress")

	// ErrMaxAttempts indicates every attempt failed retryably.
	ErrMaxAttempts = errors.New("bootstrap: max attempts exceeded")

	// ErrNotAuthenticated indicates no usable token is available.
	ErrNotAuthenticated = errors.New("bootstrap: not authenticated")

	// ErrElementsMissing indicates required elements are not present yet.
	ErrElementsMissing = errors.New("bootstrap: required elements missing")

	// ErrServiceMissing indicates a dependent service is not registered.
	ErrServiceMissing = errors.New("bootstrap: service missing")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("bootstrap: orchestrator closed")
)

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as unrecoverable. A gate returning a fatal error ends the
// run in StateFailed without further attempts. Fatal(nil) is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err, or any error it wraps, was marked by Fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
