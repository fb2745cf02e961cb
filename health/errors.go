package health

import "errors"

var (
	// ErrProbeFailed indicates the latest probe did not succeed.
	ErrProbeFailed = errors.New("health: probe failed")

	// ErrNoProbes indicates no probe has completed yet.
	ErrNoProbes = errors.New("health: no probes recorded")
)
