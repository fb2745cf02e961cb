package bootstrap

import (
	"context"
	"fmt"
)

// GateFunc is a readiness predicate. nil means the gate passed.
type GateFunc func(ctx context.Context) error

// Stage is one named step of a bootstrap sequence.
type Stage struct {
	Name  string
	Check GateFunc

	// Correct runs once when Check fails retryably; Check is then evaluated
	// again. Use it to construct a missing dependency.
	Correct func(ctx context.Context) error

	// Recoverable gives a failing final stage Config.ControllerRetries extra
	// tries within the same attempt.
	Recoverable bool
}

// Outcome classifies how an attempt ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeFatal
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case IsFatal(err):
		return OutcomeFatal
	default:
		return OutcomeRetryable
	}
}

// Attempt records one pass through the stages.
type Attempt struct {
	Number int
	// StageIndex is the failing stage, or the last stage on success.
	StageIndex int
	StageName  string
	Outcome    Outcome
	Err        error
}

// State is the lifecycle state of a feature.
type State int

const (
	StatePending State = iota
	StateChecking
	StateRetryWait
	StateReady
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateChecking:
		return "checking"
	case StateRetryWait:
		return "retry_wait"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// evaluate runs the stage check, applying the corrective action once on a
// retryable failure. A panic inside the stage is reported as fatal.
func (s Stage) evaluate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Fatal(fmt.Errorf("panic in stage %q: %v", s.Name, r))
		}
	}()

	if s.Check == nil {
		return nil
	}
	err = s.Check(ctx)
	if err == nil || IsFatal(err) || s.Correct == nil {
		return err
	}
	if cerr := s.Correct(ctx); cerr != nil {
		return cerr
	}
	return s.Check(ctx)
}
