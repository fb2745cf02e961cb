package guard

import "errors"

var (
	// ErrInFlight indicates another upload holds the in-flight flag.
	ErrInFlight = errors.New("guard: upload already in flight")

	// ErrDuplicate indicates the same upload was allowed within the
	// duplicate window.
	ErrDuplicate = errors.New("guard: duplicate upload")
)

// reason maps a denial to its metric label.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrInFlight):
		return "in_flight"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	default:
		return ""
	}
}
