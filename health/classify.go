package health

import "strings"

// Category groups probe failures by likely cause.
type Category string

const (
	CategoryConnectivity Category = "connectivity"
	CategoryPolicy       Category = "policy"
	CategoryTimeout      Category = "timeout"
	CategoryUnclassified Category = "unclassified"
)

// Hint is a remediation suggestion for a classified failure.
type Hint struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

type rule struct {
	category Category
	needles  []string
	hints    []string
}

// Matching is by case-insensitive substring of the error text. There is no
// typed error upstream to classify on, so these needles are the contract.
var rules = []rule{
	{
		category: CategoryConnectivity,
		needles:  []string{"networkerror", "failed to fetch", "connection refused", "no such host"},
		hints: []string{
			"check that the API server is running at the configured base URL",
			"check network connectivity and any proxy between client and server",
		},
	},
	{
		category: CategoryPolicy,
		needles:  []string{"cors"},
		hints: []string{
			"the server must allow cross-origin requests from this client",
		},
	},
	{
		category: CategoryTimeout,
		needles:  []string{"timeout", "aborted", "deadline exceeded"},
		hints: []string{
			"the server did not answer in time; it may be overloaded or unreachable",
			"raise health.timeout if the backend is known to be slow",
		},
	},
}

var unclassifiedHint = Hint{
	Category: CategoryUnclassified,
	Message:  "inspect the server logs for the failing request",
}

// Classify maps an error message to remediation hints. It returns nil for
// an empty message and a single unclassified hint when nothing matches.
func Classify(msg string) []Hint {
	if msg == "" {
		return nil
	}

	lower := strings.ToLower(msg)
	var hints []Hint
	for _, r := range rules {
		if !containsAny(lower, r.needles) {
			continue
		}
		for _, h := range r.hints {
			hints = append(hints, Hint{Category: r.category, Message: h})
		}
	}
	if len(hints) == 0 {
		return []Hint{unclassifiedHint}
	}
	return hints
}

// Categories returns the distinct categories in hints, in order.
func Categories(hints []Hint) []Category {
	var out []Category
	for _, h := range hints {
		if len(out) == 0 || out[len(out)-1] != h.Category {
			out = append(out, h.Category)
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
