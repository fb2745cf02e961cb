package health

import "sync"

// HistoryCapacity is the number of probe results kept.
const HistoryCapacity = 10

// History is a fixed-capacity ring of probe results. Adding beyond capacity
// evicts the oldest entry.
type History struct {
	mu   sync.RWMutex
	buf  [HistoryCapacity]ProbeResult
	next int
	n    int
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Add records r and returns the stored value. A timestamp older than the
// newest entry is raised to it so timestamps never decrease.
func (h *History) Add(r ProbeResult) ProbeResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.n > 0 {
		if latest := h.buf[h.index(0)]; r.TimestampMs < latest.TimestampMs {
			r.TimestampMs = latest.TimestampMs
		}
	}

	h.buf[h.next] = r
	h.next = (h.next + 1) % HistoryCapacity
	if h.n < HistoryCapacity {
		h.n++
	}
	return r
}

// Snapshot returns a copy of the entries, newest first.
func (h *History) Snapshot() []ProbeResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ProbeResult, h.n)
	for i := range out {
		out[i] = h.buf[h.index(i)]
	}
	return out
}

// Latest returns the newest entry.
func (h *History) Latest() (ProbeResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.n == 0 {
		return ProbeResult{}, false
	}
	return h.buf[h.index(0)], true
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.n
}

// index maps age (0 = newest) to a buffer slot. Caller holds the lock.
func (h *History) index(age int) int {
	return (h.next - 1 - age + 2*HistoryCapacity) % HistoryCapacity
}
