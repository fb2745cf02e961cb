package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// LivenessHandler returns an HTTP handler for liveness probes.
// This is a simple check that the service is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// Reporter is the read side of a Monitor.
type Reporter interface {
	Report() Report
	History() []ProbeResult
}

// ReportResponse is the JSON body served by ReportHandler.
type ReportResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Report    Report        `json:"report"`
	History   []ProbeResult `json:"history"`
	Hints     []Hint        `json:"hints,omitempty"`
}

// ReportHandler serves the current report and history. The status code is
// 200 when the latest probe succeeded and 503 otherwise.
func ReportHandler(rep Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := rep.Report()
		history := rep.History()

		response := ReportResponse{
			Status:    "unhealthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Report:    report,
			History:   history,
		}
		if report.IsHealthy {
			response.Status = "healthy"
		} else if len(history) > 0 {
			response.Hints = Classify(history[0].ErrorMessage)
		}

		w.Header().Set("Content-Type", "application/json")
		if report.IsHealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}
