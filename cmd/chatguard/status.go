package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/chatguard/bootstrap"
	"github.com/jonwraymond/chatguard/health"
)

// featureStatus reports an orchestrator's state.
type featureStatus interface {
	State() bootstrap.State
	LastResult() (bootstrap.Result, bool)
	Pending() int
}

type attemptResponse struct {
	Number  int    `json:"number"`
	Stage   string `json:"stage"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

type bootstrapResponse struct {
	Feature    string            `json:"feature"`
	State      string            `json:"state"`
	Pending    int               `json:"pending"`
	DurationMs int64             `json:"duration_ms,omitempty"`
	Attempts   []attemptResponse `json:"attempts,omitempty"`
}

func newStatusRouter(rep health.Reporter, name string, feature featureStatus, prometheus bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", health.LivenessHandler())
	r.Get("/health", health.ReportHandler(rep))
	r.Get("/bootstrap", bootstrapHandler(name, feature))
	if prometheus {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// bootstrapHandler answers 200 when the feature is ready and 503 otherwise.
func bootstrapHandler(name string, feature featureStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := feature.State()
		resp := bootstrapResponse{
			Feature: name,
			State:   state.String(),
			Pending: feature.Pending(),
		}
		if last, ok := feature.LastResult(); ok {
			resp.DurationMs = last.Duration.Milliseconds()
			for _, att := range last.Attempts {
				ar := attemptResponse{
					Number:  att.Number,
					Stage:   att.StageName,
					Outcome: att.Outcome.String(),
				}
				if att.Err != nil {
					ar.Error = att.Err.Error()
				}
				resp.Attempts = append(resp.Attempts, ar)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if state == bootstrap.StateReady {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
