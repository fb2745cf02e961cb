package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/chatguard/health"
)

var probeCmd = &cobra.Command{
	Use:   "probe [url]",
	Short: "Probe the backend once and print the result",
	Long: `Issue a single health probe against url, or {api.base_url}/health when
no url is given, and print the result as JSON together with the failure
hints. The command exits non-zero when the probe fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProbe,
}

type probeOutput struct {
	health.ProbeResult
	Hints []health.Hint `json:"hints,omitempty"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	url := cfg.HealthEndpoint()
	if len(args) == 1 {
		url = args[0]
	}

	ctx, span := app.Tracer.StartSpan(cmd.Context(), "health.probe.once")
	result := health.NewHTTPProber(nil).Probe(ctx, url, cfg.Health.Timeout)
	app.Metrics.RecordProbe(ctx, url, result.Succeeded, time.Duration(result.LatencyMs)*time.Millisecond)
	app.Tracer.EndSpan(span, result.Err())

	out := probeOutput{ProbeResult: result}
	if !result.Succeeded {
		out.Hints = health.Classify(result.ErrorMessage)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !result.Succeeded {
		return fmt.Errorf("probe %s: %w", url, result.Err())
	}
	return nil
}
