// Package health tracks backend reachability for the chat client.
//
// A Prober issues one bounded-time request and encodes every outcome in a
// ProbeResult; it never returns an error. A Monitor runs the prober on a
// fixed cadence, keeps the last HistoryCapacity results newest first and
// derives a Report (latest outcome, success rate and average latency over
// the ReportWindow most recent probes) on demand.
//
// Failed probes are never fatal to the Monitor. Each tick is one probe and
// the schedule continues regardless of consecutive failures. On a non-silent
// failure the error text is passed to Classify, which maps known substrings
// to remediation hints.
//
// # Basic Usage
//
//	mon := health.NewMonitor(health.MonitorConfig{
//	    Endpoint: "http://localhost:8080/health",
//	})
//	first := mon.StartPeriodicCheck(ctx)
//	defer mon.Stop()
//
//	report := mon.Report()
//	fmt.Println(first.Succeeded, report.SuccessRatePercent)
//
// # HTTP Endpoints
//
//	r.Get("/healthz", health.LivenessHandler())
//	r.Get("/health", health.ReportHandler(mon))
package health
