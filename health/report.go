package health

// ReportWindow is the number of most recent probes a Report covers.
const ReportWindow = 5

// Report is a projection over the probe history.
type Report struct {
	// IsHealthy is the outcome of the latest probe.
	IsHealthy bool `json:"isHealthy"`

	// SuccessRatePercent is 0-100 over the window, rounded down.
	SuccessRatePercent int `json:"successRatePercent"`

	// AverageLatencyMs averages successful probes in the window only.
	// It is 0 when none succeeded.
	AverageLatencyMs int64 `json:"averageLatencyMs"`

	// Samples is the number of probes in the window.
	Samples int `json:"samples"`
}

// ComputeReport derives a Report from entries ordered newest first.
func ComputeReport(entries []ProbeResult) Report {
	if len(entries) == 0 {
		return Report{}
	}

	window := entries
	if len(window) > ReportWindow {
		window = window[:ReportWindow]
	}

	var ok int
	var latency int64
	for _, r := range window {
		if r.Succeeded {
			ok++
			latency += r.LatencyMs
		}
	}

	rep := Report{
		IsHealthy:          entries[0].Succeeded,
		SuccessRatePercent: ok * 100 / len(window),
		Samples:            len(window),
	}
	if ok > 0 {
		rep.AverageLatencyMs = latency / int64(ok)
	}
	return rep
}
