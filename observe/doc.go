// Package observe provides the logging, metrics and tracing primitives used
// by the health monitor, bootstrap orchestrator and request guard.
//
// Logging is structured JSON written through zerolog; metrics and spans go
// through OpenTelemetry with exporters chosen by name (see package
// exporters). Every component accepts nil and falls back to no-op
// implementations, so observability is never required for correctness.
package observe
