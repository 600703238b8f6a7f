// Package telemetry wires OpenTelemetry tracing and metrics for gatekeeper.
//
// When disabled, Tracer and Meter fall back to the global no-op providers so
// instrumented packages never need to check whether export is configured.
// Export failures degrade the instance instead of failing startup.
//
// Tests use NewTestTelemetry, which records spans in memory and exposes a
// manual metric reader.
package telemetry
