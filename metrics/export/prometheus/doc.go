// Package prometheus renders panelGate metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] wraps an engine and exposes an [http.Handler].
// Gate decisions are one counter family labelled by rule. Session operations
// and storage failures are labelled by op, and audit drops by event type. The
// decision latency histogram is panelgate_gate_decision_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
