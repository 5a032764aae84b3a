// Package otel binds panelGate counters and the decision latency histogram to
// OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter family.
// Gate decisions carry a rule attribute, session operations and storage
// failures an op attribute, and audit drops an event attribute. Histogram
// buckets are one gauge keyed by an le attribute. A single callback reads
// Engine.MetricsSnapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
