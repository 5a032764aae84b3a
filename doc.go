// Package panelGate guards a role-based CRM dashboard: it decides, per request,
// whether a navigation passes, redirects to the login page, lands a signed-in
// user on their role's home, or forcibly ends a citizen session. It also hands
// out the session state containers that pages read once hydrated.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// panelGate is the public surface. It exposes [Engine], [Builder], [Config] and
// value types (MetricsSnapshot, AuditEvent). The decision table lives in gate,
// the session container and its storage adapters in session, audit dispatch
// under internal/. HTTP wiring is in middleware.
//
// # What this package must NOT do
//
//   - Verify token signatures on the decision path; the gate tests presence only.
//   - Perform I/O in Decide beyond the async audit hand-off.
//   - Import middleware or any sub-package that re-imports panelGate.
//
// # Performance contract
//
// Decide is the hot path. It runs a precompiled matcher and a fixed rule list
// and must not touch storage.
package panelGate
