// Package session provides the client-resident session state container used by
// dashboard pages, together with pluggable durable storage for its persisted copy.
//
// # Two data sources
//
// The route gate reads session markers from request cookies because it runs
// before any page code executes. Pages read the [Store], which is populated from
// the durable copy once hydration completes. The two tiers are written
// separately by the login flow and must agree on naming and role vocabulary;
// this package never reads the gate cookies.
//
// # Binary encoding
//
// The durable copy ({token, user}) is stored as a compact versioned binary
// record. Decoders accept every version up to the current one.
//
// # Architecture boundaries
//
// This package owns [Store], the [Storage] adapters (memory, Redis, MongoDB)
// and the [Browser] side-effect port. It does NOT evaluate routes, talk to the
// remote API, or validate tokens.
//
// # What this package must NOT do
//
//   - Import panelGate, gate, or middleware (no upward imports).
//   - Hold process-wide state; every Store is constructed explicitly.
//   - Contact the server on SetAuth or Logout beyond the injected Storage.
package session
