// Package middleware exposes HTTP adapters for the panelGate engine.
//
// # Handlers
//
//   - [Gate]: runs every page navigation through Engine.Decide and writes
//     the resulting redirect, clearing the gate cookies on lockout.
//   - [RequireToken]: stateless token check for API routes, which the gate
//     excludes.
//   - [RequireSession]: token check plus a match against the browser's
//     durable session record.
//
// Gate also stamps the request context with a request ID, client IP and
// user agent so audit events and decision logs can be correlated.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// evaluate routing rules itself; every decision comes from Engine.Decide.
//
// # What this package must NOT do
//
//   - Issue tokens or write session records.
//   - Access Redis or Mongo directly (the engine's storage handles I/O).
//   - Rewrite a decision's target.
package middleware
