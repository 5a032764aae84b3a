// Package audit implements async event dispatching for gate decisions and
// session mutations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, func, no-op).
//   - [Dispatcher]: buffered async relay. Under drop-if-full, only event types
//     outside Config.Retain are discarded; drops are counted per event type.
//   - [Event]: structured audit record with timestamp, type, request, path, role and rule.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import panelGate or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
