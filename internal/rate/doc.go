// Package rate throttles login attempts at the edge with Redis counters.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - pg:login:u:   failed logins per email
//   - pg:login:ip:  failed logins per client IP
//
// Only failures are counted. A successful login clears both counters.
package rate
