// Package jwt issues and verifies the session tokens carried in the gate's
// token cookie, and reads their expiry for cookie lifetimes.
//
// The route gate itself never verifies tokens; it only tests presence. This
// package serves the login exchange and the cookie writer.
package jwt
