// Package gate implements the route authorization policy evaluated ahead of every
// dashboard page render.
//
// A [Policy] is a pure function of the requested path and two optional session
// markers (token, role code) read from request cookies. It yields a [Decision]:
// pass through, or redirect with an optional forced logout.
//
// # Rule order
//
//  1. Excluded paths (API, build assets, favicon, *.png) bypass every rule.
//  2. Citizen lockout: token present and role in the lockout set.
//  3. Anonymous on the root path or a protected prefix: redirect to login.
//  4. Anonymous elsewhere: pass through.
//  5. Authenticated on a public path (login or root): redirect to the role landing.
//  6. Pass through.
//
// # Architecture boundaries
//
// This package owns the role vocabulary and the decision table. It does NOT read
// cookies, write responses, or consult the session store. The middleware package
// translates HTTP into [Request] values and back.
//
// # What this package must NOT do
//
//   - Validate token signatures or expiry.
//   - Keep state between calls.
//   - Infer a hierarchy between roles.
package gate
