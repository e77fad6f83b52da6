// Package rate provides the Redis-backed login failure limiter used by the Engine.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys live under the
// configured prefix:
//   - {prefix}:al:  login failures per email
//   - {prefix}:ali: login failures per IP
//
// # What this package must NOT do
//
//   - Decide what counts as a failure. The login flow increments and resets.
//   - Be imported outside the tokenauth module.
package rate
