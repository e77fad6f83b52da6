// Package refresh defines the refresh token store contract and ships two implementations:
// an in-process [MemoryStore] and a Redis-backed [RedisStore].
//
// # Token format
//
// A refresh token is an opaque hex string with no embedded claims. Stores never see the
// value itself; they key records by [HashToken] of it.
//
// # Architecture boundaries
//
// This package owns record persistence and the atomic conditional revoke that serializes
// competing rotations. Rotation policy (who may rotate, what the successor carries) is
// owned by the Engine.
//
// # What this package must NOT do
//
//   - Generate token values or mint access tokens.
//   - Import tokenauth or jwt.
//   - Retry failed store operations.
package refresh
