// Package jwt mints and introspects access tokens.
//
// An access token is a compact RS256 JWS carrying the session claims, sealed inside a
// compact JWE (RSA-OAEP-256 key wrap, A256GCM content encryption). Holders of the public
// key alone cannot read the claims.
//
// # Architecture boundaries
//
// The codec depends only on [keys.Provider] and a clock. It performs no I/O and consults no
// store, so introspection cost is bounded by two RSA operations.
//
// # What this package must NOT do
//
//   - Persist or cache tokens or claims.
//   - Read principal state from a database.
//   - Accept any signing algorithm other than RS256.
//
// [GenerateOpaqueSecret] lives here because refresh token values are produced next to the
// access token they are issued with.
package jwt
