// Package tokenauth issues and validates credentials for principals, optionally bound
// to a registered client application.
//
// Login returns two credentials. The access token is an RS256 JWS wrapped in a compact
// JWE (RSA-OAEP-256, A256GCM) that verifies offline. The refresh token is an opaque
// hex secret whose SHA-256 digest is tracked by a [refresh.Store] and rotated on every
// use. Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// tokenauth is the public surface. It exposes [Engine], [Builder], [Config], the request
// and result types, and the [UserProvider] and [ClientRegistry] contracts. Flow
// orchestration and login throttling live under internal/ and are never exported.
// Key handling lives in keys, the token codec in jwt, refresh persistence in refresh
// and postgres.
//
// # What this package must NOT do
//
//   - Return passwords, token values, or key bytes inside errors or audit events.
//   - Retry store operations. Store failures surface as [ErrPersistenceUnavailable].
//   - Hold per-request mutable state. Rotation is serialized by the store's
//     conditional revoke alone.
//
// # Performance contract
//
// Verify is the hot path. It performs no I/O. Login, Refresh, and Logout make a
// bounded number of store round-trips per call.
package tokenauth
