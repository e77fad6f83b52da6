// Package keys loads the RSA key pair used to sign, verify, encrypt, and decrypt access
// tokens.
//
// A [Provider] is constructed once at startup from PEM material and injected into the
// credential codec. Construction fails fast when either key is missing, malformed, too
// short, or when the two keys do not form a pair.
//
// # Architecture boundaries
//
// This package owns key parsing and the four cryptographic primitives. It does NOT know
// about claims, token types, TTLs, or refresh tokens.
//
// # What this package must NOT do
//
//   - Hold keys in package-level variables.
//   - Mutate a [Provider] after [Load] returns.
//   - Import tokenauth, jwt, or refresh.
package keys
