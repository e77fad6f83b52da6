// Package internal contains helper utilities that are private to tokenauth.
//
// # Sub-packages
//
//   - flows: orchestrators for login, refresh, logout, verify, register and client checks
//   - rate: Redis-backed fixed-window login throttling
//   - config: viper loader for the command binaries
//   - logging: zap logger construction for the command binaries
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenauth API.
//   - Be imported by any package outside the tokenauth module.
package internal
