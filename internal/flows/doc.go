// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunLogout, RunVerify, RunRegister,
// RunAuthenticateClient) accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies. Flows are unit tested with fake
// dependencies and keep the Engine type thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the refresh store, the credential codec, the
// login limiter, audit, and metrics. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs and the
//     refresh.Store interface.
package flows
