// Package postgres provides Postgres implementations of the tokenauth persistence
// contracts: [RefreshTokenRepository] for refresh.Store, [UserRepository] for
// tokenauth.UserProvider, and [ClientRepository] for tokenauth.ClientRegistry.
//
// Connections go through the pgx stdlib driver ([Open]). The schema ships as embedded
// goose migrations applied by [Migrate].
//
// Refresh failures wrap refresh.ErrUnavailable so the engine reports them as
// retryable. User and client lookups return the tokenauth not-found sentinels; any
// other error is wrapped with the failing operation name.
package postgres
