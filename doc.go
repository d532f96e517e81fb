// Package authsession manages the authenticated session of a Wheelrent
// marketplace client: token acquisition from the identity provider, advisory
// expiry tracking, proactive and reactive refresh, dual-backend credential
// persistence, and reconciliation of cached state against the provider after
// process restarts.
//
// The package is designed for concurrent client workloads: Manager methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. The in-memory session is the single source of truth for the
// current process; persisted copies are advisory and re-validated on load.
//
// # Architecture boundaries
//
// authsession is the public surface. It exposes [Manager], [Builder], [Config],
// and value types (Session, LoginResult, MetricsSnapshot, Event). Leaf
// concerns live in sub-packages: credential persistence under credstore/, the
// identity-provider binding under idp/, and the backend profile-service client
// under profile/.
//
// # What this package must NOT do
//
//   - Issue or cryptographically verify tokens — the identity provider is the
//     ground truth on credential validity; expirations held here are estimates.
//   - Expose storage backends or provider wire formats in its public API.
//   - Retry provider calls below the Manager; retry policy is the refresh
//     state machine, nothing lower.
package authsession
