// Package idp defines the contract between the session manager and the hosted
// identity provider, plus a REST binding speaking the provider's HTTP API.
//
// # Architecture boundaries
//
// The Binding interface is the only seam the session manager sees: it signs
// credentials in, refreshes tokens, and signs out. Provider wire formats,
// refresh-token custody, and provider error codes stay inside this package
// and surface only as the classified sentinel errors.
//
// # What this package must NOT do
//
//   - Persist anything. Credential persistence belongs to credstore.
//   - Decide session policy. Expiry windows, grace, and logout are the
//     session manager's calls; this package only reports what the provider
//     said.
package idp
