// Package profile is the HTTP client for the marketplace backend's user
// service: resolving provider identities to application users, registering
// new users, and updating profiles.
//
// # Architecture boundaries
//
// The client authenticates with whatever http.Client it is handed; bearer
// token injection lives in the caller's transport, not here. User is the
// application-level user record and is shared with the session manager via a
// type alias.
//
// # What this package must NOT do
//
//   - Talk to the identity provider. Provider concerns live in idp.
//   - Cache or persist users. The session manager owns the in-memory user
//     and credstore owns persistence.
package profile
