// Package internal contains helper utilities that are intentionally private to
// authsession, currently wire-format time conversion shared by the credential
// store and the session manager.
//
// # What this package must NOT do
//
//   - Export types that appear in the public authsession API.
//   - Be imported by any package outside the authsession module.
package internal
