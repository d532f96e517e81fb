// Package credstore provides durable persistence for the session credential
// record across two heterogeneous backends: a general key-value store (Redis)
// and a higher-security sealed store (an encrypted local file).
//
// # Precedence and migration
//
// Reads prefer the secure backend. A record found only in the general backend
// is migrated on read: written through to the secure backend and deleted from
// the general one. Migration is forward-compatible consolidation, not an error
// condition — callers observe it only through [LoadResult.Migrated].
//
// # Architecture boundaries
//
// This package owns the [Record] wire form and the [Backend] contract. It does
// NOT decide when to persist, interpret tokens, or talk to the identity
// provider — those responsibilities belong to the session Manager.
//
// # What this package must NOT do
//
//   - Import authsession, idp, or profile (no upward imports).
//   - Log; best-effort persistence policy is the caller's.
//   - Treat a missing record as an error.
package credstore
