package credstore

import (
	"context"
	"errors"
)

// Persisted entry names. Both backends use the same names; the general
// backend namespaces them under a configurable prefix.
const (
	KeyToken           = "token"
	KeyUser            = "user"
	KeyTokenExpiration = "tokenExpiration"
)

var (
	// ErrNotFound reports an absent entry. Absence is an expected state, not
	// a failure.
	ErrNotFound = errors.New("credential entry not found")
	// ErrBackendUnavailable wraps driver-level failures of either backend.
	ErrBackendUnavailable = errors.New("credential backend unavailable")
	// ErrSealedCorrupt reports a sealed file that cannot be authenticated or
	// decoded, including decryption with the wrong passphrase.
	ErrSealedCorrupt = errors.New("sealed credential file corrupt")
)

// Backend is the uniform contract over a single storage backend. Get returns
// ErrNotFound for absent keys; every other failure is wrapped in
// ErrBackendUnavailable.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Origin identifies which backend satisfied a load.
type Origin uint8

const (
	// OriginNone means no backend held a record.
	OriginNone Origin = iota
	// OriginSecure means the secure backend held the record.
	OriginSecure
	// OriginGeneral means the general backend held the record.
	OriginGeneral
)

// String describes the origin for events and logs.
func (o Origin) String() string {
	switch o {
	case OriginSecure:
		return "secure"
	case OriginGeneral:
		return "general"
	default:
		return "none"
	}
}
