package idp

import (
	"context"
	"errors"
	"time"
)

// Classified provider failures. Expected authentication failures
// (ErrInvalidCredentials and friends) are outcomes, not faults; callers
// surface them to the end user rather than logging them as errors.
var (
	// ErrInvalidCredentials reports a wrong email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidEmail reports a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword reports a password rejected by provider policy.
	ErrWeakPassword = errors.New("password too weak")
	// ErrEmailInUse reports a sign-up against an already registered email.
	ErrEmailInUse = errors.New("email already in use")
	// ErrUserNotFound reports a provider account that no longer exists.
	ErrUserNotFound = errors.New("provider user not found")
	// ErrNoLiveSession reports a token operation with no signed-in identity.
	ErrNoLiveSession = errors.New("no live provider session")
	// ErrTokenExpired reports a refresh credential the provider rejected as
	// expired or revoked.
	ErrTokenExpired = errors.New("provider token expired")
	// ErrProviderUnavailable wraps transport and 5xx failures.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Token is a provider-issued bearer token with its advisory expiration.
// A zero ExpiresAt means the provider did not report one.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Identity is the provider's view of a signed-in account.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Token       Token
}

// Binding is the provider contract the session manager operates against.
// Implementations keep whatever per-session provider state they need (refresh
// tokens, cached identity) internally.
type Binding interface {
	// SignInWithPassword exchanges an email/password pair for an identity.
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)

	// SignInWithIDToken exchanges a federated OAuth ID token (Google) for an
	// identity, creating the provider account on first sign-in.
	SignInWithIDToken(ctx context.Context, idToken string) (*Identity, error)

	// SignUp creates a provider account for an email/password pair and
	// returns the signed-in identity.
	SignUp(ctx context.Context, email, password string) (*Identity, error)

	// CurrentUser returns the live identity, or ErrNoLiveSession.
	CurrentUser(ctx context.Context) (*Identity, error)

	// ForceRefresh obtains a fresh token for the live identity, bypassing
	// any provider-side cache.
	ForceRefresh(ctx context.Context) (Token, error)

	// SignOut discards the live identity. It never fails on an absent one.
	SignOut(ctx context.Context) error
}

// Notifier is an optional capability of a Binding: provider-pushed session
// changes (remote revocation, multi-device sign-out). Subscribe returns a
// cancel func; fn receives nil on sign-out and the new identity otherwise.
type Notifier interface {
	Subscribe(fn func(*Identity)) (cancel func())
}
