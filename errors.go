package authsession

import "errors"

var (
	// ErrManagerNotReady is returned when a Manager method is invoked before
	// the builder finished wiring its collaborators.
	ErrManagerNotReady = errors.New("session manager not initialized")
	// ErrNotAuthenticated is returned by profile operations that require a
	// signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionExpired is the terminal refresh outcome: no valid token could
	// be produced and the cached token is past its grace window.
	ErrSessionExpired = errors.New("session expired")
)
