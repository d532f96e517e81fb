package authsession

import (
	"time"

	"github.com/wheelrent/authsession/profile"
)

// User is the application-level user record. It is an alias for the profile
// service's wire type so callers pass users between the Manager and the
// profile client without conversion.
type User = profile.User

// Session is an immutable snapshot of the session state at a point in time.
// TokenExpiration is advisory: the provider remains the ground truth on
// whether the token is actually still accepted.
type Session struct {
	Token           string
	TokenExpiration time.Time
	User            *User
	Loading         bool
	Err             error
}

// IsAuthenticated reports whether the snapshot holds a signed-in user with a
// token. It deliberately ignores TokenExpiration; an expired-looking session
// is still authenticated until a refresh attempt fails terminally.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// LoginResult is the outcome of a credential-based sign-in. An expected
// authentication failure (wrong password, malformed email) is a result with
// Success=false and Error set, not a Go error: Login only returns an error for
// faults like an unreachable provider.
type LoginResult struct {
	Success bool
	User    *User
	Error   error
}

// RegisterInput carries everything needed to create both the provider account
// and the application user. Password goes to the identity provider only; the
// remaining fields go to the profile service.
type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	Phone      string
	Role       string
	AvatarPath string
	AvatarURL  string
}
