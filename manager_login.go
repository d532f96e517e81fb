package authsession

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/wheelrent/authsession/idp"
	"github.com/wheelrent/authsession/profile"
)

// DefaultRole is assigned to users auto-registered during federated sign-in.
const DefaultRole = "renter"

// Login signs in with an email/password pair. Expected authentication
// failures (wrong credentials, malformed email, missing application user)
// come back as a LoginResult with Error set; the returned Go error is
// reserved for faults such as an unreachable provider or profile service.
func (m *Manager) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if m == nil {
		return LoginResult{}, ErrManagerNotReady
	}
	release := m.state.beginLoading()
	defer release()

	id, err := m.binding.SignInWithPassword(ctx, email, password)
	if err != nil {
		if isExpectedAuthFailure(err) {
			return m.failLogin(ctx, EventLogin, MetricLoginFailure, err), nil
		}
		m.metrics.Inc(MetricLoginFailure)
		m.emit(ctx, newEvent(EventLogin, "", false, err, nil))
		return LoginResult{}, err
	}

	res, err := m.profiles.Resolve(ctx, id.UID)
	if err != nil {
		m.signOutProvider(ctx)
		m.metrics.Inc(MetricLoginFailure)
		m.emit(ctx, newEvent(EventLogin, "", false, err, nil))
		return LoginResult{}, err
	}
	if !res.Found {
		// Provider account without an application user: registration never
		// completed. Surface it like a credential failure.
		m.signOutProvider(ctx)
		return m.failLogin(ctx, EventLogin, MetricLoginFailure, idp.ErrUserNotFound), nil
	}

	m.completeSignIn(ctx, id, res.User, EventLogin, MetricLoginSuccess)
	return LoginResult{Success: true, User: res.User}, nil
}

// GoogleSignIn signs in with a Google OAuth ID token. A provider identity
// without an application user is registered automatically from the federated
// profile, with [DefaultRole].
func (m *Manager) GoogleSignIn(ctx context.Context, idToken string) (LoginResult, error) {
	if m == nil {
		return LoginResult{}, ErrManagerNotReady
	}
	release := m.state.beginLoading()
	defer release()

	id, err := m.binding.SignInWithIDToken(ctx, idToken)
	if err != nil {
		if isExpectedAuthFailure(err) {
			return m.failLogin(ctx, EventGoogleSignIn, MetricGoogleSignInFailure, err), nil
		}
		m.metrics.Inc(MetricGoogleSignInFailure)
		m.emit(ctx, newEvent(EventGoogleSignIn, "", false, err, nil))
		return LoginResult{}, err
	}

	res, err := m.profiles.Resolve(ctx, id.UID)
	if err != nil {
		m.signOutProvider(ctx)
		m.metrics.Inc(MetricGoogleSignInFailure)
		m.emit(ctx, newEvent(EventGoogleSignIn, "", false, err, nil))
		return LoginResult{}, err
	}

	user := res.User
	if !res.Found {
		user, err = m.profiles.Register(ctx, profile.RegisterInput{
			ProviderID:     id.UID,
			Email:          id.Email,
			Name:           id.DisplayName,
			Role:           DefaultRole,
			AvatarURL:      id.PhotoURL,
			IdempotencyKey: uuid.NewString(),
		})
		if err != nil {
			m.signOutProvider(ctx)
			m.metrics.Inc(MetricGoogleSignInFailure)
			m.emit(ctx, newEvent(EventGoogleSignIn, "", false, err, nil))
			if errors.Is(err, profile.ErrRejected) {
				m.state.setError(err)
				return LoginResult{Error: err}, nil
			}
			return LoginResult{}, err
		}
	}

	m.completeSignIn(ctx, id, user, EventGoogleSignIn, MetricGoogleSignInSuccess)
	return LoginResult{Success: true, User: user}, nil
}

// Register creates the provider account and the application user, then signs
// the new user in. If the application user cannot be created the provider
// session is discarded and no local session is established; the orphaned
// provider account is left for a retried registration to adopt (the profile
// request carries an idempotency key).
func (m *Manager) Register(ctx context.Context, in RegisterInput) (LoginResult, error) {
	if m == nil {
		return LoginResult{}, ErrManagerNotReady
	}
	release := m.state.beginLoading()
	defer release()

	id, err := m.binding.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		if isExpectedAuthFailure(err) {
			return m.failLogin(ctx, EventRegister, MetricRegisterFailure, err), nil
		}
		m.metrics.Inc(MetricRegisterFailure)
		m.emit(ctx, newEvent(EventRegister, "", false, err, nil))
		return LoginResult{}, err
	}

	user, err := m.profiles.Register(ctx, profile.RegisterInput{
		ProviderID:     id.UID,
		Email:          in.Email,
		Name:           in.Name,
		Phone:          in.Phone,
		Role:           in.Role,
		AvatarPath:     in.AvatarPath,
		AvatarURL:      in.AvatarURL,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		m.signOutProvider(ctx)
		m.metrics.Inc(MetricRegisterFailure)
		m.emit(ctx, newEvent(EventRegister, "", false, err, nil))
		if errors.Is(err, profile.ErrRejected) {
			m.state.setError(err)
			return LoginResult{Error: err}, nil
		}
		return LoginResult{}, err
	}

	m.completeSignIn(ctx, id, user, EventRegister, MetricRegisterSuccess)
	return LoginResult{Success: true, User: user}, nil
}

// completeSignIn installs the session for a fresh provider identity: state,
// transport header, persisted record, metrics, and event, in that order.
func (m *Manager) completeSignIn(ctx context.Context, id *idp.Identity, user *User, eventType string, metric MetricID) {
	exp := m.sessionExpiry(id.Token)
	m.state.setSession(id.Token.Value, exp, user)
	m.transport.SetToken(id.Token.Value)
	m.persistCurrent(ctx)
	m.metrics.Inc(metric)
	m.emit(ctx, newEvent(eventType, user.ID, true, nil, nil))
}

func (m *Manager) failLogin(ctx context.Context, eventType string, metric MetricID, cause error) LoginResult {
	m.state.setError(cause)
	m.metrics.Inc(metric)
	m.emit(ctx, newEvent(eventType, "", false, cause, nil))
	return LoginResult{Error: cause}
}

// signOutProvider discards a provider session we decided not to adopt.
func (m *Manager) signOutProvider(ctx context.Context) {
	if err := m.binding.SignOut(ctx); err != nil {
		log.Print("authsession: provider sign-out: ", err)
	}
}

// isExpectedAuthFailure separates authentication outcomes from faults.
func isExpectedAuthFailure(err error) bool {
	return errors.Is(err, idp.ErrInvalidCredentials) ||
		errors.Is(err, idp.ErrInvalidEmail) ||
		errors.Is(err, idp.ErrWeakPassword) ||
		errors.Is(err, idp.ErrEmailInUse) ||
		errors.Is(err, idp.ErrUserNotFound)
}
