package authsession

import (
	"context"
	"log"
	"time"

	"github.com/wheelrent/authsession/idp"
	"github.com/wheelrent/authsession/profile"
)

type refreshOutcome struct {
	token string
	ok    bool
}

// VerifyAndRefreshToken returns a token usable for a backend call right now.
// A token comfortably inside its advisory window is returned as-is with zero
// provider calls. A near-expiry or expired token triggers one forced refresh
// shared by all concurrent callers. When the refresh fails, the cached token
// is still returned while inside the grace window; past it the session is
// terminated and ok is false.
func (m *Manager) VerifyAndRefreshToken(ctx context.Context) (string, bool) {
	if m == nil {
		return "", false
	}
	token, exp, ok := m.state.tokenInfo()
	if !ok {
		return "", false
	}

	if !exp.IsZero() && time.Now().Before(exp.Add(-m.cfg.Session.RefreshLeeway)) {
		m.metrics.Inc(MetricRefreshShortCircuit)
		return token, true
	}

	// One provider round trip no matter how many callers arrive at once.
	v, _, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		tok, refreshed := m.refreshNow(ctx)
		return refreshOutcome{token: tok, ok: refreshed}, nil
	})
	out := v.(refreshOutcome)
	return out.token, out.ok
}

// refreshNow performs the forced refresh and applies the outcome: success
// installs the new token everywhere, failure falls back to the cached token
// inside the grace window, and a hard-expired cache terminates the session.
func (m *Manager) refreshNow(ctx context.Context) (string, bool) {
	cached, cachedExp, ok := m.state.tokenInfo()
	if !ok {
		return "", false
	}

	start := time.Now()
	tok, err := m.binding.ForceRefresh(ctx)
	m.metrics.Observe(MetricRefreshLatency, time.Since(start))

	if err == nil && tok.Value != "" {
		exp := m.sessionExpiry(tok)
		m.state.setToken(tok.Value, exp)
		m.transport.SetToken(tok.Value)
		m.persistCurrent(ctx)
		m.metrics.Inc(MetricRefreshSuccess)
		m.emit(ctx, newEvent(EventRefresh, m.userID(), true, nil, nil))
		return tok.Value, true
	}

	if withinGrace(cachedExp, m.cfg.Session.ExpiryGrace) {
		m.metrics.Inc(MetricRefreshFallback)
		m.emit(ctx, newEvent(EventRefreshFallback, m.userID(), true, err, nil))
		return cached, true
	}

	m.expireSession(ctx, err)
	return "", false
}

// withinGrace reports whether a cached token may still be served after a
// failed refresh. A zero expiration means the token's age is unknown; it gets
// no grace.
func withinGrace(exp time.Time, grace time.Duration) bool {
	if exp.IsZero() {
		return false
	}
	return time.Now().Before(exp.Add(grace))
}

// expireSession is the terminal refresh outcome: the session is torn down
// locally and in storage, and ErrSessionExpired is surfaced on the snapshot.
func (m *Manager) expireSession(ctx context.Context, cause error) {
	userID := m.userID()
	m.state.clear()
	m.state.setError(ErrSessionExpired)
	m.transport.ClearToken()

	m.signOutProvider(ctx)
	if err := m.store.Clear(ctx); err != nil {
		log.Print("authsession: clearing persisted session: ", err)
		m.metrics.Inc(MetricStorageError)
	}

	m.metrics.Inc(MetricSessionExpired)
	m.emit(ctx, newEvent(EventSessionExpired, userID, true, cause, nil))
}

// sessionExpiry stamps the advisory expiration for a freshly issued token.
func (m *Manager) sessionExpiry(tok idp.Token) time.Time {
	if m.cfg.Session.UseTokenExpiry {
		if exp := idp.TokenExpiry(tok.Value); !exp.IsZero() {
			return exp
		}
		if !tok.ExpiresAt.IsZero() {
			return tok.ExpiresAt
		}
	}
	return time.Now().Add(m.cfg.Session.Window)
}

// RefreshUserData re-fetches the application user from the profile service
// and replaces the in-memory copy. The session token is untouched.
func (m *Manager) RefreshUserData(ctx context.Context) (*User, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	if !m.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	release := m.state.beginLoading()
	defer release()

	return m.reconcileUser(ctx)
}

// reconcileUser resolves the provider identity to its current application
// user and installs it.
func (m *Manager) reconcileUser(ctx context.Context) (*User, error) {
	uid := ""
	if u := m.state.currentUser(); u != nil {
		uid = u.UID
	}
	if uid == "" {
		id, err := m.binding.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		uid = id.UID
	}

	res, err := m.profiles.Resolve(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, idp.ErrUserNotFound
	}

	m.state.setUser(res.User)
	m.persistCurrent(ctx)
	m.metrics.Inc(MetricProfileRefresh)
	m.emit(ctx, newEvent(EventProfileRefresh, res.User.ID, true, nil, nil))
	return res.User, nil
}

// UpdateProfile applies profile changes for the signed-in user and installs
// the updated record.
func (m *Manager) UpdateProfile(ctx context.Context, in profile.UpdateInput) (*User, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	user := m.state.currentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	release := m.state.beginLoading()
	defer release()

	updated, err := m.profiles.Update(ctx, user.ID, in)
	if err != nil {
		return nil, err
	}
	m.state.setUser(updated)
	m.persistCurrent(ctx)
	m.emit(ctx, newEvent(EventProfileRefresh, updated.ID, true, nil, map[string]string{"op": "update"}))
	return updated, nil
}
