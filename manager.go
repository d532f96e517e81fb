package authsession

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/wheelrent/authsession/credstore"
	"github.com/wheelrent/authsession/idp"
	"github.com/wheelrent/authsession/profile"
)

// Manager owns the process-wide authenticated session. Construct one through
// [New] and [Builder.Build]; all methods are then safe for concurrent use.
type Manager struct {
	cfg       *Config
	state     sessionState
	store     *credstore.Adapter
	binding   idp.Binding
	profiles  *profile.Client
	transport *AuthTransport
	client    *http.Client
	metrics   *Metrics
	events    *eventDispatcher

	refreshGroup singleflight.Group
	unsubscribe  func()
	closeOnce    sync.Once
}

// Initialize hydrates the session from persisted credentials and reconciles
// it against the identity provider. A cold start (nothing persisted, or the
// persisted token expired terminally) leaves the Manager signed out and is
// not an error; only storage faults that prevented the load entirely degrade
// to cold start with a log line.
func (m *Manager) Initialize(ctx context.Context) error {
	if m == nil {
		return ErrManagerNotReady
	}
	release := m.state.beginLoading()
	defer release()

	res, err := m.store.Load(ctx)
	if err != nil {
		log.Print("authsession: loading persisted session: ", err)
		m.metrics.Inc(MetricStorageError)
		m.metrics.Inc(MetricInitializeCold)
		m.emit(ctx, newEvent(EventInitialize, "", false, err, nil))
		return nil
	}
	if !res.Found {
		m.metrics.Inc(MetricInitializeCold)
		m.emit(ctx, newEvent(EventInitialize, "", true, nil, map[string]string{"origin": "none"}))
		return nil
	}

	if res.Migrated {
		m.metrics.Inc(MetricStorageMigration)
		m.emit(ctx, newEvent(EventStorageMigration, "", true, nil, map[string]string{"from": res.Origin.String()}))
	}

	var user *User
	if len(res.Record.User) > 0 {
		var u User
		if err := json.Unmarshal(res.Record.User, &u); err == nil {
			user = &u
		}
	}
	m.state.setSession(res.Record.Token, res.Record.ExpiresAt(), user)

	token, ok := m.VerifyAndRefreshToken(ctx)
	if !ok {
		m.metrics.Inc(MetricInitializeCold)
		m.emit(ctx, newEvent(EventInitialize, "", false, ErrSessionExpired, map[string]string{"origin": res.Origin.String()}))
		return nil
	}
	m.transport.SetToken(token)

	if user == nil {
		// A token without its user record cannot serve profile reads;
		// rebuild the user from the provider and profile service.
		if _, err := m.reconcileUser(ctx); err != nil {
			log.Print("authsession: reconciling user on startup: ", err)
		}
	}

	m.metrics.Inc(MetricInitializeHydrated)
	m.emit(ctx, newEvent(EventInitialize, m.userID(), true, nil, map[string]string{"origin": res.Origin.String()}))
	return nil
}

// Logout signs out everywhere: in-memory session, transport header, provider
// session, and both persisted copies. It is idempotent and best-effort;
// failures to clean up remote state are logged, never returned.
func (m *Manager) Logout(ctx context.Context) error {
	if m == nil {
		return ErrManagerNotReady
	}
	userID := m.userID()
	m.state.clear()
	m.transport.ClearToken()

	if err := m.binding.SignOut(ctx); err != nil {
		log.Print("authsession: provider sign-out: ", err)
	}
	if err := m.store.Clear(ctx); err != nil {
		log.Print("authsession: clearing persisted session: ", err)
		m.metrics.Inc(MetricStorageError)
	}

	m.metrics.Inc(MetricLogout)
	m.emit(ctx, newEvent(EventLogout, userID, true, nil, nil))
	return nil
}

// Close releases background resources: the provider subscription and the
// event dispatcher (draining buffered events). The Manager is unusable after
// Close.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		m.events.Close()
	})
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Session {
	if m == nil {
		return Session{}
	}
	return m.state.snapshot()
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	return m != nil && m.state.snapshot().IsAuthenticated()
}

// CurrentUser returns the in-memory user, nil when signed out.
func (m *Manager) CurrentUser() *User {
	if m == nil {
		return nil
	}
	return m.state.currentUser()
}

// HTTPClient returns the shared client whose requests carry the session's
// bearer token. Hand it to any component calling the marketplace backend.
func (m *Manager) HTTPClient() *http.Client {
	if m == nil {
		return nil
	}
	return m.client
}

// MetricsSnapshot copies the Manager's counters for export.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return m.metrics.Snapshot()
}

// EventsDropped reports events shed by the dispatcher since startup.
func (m *Manager) EventsDropped() uint64 {
	if m == nil {
		return 0
	}
	return m.events.Dropped()
}

func (m *Manager) emit(ctx context.Context, event Event) {
	m.events.Emit(ctx, event)
}

func (m *Manager) userID() string {
	if u := m.state.currentUser(); u != nil {
		return u.ID
	}
	return ""
}

// persistCurrent writes the in-memory session to the secure backend.
// Persistence is best-effort: the in-memory session stays authoritative and
// failures only cost hydration after the next restart.
func (m *Manager) persistCurrent(ctx context.Context) {
	token, exp, ok := m.state.tokenInfo()
	if !ok {
		return
	}
	var userJSON json.RawMessage
	if u := m.state.currentUser(); u != nil {
		if data, err := json.Marshal(u); err == nil {
			userJSON = data
		}
	}
	if err := m.store.Save(ctx, credstore.NewRecord(token, userJSON, exp)); err != nil {
		log.Print("authsession: persisting session: ", err)
		m.metrics.Inc(MetricStorageError)
	}
}

// onProviderChange handles provider-pushed session changes. A nil identity is
// a remote sign-out (revocation, sign-out on another device): the local
// session is discarded without calling back into the provider.
func (m *Manager) onProviderChange(id *idp.Identity) {
	if id != nil {
		return
	}
	if !m.IsAuthenticated() {
		return
	}
	userID := m.userID()
	m.state.clear()
	m.transport.ClearToken()
	ctx := context.Background()
	if err := m.store.Clear(ctx); err != nil {
		log.Print("authsession: clearing persisted session: ", err)
		m.metrics.Inc(MetricStorageError)
	}
	m.metrics.Inc(MetricSessionExpired)
	m.emit(ctx, newEvent(EventSessionExpired, userID, true, nil, map[string]string{"reason": "remote_signout"}))
}
