package authsession

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wheelrent/authsession/credstore"
	"github.com/wheelrent/authsession/idp"
	"github.com/wheelrent/authsession/internal"
)

// fakeBinding is a scriptable idp.Binding. Zero value signs everyone in as
// uid-1 with token tok-1 and refreshes to tok-2.
type fakeBinding struct {
	mu         sync.Mutex
	identity   *idp.Identity
	signInErr  error
	signUpErr  error
	refreshErr error
	refreshTok idp.Token

	refreshDelay time.Duration
	refreshCalls atomic.Int32
	signOutCalls atomic.Int32
}

func (f *fakeBinding) SignInWithPassword(ctx context.Context, email, password string) (*idp.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	id := idp.Identity{UID: "uid-1", Email: email, Token: idp.Token{Value: "tok-1"}}
	f.identity = &id
	cp := id
	return &cp, nil
}

func (f *fakeBinding) SignInWithIDToken(ctx context.Context, idToken string) (*idp.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	id := idp.Identity{
		UID: "uid-g", Email: "g@wheelrent.test", DisplayName: "Google User",
		PhotoURL: "https://p/g.png", Token: idp.Token{Value: "tok-g"},
	}
	f.identity = &id
	cp := id
	return &cp, nil
}

func (f *fakeBinding) SignUp(ctx context.Context, email, password string) (*idp.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	id := idp.Identity{UID: "uid-new", Email: email, Token: idp.Token{Value: "tok-new"}}
	f.identity = &id
	cp := id
	return &cp, nil
}

func (f *fakeBinding) CurrentUser(ctx context.Context) (*idp.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.identity == nil {
		return nil, idp.ErrNoLiveSession
	}
	cp := *f.identity
	return &cp, nil
}

func (f *fakeBinding) ForceRefresh(ctx context.Context) (idp.Token, error) {
	f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return idp.Token{}, f.refreshErr
	}
	tok := f.refreshTok
	if tok.Value == "" {
		tok = idp.Token{Value: "tok-2"}
	}
	return tok, nil
}

func (f *fakeBinding) SignOut(ctx context.Context) error {
	f.signOutCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = nil
	return nil
}

// profileServer fakes the user service with a mutable uid-to-user map.
type profileServer struct {
	srv *httptest.Server

	mu         sync.Mutex
	users      map[string]*User
	registered int
	rejectAll  bool
}

func newProfileServer(t *testing.T) *profileServer {
	t.Helper()
	ps := &profileServer{users: map[string]*User{
		"uid-1": {ID: "id-1", UID: "uid-1", Email: "a@wheelrent.test", Name: "Alice", Role: "renter"},
	}}
	mux := http.NewServeMux()
	mux.HandleFunc("/getUserInfo", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		ps.mu.Lock()
		u, ok := ps.users[body["uid"]]
		ps.mu.Unlock()
		if !ok {
			http.Error(w, `{"success":false,"message":"not found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "user": u})
	})
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		if ps.rejectAll {
			http.Error(w, `{"success":false,"message":"registration rejected"}`, http.StatusUnprocessableEntity)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		u := &User{
			ID: "id-" + body["uid"], UID: body["uid"], Email: body["email"],
			Name: body["name"], Role: body["role"], Avatar: body["avatar"],
		}
		ps.users[u.UID] = u
		ps.registered++
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "user": u})
	})
	mux.HandleFunc("/update-profile/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/update-profile/")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		ps.mu.Lock()
		defer ps.mu.Unlock()
		for _, u := range ps.users {
			if u.ID == id {
				if name := body["name"]; name != "" {
					u.Name = name
				}
				if phone := body["phone"]; phone != "" {
					u.Phone = phone
				}
				_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "user": u})
				return
			}
		}
		http.Error(w, `{"success":false,"message":"not found"}`, http.StatusNotFound)
	})
	ps.srv = httptest.NewServer(mux)
	t.Cleanup(ps.srv.Close)
	return ps
}

type testEnv struct {
	mgr     *Manager
	binding *fakeBinding
	secure  *credstore.MemoryBackend
	general *credstore.MemoryBackend
	profile *profileServer
	sink    *ChannelSink
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		binding: &fakeBinding{},
		secure:  credstore.NewMemoryBackend(),
		general: credstore.NewMemoryBackend(),
		profile: newProfileServer(t),
		sink:    NewChannelSink(64),
	}

	cfg := *defaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mgr, err := New().
		WithConfig(cfg).
		WithBinding(env.binding).
		WithSecureBackend(env.secure).
		WithGeneralBackend(env.general).
		WithProfileService(env.profile.srv.URL).
		WithEventSink(env.sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(mgr.Close)
	env.mgr = mgr
	return env
}

// seedRecord persists a credential record directly into a backend.
func seedRecord(t *testing.T, backend credstore.Backend, token string, user *User, exp time.Time) {
	t.Helper()
	ctx := context.Background()
	if err := backend.Set(ctx, credstore.KeyToken, token); err != nil {
		t.Fatal(err)
	}
	if user != nil {
		data, err := json.Marshal(user)
		if err != nil {
			t.Fatal(err)
		}
		if err := backend.Set(ctx, credstore.KeyUser, string(data)); err != nil {
			t.Fatal(err)
		}
	}
	if !exp.IsZero() {
		if err := backend.Set(ctx, credstore.KeyTokenExpiration, internal.FormatMillis(internal.TimeToMillis(exp))); err != nil {
			t.Fatal(err)
		}
	}
}
