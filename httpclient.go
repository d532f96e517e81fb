package authsession

import (
	"net/http"
	"sync/atomic"
)

// AuthTransport is an http.RoundTripper that injects the current session
// token as a bearer Authorization header. The token cell is swapped atomically
// by the Manager on every acquisition, refresh, and logout, so long-lived
// clients built over this transport never serve a stale header.
type AuthTransport struct {
	base  http.RoundTripper
	token atomic.Value // string
}

// NewAuthTransport wraps base. A nil base falls back to
// http.DefaultTransport.
func NewAuthTransport(base http.RoundTripper) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &AuthTransport{base: base}
	t.token.Store("")
	return t
}

// SetToken installs the token used for subsequent requests. An empty token
// uninstalls the header.
func (t *AuthTransport) SetToken(token string) {
	t.token.Store(token)
}

// ClearToken uninstalls the header for subsequent requests.
func (t *AuthTransport) ClearToken() {
	t.token.Store("")
}

// Token returns the currently installed token.
func (t *AuthTransport) Token() string {
	v, _ := t.token.Load().(string)
	return v
}

// RoundTrip clones the request before mutating headers, per the
// http.RoundTripper contract. A caller-set Authorization header wins.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.Token()
	if token == "" || req.Header.Get("Authorization") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(clone)
}
