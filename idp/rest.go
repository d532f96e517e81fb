package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RESTBinding speaks the hosted provider's REST API (identity-toolkit style
// verb endpoints plus a secure-token refresh endpoint). It holds the live
// identity and its refresh token in memory; nothing is persisted here.
type RESTBinding struct {
	apiKey    string
	authBase  string
	tokenBase string
	client    *http.Client

	mu           sync.Mutex
	identity     *Identity
	refreshToken string
}

// RESTConfig configures a RESTBinding. APIKey is required; the base URLs
// default to the hosted provider endpoints and are overridable for emulators
// and tests.
type RESTConfig struct {
	APIKey    string
	AuthBase  string // default https://identitytoolkit.googleapis.com
	TokenBase string // default https://securetoken.googleapis.com
	Client    *http.Client
}

// NewRESTBinding creates a RESTBinding from cfg.
func NewRESTBinding(cfg RESTConfig) (*RESTBinding, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider API key required")
	}
	b := &RESTBinding{
		apiKey:    cfg.APIKey,
		authBase:  strings.TrimRight(cfg.AuthBase, "/"),
		tokenBase: strings.TrimRight(cfg.TokenBase, "/"),
		client:    cfg.Client,
	}
	if b.authBase == "" {
		b.authBase = "https://identitytoolkit.googleapis.com"
	}
	if b.tokenBase == "" {
		b.tokenBase = "https://securetoken.googleapis.com"
	}
	if b.client == nil {
		b.client = &http.Client{Timeout: 30 * time.Second}
	}
	return b, nil
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// SignInWithPassword exchanges an email/password pair for an identity.
func (b *RESTBinding) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	var out signInResponse
	err := b.post(ctx, b.authBase+"/v1/accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return b.adopt(out), nil
}

// SignInWithIDToken exchanges a Google OAuth ID token for an identity. The
// provider creates the account on first sign-in.
func (b *RESTBinding) SignInWithIDToken(ctx context.Context, idToken string) (*Identity, error) {
	var out struct {
		signInResponse
		OauthIDToken string `json:"oauthIdToken"`
	}
	err := b.post(ctx, b.authBase+"/v1/accounts:signInWithIdp", map[string]any{
		"postBody":            "id_token=" + idToken + "&providerId=google.com",
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return b.adopt(out.signInResponse), nil
}

// SignUp creates a provider account and returns the signed-in identity.
func (b *RESTBinding) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	var out signInResponse
	err := b.post(ctx, b.authBase+"/v1/accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return b.adopt(out), nil
}

// CurrentUser returns the live identity re-validated against the provider.
func (b *RESTBinding) CurrentUser(ctx context.Context) (*Identity, error) {
	b.mu.Lock()
	id := b.identity
	b.mu.Unlock()
	if id == nil {
		return nil, ErrNoLiveSession
	}

	var out struct {
		Users []struct {
			LocalID     string `json:"localId"`
			Email       string `json:"email"`
			DisplayName string `json:"displayName"`
			PhotoURL    string `json:"photoUrl"`
		} `json:"users"`
	}
	err := b.post(ctx, b.authBase+"/v1/accounts:lookup", map[string]any{
		"idToken": id.Token.Value,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Users) == 0 {
		return nil, ErrUserNotFound
	}

	u := out.Users[0]
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.identity == nil {
		return nil, ErrNoLiveSession
	}
	b.identity.UID = u.LocalID
	b.identity.Email = u.Email
	b.identity.DisplayName = u.DisplayName
	b.identity.PhotoURL = u.PhotoURL
	cp := *b.identity
	return &cp, nil
}

// ForceRefresh exchanges the held refresh token for a fresh ID token.
func (b *RESTBinding) ForceRefresh(ctx context.Context) (Token, error) {
	b.mu.Lock()
	rt := b.refreshToken
	b.mu.Unlock()
	if rt == "" {
		return Token{}, ErrNoLiveSession
	}

	var out struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	err := b.post(ctx, b.tokenBase+"/v1/token", map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": rt,
	}, &out)
	if err != nil {
		return Token{}, err
	}

	tok := Token{Value: out.IDToken, ExpiresAt: expiresAt(out.ExpiresIn)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if out.RefreshToken != "" {
		b.refreshToken = out.RefreshToken
	}
	if b.identity != nil {
		b.identity.Token = tok
	}
	return tok, nil
}

// SignOut discards the live identity and refresh token.
func (b *RESTBinding) SignOut(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.identity = nil
	b.refreshToken = ""
	return nil
}

func (b *RESTBinding) adopt(resp signInResponse) *Identity {
	id := &Identity{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoURL,
		Token:       Token{Value: resp.IDToken, ExpiresAt: expiresAt(resp.ExpiresIn)},
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.identity = id
	b.refreshToken = resp.RefreshToken
	cp := *id
	return &cp
}

func (b *RESTBinding) post(ctx context.Context, url string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"?key="+b.apiKey, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return classify(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// classify maps provider error codes onto the package sentinels. Unknown 4xx
// codes surface as ErrProviderUnavailable with the code attached.
func classify(status int, body []byte) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	code := payload.Error.Message
	// Codes may carry a suffix, e.g. "WEAK_PASSWORD : ...".
	if i := strings.IndexAny(code, " :"); i > 0 {
		code = code[:i]
	}

	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return ErrInvalidCredentials
	case "INVALID_EMAIL":
		return ErrInvalidEmail
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	case "EMAIL_EXISTS":
		return ErrEmailInUse
	case "USER_NOT_FOUND", "USER_DISABLED":
		return ErrUserNotFound
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN":
		return ErrTokenExpired
	}
	if code != "" {
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, code)
	}
	return fmt.Errorf("%w: status %d", ErrProviderUnavailable, status)
}

func expiresAt(expiresIn string) time.Time {
	secs, err := strconv.ParseInt(expiresIn, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(secs) * time.Second)
}
