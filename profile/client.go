package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrRejected reports a request the backend refused (validation, policy).
	ErrRejected = errors.New("profile service rejected request")
	// ErrServiceUnavailable wraps transport failures and 5xx responses.
	ErrServiceUnavailable = errors.New("profile service unavailable")
)

// User is the application-level user record as served by the backend.
type User struct {
	ID     string `json:"_id"`
	UID    string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar"`
}

// Resolution is the outcome of resolving a provider identity: Found=false
// means the provider account has no application user yet, which is an
// expected state during federated first sign-in, not an error.
type Resolution struct {
	Found bool
	User  *User
}

// RegisterInput is the payload for creating an application user for an
// already-created provider account. AvatarPath uploads a local file as
// multipart; AvatarURL passes a remote image reference through instead.
type RegisterInput struct {
	ProviderID     string
	Email          string
	Name           string
	Phone          string
	Role           string
	AvatarPath     string
	AvatarURL      string
	IdempotencyKey string
}

// UpdateInput carries the mutable profile fields. Empty fields are omitted
// from the request and left unchanged by the backend.
type UpdateInput struct {
	Name       string
	Phone      string
	AvatarPath string
}

// Client talks to the user service. The http.Client is shared with the
// session manager so requests carry the session's bearer token.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a Client for the service at base.
func NewClient(base string, hc *http.Client) (*Client, error) {
	if base == "" {
		return nil, errors.New("profile service base URL required")
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), client: hc}, nil
}

// Resolve looks up the application user for a provider UID. An unknown UID is
// Found=false, not an error: the service reports it as a 404 or an
// unsuccessful envelope and both mean the same thing here.
//
//	Performance: 1 HTTP round trip.
func (c *Client) Resolve(ctx context.Context, providerUID string) (Resolution, error) {
	body, err := json.Marshal(map[string]string{"uid": providerUID})
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/getUserInfo", bytes.NewReader(body))
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	user, status, err := c.do(req)
	if status == http.StatusNotFound {
		return Resolution{}, nil
	}
	if err != nil {
		// The only thing this endpoint rejects is an unknown UID.
		if errors.Is(err, ErrRejected) {
			return Resolution{}, nil
		}
		return Resolution{}, err
	}
	if user == nil {
		return Resolution{}, nil
	}
	return Resolution{Found: true, User: user}, nil
}

// Register creates the application user. With AvatarPath set the request is
// multipart/form-data carrying the file; otherwise it is plain JSON.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*User, error) {
	var req *http.Request
	var err error
	if in.AvatarPath != "" {
		req, err = c.multipartRegister(ctx, in)
	} else {
		req, err = c.jsonRegister(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	if in.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", in.IdempotencyKey)
	}

	user, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: registration response carried no user", ErrServiceUnavailable)
	}
	return user, nil
}

// Update modifies the profile of the user with the given backend ID and
// returns the updated record.
func (c *Client) Update(ctx context.Context, userID string, in UpdateInput) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrRejected)
	}

	fields := map[string]string{}
	if in.Name != "" {
		fields["name"] = in.Name
	}
	if in.Phone != "" {
		fields["phone"] = in.Phone
	}

	var req *http.Request
	var err error
	url := c.base + "/update-profile/" + userID
	if in.AvatarPath != "" {
		var body bytes.Buffer
		var ctype string
		ctype, err = writeMultipart(&body, fields, in.AvatarPath)
		if err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPut, url, &body)
		if err == nil {
			req.Header.Set("Content-Type", ctype)
		}
	} else {
		var payload []byte
		payload, err = json.Marshal(fields)
		if err == nil {
			req, err = http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
		}
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	user, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: update response carried no user", ErrServiceUnavailable)
	}
	return user, nil
}

// Get fetches a user by backend ID.
func (c *Client) Get(ctx context.Context, userID string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/users/"+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	user, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: response carried no user", ErrServiceUnavailable)
	}
	return user, nil
}

func (c *Client) jsonRegister(ctx context.Context, in RegisterInput) (*http.Request, error) {
	payload, err := json.Marshal(map[string]string{
		"uid":    in.ProviderID,
		"email":  in.Email,
		"name":   in.Name,
		"phone":  in.Phone,
		"role":   in.Role,
		"avatar": in.AvatarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/register", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) multipartRegister(ctx context.Context, in RegisterInput) (*http.Request, error) {
	fields := map[string]string{
		"uid":   in.ProviderID,
		"email": in.Email,
		"name":  in.Name,
		"phone": in.Phone,
		"role":  in.Role,
	}
	var body bytes.Buffer
	ctype, err := writeMultipart(&body, fields, in.AvatarPath)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/register", &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", ctype)
	return req, nil
}

func writeMultipart(buf *bytes.Buffer, fields map[string]string, avatarPath string) (contentType string, err error) {
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
	}

	f, err := os.Open(avatarPath)
	if err != nil {
		return "", fmt.Errorf("%w: avatar: %v", ErrRejected, err)
	}
	defer f.Close()
	part, err := w.CreateFormFile("avatar", filepath.Base(avatarPath))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return w.FormDataContentType(), nil
}

// envelope is the service's uniform response wrapper. Success is a pointer so
// endpoints that omit it (GET /users/{id}) still decode.
type envelope struct {
	Success *bool  `json:"success"`
	User    *User  `json:"user"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e *envelope) rejectionMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// do executes the request and unwraps the response envelope. The status code
// is returned so callers can special-case 404.
func (c *Client) do(req *http.Request) (*User, int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	switch {
	case resp.StatusCode >= 500:
		return nil, resp.StatusCode, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		if decodeErr == nil && env.rejectionMessage() != "" {
			return nil, resp.StatusCode, fmt.Errorf("%w: %s", ErrRejected, env.rejectionMessage())
		}
		return nil, resp.StatusCode, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	if decodeErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: decoding response: %v", ErrServiceUnavailable, decodeErr)
	}
	if env.Success != nil && !*env.Success {
		if msg := env.rejectionMessage(); msg != "" {
			return nil, resp.StatusCode, fmt.Errorf("%w: %s", ErrRejected, msg)
		}
		return nil, resp.StatusCode, ErrRejected
	}
	return env.User, resp.StatusCode, nil
}
