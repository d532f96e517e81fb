package authsession

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthTransportInjectsBearer(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	t.Cleanup(srv.Close)

	tr := NewAuthTransport(nil)
	client := &http.Client{Transport: tr}

	// No token installed yet.
	if _, err := client.Get(srv.URL); err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("header = %q, want none", got)
	}

	tr.SetToken("tok-1")
	if _, err := client.Get(srv.URL); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer tok-1" {
		t.Fatalf("header = %q", got)
	}

	// A swapped token takes effect on the next request.
	tr.SetToken("tok-2")
	if _, err := client.Get(srv.URL); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer tok-2" {
		t.Fatalf("header = %q", got)
	}

	tr.ClearToken()
	if _, err := client.Get(srv.URL); err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("header = %q, want uninstalled", got)
	}
}

func TestAuthTransportRespectsCallerHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	t.Cleanup(srv.Close)

	tr := NewAuthTransport(nil)
	tr.SetToken("tok-1")
	client := &http.Client{Transport: tr}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer custom")
	if _, err := client.Do(req); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer custom" {
		t.Fatalf("header = %q, caller header must win", got)
	}
}

func TestAuthTransportDoesNotMutateOriginalRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	tr := NewAuthTransport(nil)
	tr.SetToken("tok-1")
	client := &http.Client{Transport: tr}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Do(req); err != nil {
		t.Fatal(err)
	}
	if h := req.Header.Get("Authorization"); h != "" {
		t.Fatalf("original request mutated: %q", h)
	}
}
