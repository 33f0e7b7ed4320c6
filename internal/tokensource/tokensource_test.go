package tokensource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newBackend serves the auth endpoints under /api and records the decoded JSON bodies.
func newBackend(t *testing.T, handler func(w http.ResponseWriter, path string, body map[string]string)) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s: expected JSON request, got Content-Type %q", r.URL.Path, ct)
		}
		body := map[string]string{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("%s: invalid JSON body: %v", r.URL.Path, err)
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, strings.TrimPrefix(r.URL.Path, "/api"), body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRenew(t *testing.T) {
	var received map[string]string
	server := newBackend(t, func(w http.ResponseWriter, path string, body map[string]string) {
		if path != RefreshPath {
			t.Errorf("unexpected path %s", path)
		}
		received = body
		_, _ = w.Write([]byte(`{"access_token":"new123","expires_at":1893456000}`))
	})

	c := New(server.URL + "/api")
	access, err := c.Renew(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("Renew failed: %v", err)
	}
	if access != "new123" {
		t.Errorf("access token = %q, want new123", access)
	}
	if received["refresh_token"] != "r-1" {
		t.Errorf("refresh_token = %q, want r-1", received["refresh_token"])
	}
	if received["grant_type"] != "refresh_token" {
		t.Errorf("grant_type = %q, want refresh_token", received["grant_type"])
	}
}

func TestRenewRejected(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, _ string, _ map[string]string) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid refresh token"}`))
	})

	c := New(server.URL + "/api")
	_, err := c.Renew(context.Background(), "expired")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestRenewMissingAccessToken(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, _ string, _ map[string]string) {
		_, _ = w.Write([]byte(`{"expires_at":1893456000}`))
	})

	c := New(server.URL + "/api")
	if _, err := c.Renew(context.Background(), "r-1"); err == nil {
		t.Fatal("expected error for response without access_token")
	}
}

func TestRenewNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := New(url + "/api")
	_, err := c.Renew(context.Background(), "r-1")
	if err == nil {
		t.Fatal("expected network error")
	}
	if errors.Is(err, ErrRejected) {
		t.Errorf("network failure must not be reported as rejection: %v", err)
	}
}

func TestRenewTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	c := New(server.URL+"/api", WithTimeout(50*time.Millisecond))
	if _, err := c.Renew(context.Background(), "r-1"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestRenewEmptyRefreshToken(t *testing.T) {
	c := New("http://127.0.0.1:1/api")
	if _, err := c.Renew(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty refresh token")
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{
			name:     "flat token pair",
			response: `{"access_token":"abc123","refresh_token":"r-1"}`,
		},
		{
			name:     "nested token pair with user",
			response: `{"user":{"id":1,"username":"admin"},"token":{"access_token":"abc123","refresh_token":"r-1","expires_at":1893456000}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newBackend(t, func(w http.ResponseWriter, path string, body map[string]string) {
				if path != LoginPath {
					t.Errorf("unexpected path %s", path)
				}
				if body["username"] != "admin" || body["password"] != "secret" {
					t.Errorf("unexpected credentials %v", body)
				}
				_, _ = w.Write([]byte(tt.response))
			})

			pair, err := New(server.URL+"/api").Login(context.Background(), "admin", "secret")
			if err != nil {
				t.Fatalf("Login failed: %v", err)
			}
			if pair.AccessToken != "abc123" || pair.RefreshToken != "r-1" {
				t.Errorf("unexpected pair %+v", pair)
			}
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, _ string, _ map[string]string) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	})

	_, err := New(server.URL+"/api").Login(context.Background(), "admin", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginIncompleteResponse(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, _ string, _ map[string]string) {
		_, _ = w.Write([]byte(`{"access_token":"abc123"}`))
	})

	if _, err := New(server.URL+"/api").Login(context.Background(), "admin", "secret"); err == nil {
		t.Fatal("expected error when refresh_token is missing")
	}
}

func TestLogout(t *testing.T) {
	var received map[string]string
	server := newBackend(t, func(w http.ResponseWriter, path string, body map[string]string) {
		if path != LogoutPath {
			t.Errorf("unexpected path %s", path)
		}
		received = body
		_, _ = w.Write([]byte(`{"message":"Logged out successfully"}`))
	})

	if err := New(server.URL+"/api").Logout(context.Background(), "r-1"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if received["refresh_token"] != "r-1" {
		t.Errorf("refresh_token = %q, want r-1", received["refresh_token"])
	}
}

func TestNewEndpoint(t *testing.T) {
	got := NewEndpoint("https://proxy.example.com/api/").TokenURL
	if got != "https://proxy.example.com/api/auth/refresh" {
		t.Errorf("TokenURL = %q", got)
	}
}
