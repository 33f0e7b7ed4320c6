package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/florianilch/proxy-console/internal/console"
	"github.com/florianilch/proxy-console/internal/session"
)

// fakeBackend implements the backend auth endpoints and one resource.
type fakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	access   string
	refresh  string
	renewals int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{access: "access-1", refresh: "refresh-1"}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "admin123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":  map[string]any{"id": 1, "username": req.Username},
			"token": map[string]string{"access_token": b.access, "refresh_token": b.refresh},
		})
	})

	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		defer b.mu.Unlock()
		if req.RefreshToken != b.refresh {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.renewals++
		b.access = "access-renewed"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": b.access, "token_type": "Bearer"})
	})

	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		valid := "Bearer " + b.access
		b.mu.Unlock()
		if r.Header.Get("Authorization") != valid {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid token"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"users":[{"id":1,"username":"admin"}],"total":1,"page":1,"limit":10}`))
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

// expire invalidates the current access token on the backend.
func (b *fakeBackend) expire() {
	b.mu.Lock()
	b.access = "access-rotated-by-server"
	b.mu.Unlock()
}

func newTestApp(t *testing.T, backendURL string) *App {
	t.Helper()

	cfg := &Config{
		Backend: BackendConfig{BaseURL: backendURL + "/api", Timeout: 5 * time.Second},
		Auth:    AuthConfig{Storage: TokenStorageTypeMemory},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults failed: %v", err)
	}
	cfg.Server.Port = 0

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestAppSessionLifecycle(t *testing.T) {
	backend := newFakeBackend(t)
	a := newTestApp(t, backend.URL)
	ctx := context.Background()

	if _, err := a.Console().ListUsers(ctx, console.UserQuery{}); !errors.Is(err, console.ErrUnauthorized) {
		t.Fatalf("anonymous request: expected ErrUnauthorized, got %v", err)
	}

	if err := a.Session().Login(ctx, "admin", "admin123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	page, err := a.Console().ListUsers(ctx, console.UserQuery{})
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("Total = %d, want 1", page.Total)
	}

	// Server-side expiry is recovered through the refresh endpoint
	backend.expire()

	if _, err := a.Console().ListUsers(ctx, console.UserQuery{}); err != nil {
		t.Fatalf("ListUsers after expiry failed: %v", err)
	}
	backend.mu.Lock()
	renewals := backend.renewals
	backend.mu.Unlock()
	if renewals != 1 {
		t.Errorf("expected one renewal, got %d", renewals)
	}

	if err := a.Session().Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if state, _ := a.Session().State(ctx); state != session.StateAnonymous {
		t.Errorf("state after logout = %v", state)
	}
}

func TestAppInvalidConfig(t *testing.T) {
	cfg := &Config{}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected validation error for empty config")
	}
}

func TestAppStartStops(t *testing.T) {
	backend := newFakeBackend(t)
	a := newTestApp(t, backend.URL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
