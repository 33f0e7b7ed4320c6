package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/florianilch/proxy-console/internal/tokenstore"
)

// fakeAuth is a scripted Authenticator that counts renewal calls.
type fakeAuth struct {
	renewCalls atomic.Int32
	renew      func(ctx context.Context, refreshToken string) (string, error)

	mu          sync.Mutex
	loginPair   tokenstore.CredentialPair
	loginErr    error
	logoutCalls []string
	logoutErr   error
}

func (f *fakeAuth) Renew(ctx context.Context, refreshToken string) (string, error) {
	f.renewCalls.Add(1)
	return f.renew(ctx, refreshToken)
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (tokenstore.CredentialPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginPair, f.loginErr
}

func (f *fakeAuth) Logout(_ context.Context, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls = append(f.logoutCalls, refreshToken)
	return f.logoutErr
}

// renewTo returns a renew func that always hands out token.
func renewTo(token string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) {
		return token, nil
	}
}

// recordedRequest is what the resource backend saw.
type recordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          string
}

// resourceBackend accepts exactly one bearer token and answers 401 otherwise.
type resourceBackend struct {
	server *httptest.Server

	mu       sync.Mutex
	valid    string
	requests []recordedRequest

	unauthorized atomic.Int32
}

func newResourceBackend(t *testing.T, valid string) *resourceBackend {
	t.Helper()

	b := &resourceBackend{valid: valid}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		b.mu.Lock()
		b.requests = append(b.requests, recordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          string(body),
		})
		valid := b.valid
		b.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+valid {
			b.unauthorized.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid token"}`))
			return
		}
		_, _ = w.Write([]byte("ok:" + r.URL.Path))
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *resourceBackend) accept(token string) {
	b.mu.Lock()
	b.valid = token
	b.mu.Unlock()
}

func (b *resourceBackend) recorded() []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedRequest(nil), b.requests...)
}

func newTestSession(t *testing.T, pair tokenstore.CredentialPair, auth *fakeAuth) (*Session, *tokenstore.MemoryStore) {
	t.Helper()

	store := tokenstore.NewMemoryStore(pair)
	s, err := New(store, auth)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, store
}

// terminationCounter subscribes to s and counts events.
func terminationCounter(t *testing.T, s *Session) *atomic.Int32 {
	t.Helper()

	var n atomic.Int32
	cancel := s.Subscribe(func(TerminationEvent) { n.Add(1) })
	t.Cleanup(cancel)
	return &n
}

func get(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body failed: %v", err)
	}
	return resp.StatusCode, string(body)
}
