package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/florianilch/proxy-console/internal/tokenstore"
)

// Authenticator is the backend's auth API: login, renewal and logout.
type Authenticator interface {
	Renewer
	Login(ctx context.Context, username, password string) (tokenstore.CredentialPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Option configures a Session.
type Option func(*options)

type options struct {
	renewTimeout  time.Duration
	meterProvider metric.MeterProvider
}

// WithRenewTimeout bounds a single renewal. It should match the timeout of
// ordinary requests; zero means no bound beyond the Authenticator's own.
func WithRenewTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.renewTimeout = timeout
	}
}

// WithMeterProvider sets the provider for session counters.
// If not provided, the global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// Session is the credential context of one console. It is created once by the
// application root and injected into every component that builds outbound requests.
type Session struct {
	store       tokenstore.TokenStore
	auth        Authenticator
	coordinator *Coordinator
	terminator  *Terminator
	metrics     *instruments
}

// New creates a Session backed by store, using auth for login, renewal and logout.
func New(store tokenstore.TokenStore, auth Authenticator, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	if auth == nil {
		return nil, fmt.Errorf("missing authenticator")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	metrics, err := newInstruments(o.meterProvider)
	if err != nil {
		return nil, err
	}

	terminator := newTerminator(store, metrics)

	return &Session{
		store: store,
		auth:  auth,
		coordinator: &Coordinator{
			store:      store,
			renewer:    auth,
			terminator: terminator,
			metrics:    metrics,
			timeout:    o.renewTimeout,
		},
		terminator: terminator,
		metrics:    metrics,
	}, nil
}

// Login authenticates against the backend and stores the issued pair.
// A terminated session becomes authenticated again.
func (s *Session) Login(ctx context.Context, username, password string) error {
	pair, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	if err := s.terminator.Reset(ctx, pair); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}

	slog.InfoContext(ctx, "logged in", "username", username)
	return nil
}

// Logout revokes the refresh token on the backend (best-effort) and then clears
// local credentials unconditionally. Logout does not emit a TerminationEvent.
func (s *Session) Logout(ctx context.Context) error {
	pair, err := s.store.Get(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read credentials for logout", "error", err)
	}

	if pair.RefreshToken != "" {
		if err := s.auth.Logout(ctx, pair.RefreshToken); err != nil {
			slog.WarnContext(ctx, "backend logout failed", "error", err)
		}
	}

	if err := s.terminator.Reset(ctx, tokenstore.CredentialPair{}); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}

	slog.InfoContext(ctx, "logged out")
	return nil
}

// State returns the current session state.
func (s *Session) State(ctx context.Context) (State, error) {
	if s.coordinator.InFlight() {
		return StateRefreshing, nil
	}
	if s.terminator.Terminated(ctx) {
		return StateTerminated, nil
	}

	pair, err := s.store.Get(ctx)
	if err != nil {
		return StateAnonymous, fmt.Errorf("reading credentials: %w", err)
	}
	if pair.IsZero() {
		return StateAnonymous, nil
	}
	return StateAuthenticated, nil
}

// Subscribe registers fn for termination events. The returned function removes it.
func (s *Session) Subscribe(fn func(TerminationEvent)) (cancel func()) {
	return s.terminator.Subscribe(fn)
}

// Transport returns a RoundTripper that authenticates requests sent through base.
func (s *Session) Transport(base http.RoundTripper) *Transport {
	return &Transport{Base: base, session: s}
}

// Client returns an http.Client using the session transport over base.
func (s *Session) Client(base http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: s.Transport(base),
		Timeout:   timeout,
	}
}
