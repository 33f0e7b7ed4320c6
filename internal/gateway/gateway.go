// Package gateway serves the backend API on a local address with the session's
// credentials attached, plus a small session API for login, logout and
// termination events.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/florianilch/proxy-console/internal/observability/middleware"
	"github.com/florianilch/proxy-console/internal/session"
)

// Gateway is the local HTTP server in front of the backend.
type Gateway struct {
	mux     *http.ServeMux
	server  *http.Server
	addr    string
	session *session.Session

	heartbeat time.Duration
}

// Compile-time check that Gateway implements http.Handler
var _ http.Handler = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithHeartbeat sets the interval of keep-alive comments on the events stream.
func WithHeartbeat(d time.Duration) Option {
	return func(g *Gateway) {
		g.heartbeat = d
	}
}

// New creates a gateway forwarding /api/ to baseURL through the session transport.
// base is the transport underneath the session; nil means http.DefaultTransport.
func New(s *session.Session, baseURL string, base http.RoundTripper, opts ...Option) (*Gateway, error) {
	if s == nil {
		return nil, errors.New("missing session")
	}
	upstream, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme and host required", baseURL)
	}

	g := &Gateway{session: s, heartbeat: 30 * time.Second}
	for _, opt := range opts {
		opt(g)
	}

	reverseProxyHandler := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			// Credentials come from the session only.
			pr.Out.Header.Del("Authorization")
			if id, ok := middleware.RequestIDFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set(middleware.RequestIDHeader, id)
			}
		},
		// FlushInterval: -1 flushes as soon as the backend does.
		FlushInterval: -1,
		Transport:     s.Transport(base),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if r.Context().Err() != nil {
				return
			}
			slog.WarnContext(r.Context(), "backend request failed", "error", err)
			writeJSONError(r.Context(), w, "backend unavailable", http.StatusBadGateway)
		},
	}

	logger := slog.Default()
	common := []func(http.Handler) http.Handler{
		middleware.Logging(logger),
		middleware.RequestID(true),
		Recovery,
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", applyMiddlewares(http.StripPrefix("/api", reverseProxyHandler), common...))
	mux.Handle("POST /session/login", applyMiddlewares(http.HandlerFunc(g.handleLogin), common...))
	mux.Handle("POST /session/logout", applyMiddlewares(http.HandlerFunc(g.handleLogout), common...))
	mux.Handle("GET /session/state", applyMiddlewares(http.HandlerFunc(g.handleState), common...))
	// Long-lived stream, not access-logged.
	mux.Handle("GET /session/events", applyMiddlewares(http.HandlerFunc(g.handleEvents), Recovery))

	g.mux = mux
	return g, nil
}

// ServeHTTP implements http.Handler interface
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (g *Gateway) Start(ctx context.Context, address string) (<-chan error, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	g.addr = listener.Addr().String()
	g.server = &http.Server{
		Handler:      g,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // bounds the events stream too
		IdleTimeout:  90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := g.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Addr returns the listening address once started.
func (g *Gateway) Addr() string {
	return g.addr
}

// Shutdown performs graceful shutdown of the HTTP server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	if err := g.server.Shutdown(ctx); err != nil {
		_ = g.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, "application/json")
}
