package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/proxy-console/internal/console"
	"github.com/florianilch/proxy-console/internal/gateway"
	"github.com/florianilch/proxy-console/internal/session"
	"github.com/florianilch/proxy-console/internal/tokensource"
)

// App is the application root: it owns the single Session and injects it into
// the console client and the gateway.
type App struct {
	cfg        *Config
	session    *session.Session
	console    *console.Client
	gateway    *gateway.Gateway
	closeStore func() error
}

// New creates a new App instance. No backend I/O is performed.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, closeStore, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	base := http.DefaultTransport.(*http.Transport).Clone()

	auth := tokensource.New(cfg.Backend.BaseURL,
		tokensource.WithTransport(base),
		tokensource.WithTimeout(cfg.Backend.Timeout),
	)

	sess, err := session.New(store, auth, session.WithRenewTimeout(cfg.Backend.Timeout))
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	gw, err := gateway.New(sess, cfg.Backend.BaseURL, base)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	return &App{
		cfg:        cfg,
		session:    sess,
		console:    console.New(cfg.Backend.BaseURL, sess.Client(base, cfg.Backend.Timeout)),
		gateway:    gw,
		closeStore: closeStore,
	}, nil
}

// Session returns the application's session.
func (a *App) Session() *session.Session { return a.session }

// Console returns the resource API client bound to the session.
func (a *App) Console() *console.Client { return a.console }

// Close releases the token store.
func (a *App) Close() error {
	return a.closeStore()
}

// Start runs the gateway and blocks until ctx is done or the server fails.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Address()
	var shutdownFuncs []func(context.Context) error

	shutdownFuncs = append(shutdownFuncs, func(context.Context) error { return a.Close() })

	unsubscribe := a.session.Subscribe(func(e session.TerminationEvent) {
		slog.WarnContext(gCtx, "session terminated, login required", "cause", e.Cause)
	})
	shutdownFuncs = append(shutdownFuncs, func(context.Context) error {
		unsubscribe()
		return nil
	})

	slog.InfoContext(gCtx, "starting gateway", "address", address, "backend", a.cfg.Backend.BaseURL)
	gatewayErrCh, err := a.gateway.Start(gCtx, address)
	if err != nil {
		unsubscribe()
		return errors.Join(fmt.Errorf("gateway startup failed: %w", err), a.Close())
	}
	shutdownFuncs = append(shutdownFuncs, a.gateway.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-gatewayErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "gateway runtime error", "error", err)
				return fmt.Errorf("gateway: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if state, err := a.session.State(gCtx); err == nil {
		slog.InfoContext(gCtx, "application ready", "address", a.gateway.Addr(), "session", state.String())
	}

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
