package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/florianilch/proxy-console/internal/tokenstore"
)

var (
	// ErrRefreshFailed is returned when the access token could not be renewed.
	// The session has been terminated by the time a caller sees it.
	ErrRefreshFailed = errors.New("session refresh failed")

	// ErrNoRefreshToken is returned when renewal was needed but no refresh token was stored.
	ErrNoRefreshToken = fmt.Errorf("%w: no refresh token", ErrRefreshFailed)
)

// renewKey is the single-flight key; there is one credential pair per session.
const renewKey = "renew"

// Renewer exchanges a refresh token for a new access token.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (string, error)
}

// Coordinator renews the access token. At most one renewal is in flight at a
// time; concurrent callers wait for and share its outcome.
type Coordinator struct {
	store      tokenstore.TokenStore
	renewer    Renewer
	terminator *Terminator
	metrics    *instruments
	timeout    time.Duration

	group    singleflight.Group
	inFlight atomic.Bool
}

// Renew returns a pair with a renewed access token. staleAccessToken is the token
// the failed request carried; if storage already holds a different one, another
// renewal won the race and its result is returned without calling the backend.
//
// A cancelled ctx stops the caller from waiting but does not abort the shared
// renewal, which other callers may still depend on.
func (c *Coordinator) Renew(ctx context.Context, staleAccessToken string) (tokenstore.CredentialPair, error) {
	ch := c.group.DoChan(renewKey, func() (any, error) {
		return c.renew(context.WithoutCancel(ctx), staleAccessToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return tokenstore.CredentialPair{}, res.Err
		}
		return res.Val.(tokenstore.CredentialPair), nil
	case <-ctx.Done():
		return tokenstore.CredentialPair{}, ctx.Err()
	}
}

// InFlight reports whether a renewal is currently running.
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

func (c *Coordinator) renew(ctx context.Context, staleAccessToken string) (tokenstore.CredentialPair, error) {
	c.inFlight.Store(true)
	defer c.inFlight.Store(false)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	pair, err := c.store.Get(ctx)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("%w: reading credentials: %w", ErrRefreshFailed, err))
	}

	if pair.AccessToken != "" && pair.AccessToken != staleAccessToken {
		slog.DebugContext(ctx, "access token already renewed, skipping renewal")
		return pair, nil
	}

	if pair.RefreshToken == "" {
		return c.fail(ctx, ErrNoRefreshToken)
	}

	slog.DebugContext(ctx, "renewing access token")
	access, err := c.renewer.Renew(ctx, pair.RefreshToken)
	if err != nil {
		c.metrics.renewals.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failure")))
		return c.fail(ctx, fmt.Errorf("%w: %w", ErrRefreshFailed, err))
	}
	c.metrics.renewals.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "success")))

	// Only the access token rotates; the refresh token is kept as-is
	pair.AccessToken = access
	if err := c.store.Set(ctx, pair); err != nil {
		// The renewed token is still valid for the pending retries, but later
		// requests will start from the stale one again.
		slog.ErrorContext(ctx, "failed to persist renewed access token", "error", err)
	}

	slog.InfoContext(ctx, "access token renewed")
	return pair, nil
}

// fail terminates the session. The renewal deadline may already have expired,
// so clearing runs without it.
func (c *Coordinator) fail(ctx context.Context, err error) (tokenstore.CredentialPair, error) {
	c.terminator.Terminate(context.WithoutCancel(ctx), err)
	return tokenstore.CredentialPair{}, err
}
