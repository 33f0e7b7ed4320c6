package session

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/florianilch/proxy-console/internal/tokenstore"
)

// Transport is an http.RoundTripper that authenticates requests with the session's
// access token and transparently renews it once per request on a 401.
type Transport struct {
	// Base is the underlying transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	session *Session
}

// Compile-time check that Transport implements http.RoundTripper.
var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip implements http.RoundTripper interface.
//
// Transport errors are returned unchanged. When renewal fails, the original 401
// response is returned and the session is terminated.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req, err := replayable(req)
	if err != nil {
		return nil, err
	}

	pair, err := t.session.store.Get(req.Context())
	if err != nil {
		closeBody(req)
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	attempt := NewAttempt(req)
	resp, err := t.submit(attempt, pair)
	if err != nil {
		return nil, err
	}
	return t.guard(attempt, pair, resp)
}

// submit decorates the attempt with pair and sends it.
func (t *Transport) submit(attempt Attempt, pair tokenstore.CredentialPair) (*http.Response, error) {
	body, err := attempt.body()
	if err != nil {
		return nil, err
	}

	out := Decorate(attempt.Request, pair)
	out.Body = body
	return t.base().RoundTrip(out)
}

// guard inspects the response for the expiry signal and drives renewal and retry.
func (t *Transport) guard(attempt Attempt, pair tokenstore.CredentialPair, resp *http.Response) (*http.Response, error) {
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	ctx := attempt.Request.Context()
	if attempt.Retried {
		slog.DebugContext(ctx, "expiry signal on retried request, giving up",
			"method", attempt.Request.Method, "path", attempt.Request.URL.Path)
		return resp, nil
	}

	renewed, err := t.session.coordinator.Renew(ctx, pair.AccessToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			discard(resp)
			return nil, ctxErr
		}
		// Renewal failure surfaces as the original request's failure
		return resp, nil
	}

	if !attempt.Replayable() {
		// The renewed token serves later requests; this body is already spent.
		slog.DebugContext(ctx, "request body cannot be replayed, not retrying",
			"method", attempt.Request.Method, "path", attempt.Request.URL.Path)
		return resp, nil
	}

	discard(resp)

	retry := attempt.Retry()
	t.session.metrics.retries.Add(ctx, 1)
	slog.DebugContext(ctx, "retrying request with renewed access token",
		"method", retry.Request.Method, "path", retry.Request.URL.Path)

	resp, err = t.submit(retry, renewed)
	if err != nil {
		return nil, err
	}
	return t.guard(retry, renewed, resp)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// discard drains and closes a response body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}

// closeBody honours the RoundTripper contract of always closing the request body.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
