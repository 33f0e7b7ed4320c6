package tokensource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every auth request unless WithTimeout overrides it.
const DefaultTimeout = 30 * time.Second

// ErrRejected is returned when the backend answers an auth request with a 4xx status.
var ErrRejected = errors.New("rejected by backend")

// Option configures a Client.
type Option func(*clientConfig)

// clientConfig holds configuration for New.
type clientConfig struct {
	baseTransport http.RoundTripper
	timeout       time.Duration
}

// WithTransport sets a custom base transport for auth requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *clientConfig) {
		c.baseTransport = transport
	}
}

// WithTimeout bounds each auth request, including renewal.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// Client calls the backend's login, refresh and logout endpoints.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	oauth2Config *oauth2.Config
}

// New creates a Client for the backend API rooted at baseURL (e.g. "https://host/api").
func New(baseURL string, opts ...Option) *Client {
	cfg := &clientConfig{
		baseTransport: http.DefaultTransport,
		timeout:       DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		baseURL: baseURL,
		// Wraps provided or default transport for connection pooling
		httpClient: &http.Client{
			Timeout: cfg.timeout,
			Transport: &tokenRefreshTransport{
				base: cfg.baseTransport,
			},
		},
		oauth2Config: &oauth2.Config{
			Endpoint: NewEndpoint(baseURL),
		},
	}
}

// Renew exchanges the refresh token for a new access token.
// The refresh token itself is not rotated by the backend.
func (c *Client) Renew(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", errors.New("missing refresh token")
	}

	// oauth2 package injects custom HTTP clients via context (oauth2.HTTPClient key).
	oauthCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	ts := c.oauth2Config.TokenSource(oauthCtx, &oauth2.Token{
		RefreshToken: refreshToken,
		// AccessToken populated by the refresh grant
	})

	token, err := ts.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			return "", fmt.Errorf("renewing access token: %w (status %d)", ErrRejected, retrieveErr.Response.StatusCode)
		}
		return "", fmt.Errorf("renewing access token: %w", err)
	}

	return token.AccessToken, nil
}

// tokenRefreshTransport converts oauth2's form-encoded token refresh requests
// to the JSON format the backend's refresh endpoint binds.
// Requests that are already JSON (login, logout) pass through untouched.
type tokenRefreshTransport struct {
	base http.RoundTripper
}

// Compile-time check that tokenRefreshTransport implements http.RoundTripper.
var _ http.RoundTripper = (*tokenRefreshTransport)(nil)

// RoundTrip intercepts form-encoded requests and converts them to JSON.
func (t *tokenRefreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body == nil || req.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
		return t.base.RoundTrip(req)
	}

	// Defer close since we consume the body entirely and create a new body for the cloned request.
	// Unlike passthrough patterns, we don't forward the original body to the next RoundTripper.
	defer func() { _ = req.Body.Close() }()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}

	formData, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing form data: %w", err)
	}

	// Convert all form data to JSON format
	jsonData := make(map[string]string, len(formData))
	for key, values := range formData {
		jsonData[key] = values[0] // RFC 6749 parameters are single-valued
	}

	jsonBody, err := json.Marshal(jsonData)
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON request: %w", err)
	}

	newReq := req.Clone(req.Context())
	newReq.Body = io.NopCloser(bytes.NewReader(jsonBody))
	newReq.ContentLength = int64(len(jsonBody))
	newReq.Header.Set("Content-Type", "application/json")

	return t.base.RoundTrip(newReq)
}
