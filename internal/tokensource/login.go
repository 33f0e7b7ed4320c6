package tokensource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/florianilch/proxy-console/internal/tokenstore"
)

// ErrInvalidCredentials is returned when the backend rejects a username/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// loginResponse accepts both the flat token pair and the nested
// {"user": ..., "token": {...}} shape some backend versions return.
type loginResponse struct {
	tokenPair
	Token *tokenPair `json:"token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// errorResponse is the backend's JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// Login authenticates with username and password and returns the issued pair.
func (c *Client) Login(ctx context.Context, username, password string) (tokenstore.CredentialPair, error) {
	var resp loginResponse
	status, err := c.postJSON(ctx, LoginPath, loginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		if status == http.StatusUnauthorized {
			return tokenstore.CredentialPair{}, fmt.Errorf("login: %w", ErrInvalidCredentials)
		}
		return tokenstore.CredentialPair{}, fmt.Errorf("login: %w", err)
	}

	pair := resp.tokenPair
	if resp.Token != nil {
		pair = *resp.Token
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return tokenstore.CredentialPair{}, errors.New("login: server response missing access_token or refresh_token")
	}

	return tokenstore.CredentialPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout revokes the refresh token on the backend. Callers treat it as
// best-effort and clear local storage regardless of the outcome.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	if _, err := c.postJSON(ctx, LogoutPath, logoutRequest{RefreshToken: refreshToken}, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// postJSON sends body as JSON and decodes a 2xx response into out (if non-nil).
// The returned status is 0 when no response was received.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshaling JSON request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(c.baseURL, path), bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, nil
}
