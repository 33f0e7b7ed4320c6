package tokensource

import (
	"strings"

	"golang.org/x/oauth2"
)

// Auth endpoint paths, relative to the backend API base URL.
const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
	LogoutPath  = "/auth/logout"
)

// NewEndpoint returns the OAuth2 endpoint used for access token renewal.
// The backend is a public client: no client credentials are sent.
func NewEndpoint(baseURL string) oauth2.Endpoint {
	return oauth2.Endpoint{
		TokenURL:  joinURL(baseURL, RefreshPath),
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func joinURL(baseURL, path string) string {
	return strings.TrimSuffix(baseURL, "/") + path
}
