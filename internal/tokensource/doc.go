// Package tokensource talks to the admin backend's authentication endpoints:
// login, access token renewal and logout.
//
// Renewal reuses golang.org/x/oauth2's refresh grant. The backend deviates from
// the standard in one way that requires custom handling:
//   - Token refresh uses JSON-encoded requests (standard OAuth2 uses form-encoding)
//
// # Usage
//
//	c := tokensource.New("https://proxy.example.com/api")
//	pair, err := c.Login(ctx, "admin", "secret")
//	access, err := c.Renew(ctx, pair.RefreshToken)
//
// # Custom Base Transport
//
// Configure a custom base transport for auth requests (e.g., for proxies or custom timeouts):
//
//	c := tokensource.New(
//		baseURL,
//		tokensource.WithTransport(customTransport),
//		tokensource.WithTimeout(10*time.Second),
//	)
//
// Auth requests never pass through the session transport, so a rejected renewal
// cannot trigger another renewal.
package tokensource
