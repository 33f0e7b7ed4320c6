package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoAccessToken is returned by Inspect when no access token is stored.
var ErrNoAccessToken = errors.New("no access token")

// Claims is the display information carried by the access token.
type Claims struct {
	Subject   string
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type accessClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Inspect decodes the stored access token without verifying its signature.
// The result is for display only; validity is decided by the backend.
func (s *Session) Inspect(ctx context.Context) (Claims, error) {
	pair, err := s.store.Get(ctx)
	if err != nil {
		return Claims{}, fmt.Errorf("reading credentials: %w", err)
	}
	if pair.AccessToken == "" {
		return Claims{}, ErrNoAccessToken
	}
	return parseClaims(pair.AccessToken)
}

func parseClaims(token string) (Claims, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("decoding access token: %w", err)
	}

	out := Claims{
		Subject:  claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
