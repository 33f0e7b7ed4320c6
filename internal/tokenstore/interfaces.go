package tokenstore

import (
	"context"
	"errors"
)

// ErrReadOnly is returned by backends that cannot persist credentials.
var ErrReadOnly = errors.New("token storage is read-only")

// CredentialPair holds the access and refresh tokens of one session.
// An empty string means the slot is absent.
type CredentialPair struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// IsZero reports whether both slots are absent.
func (p CredentialPair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// TokenStore reads and writes the credential pair to persistent storage.
//
// Implementations must write and clear both slots atomically: a reader never
// observes a fresh access token next to a cleared refresh token or vice versa.
type TokenStore interface {
	// Get returns the stored pair. A missing record yields an empty pair, not an error.
	Get(ctx context.Context) (CredentialPair, error)

	// Set replaces both slots with the given pair.
	Set(ctx context.Context, pair CredentialPair) error

	// Clear removes both slots.
	Clear(ctx context.Context) error
}
