package tokenstore

import (
	"context"
	"fmt"
	"os"
)

// EnvStore provides read-only access to a pair stored in environment variables.
// Suitable for scripted use with externally managed tokens; login, logout and
// termination cannot persist anything and report ErrReadOnly.
type EnvStore struct {
	accessKey  string
	refreshKey string
}

// Compile-time check to ensure EnvStore implements TokenStore
var _ TokenStore = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore for the given variables. The refresh variable
// is optional; the access variable must be set.
func NewEnvStore(accessKey, refreshKey string) (*EnvStore, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("access token environment key cannot be empty")
	}

	if _, exists := os.LookupEnv(accessKey); !exists {
		return nil, fmt.Errorf("environment variable %s not set", accessKey)
	}

	return &EnvStore{
		accessKey:  accessKey,
		refreshKey: refreshKey,
	}, nil
}

// Get returns the pair from the environment. Returns error if the access token is empty.
func (e *EnvStore) Get(ctx context.Context) (CredentialPair, error) {
	if err := ctx.Err(); err != nil {
		return CredentialPair{}, err
	}

	pair := CredentialPair{AccessToken: os.Getenv(e.accessKey)}
	if pair.AccessToken == "" {
		return CredentialPair{}, fmt.Errorf("environment variable %s is empty", e.accessKey)
	}
	if e.refreshKey != "" {
		pair.RefreshToken = os.Getenv(e.refreshKey)
	}
	return pair, nil
}

// Set is not supported for environment variables (they are read-only).
func (e *EnvStore) Set(ctx context.Context, _ CredentialPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("environment variables %s: %w", e.accessKey, ErrReadOnly)
}

// Clear is not supported for environment variables (they are read-only).
func (e *EnvStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("environment variables %s: %w", e.accessKey, ErrReadOnly)
}
