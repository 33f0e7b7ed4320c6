package tokenstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Hash fields holding the two credential slots.
const (
	redisFieldAccessToken  = "access_token"
	redisFieldRefreshToken = "refresh_token"
)

// RedisStore keeps the pair in a Redis hash shared by every process that points
// at the same key. Writes from one console are visible to all others.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// Compile-time check to ensure RedisStore implements TokenStore
var _ TokenStore = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore using the given client and hash key.
func NewRedisStore(client redis.UniversalClient, key string) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}

	return &RedisStore{
		client: client,
		key:    key,
	}, nil
}

// Get returns the pair stored in the hash. A missing hash yields an empty pair.
func (r *RedisStore) Get(ctx context.Context) (CredentialPair, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return CredentialPair{}, fmt.Errorf("reading %s: %w", r.key, err)
	}

	return CredentialPair{
		AccessToken:  fields[redisFieldAccessToken],
		RefreshToken: fields[redisFieldRefreshToken],
	}, nil
}

// Set replaces the hash inside a MULTI/EXEC block so readers never see a partial pair.
func (r *RedisStore) Set(ctx context.Context, pair CredentialPair) error {
	values := make([]any, 0, 4)
	if pair.AccessToken != "" {
		values = append(values, redisFieldAccessToken, pair.AccessToken)
	}
	if pair.RefreshToken != "" {
		values = append(values, redisFieldRefreshToken, pair.RefreshToken)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(values) > 0 {
			pipe.HSet(ctx, r.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", r.key, err)
	}
	return nil
}

// Clear deletes the hash.
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", r.key, err)
	}
	return nil
}
