package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/track-invoice/track-invoice/internal/shared"
)

const sessionKeyPrefix = "trackinvoice:session:"

// SessionStore keeps bearer sessions in Redis. Every lookup slides the
// expiry forward by the configured TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create stores the principal under a fresh opaque token.
func (s *SessionStore) Create(ctx context.Context, p shared.Principal) (string, error) {
	token := uuid.NewString()
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(token), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store session: %w", err)
	}
	return token, nil
}

// Lookup resolves a token. Unknown or expired tokens yield ErrUnauthorized.
func (s *SessionStore) Lookup(ctx context.Context, token string) (*shared.Principal, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, fmt.Errorf("%w: malformed session token", shared.ErrUnauthorized)
	}
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: session expired", shared.ErrUnauthorized)
		}
		return nil, err
	}
	var p shared.Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := s.client.Expire(ctx, s.key(token), s.ttl).Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Revoke deletes the session. Revoking an unknown token is not an error.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *SessionStore) key(token string) string {
	return sessionKeyPrefix + token
}
