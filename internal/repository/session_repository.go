package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "session:user:"
)

// revokeUserSessions drops every session listed in a user's set and the set
// itself in one server-side step, so a session registered concurrently is
// either revoked with the rest or left intact with its set membership.
var revokeUserSessions = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
for _, id in ipairs(ids) do
	redis.call('DEL', ARGV[1] .. id)
end
redis.call('DEL', KEYS[1])
return #ids
`)

// SessionRepository tracks issued session ids in Redis so tokens can be
// revoked before they expire. Without a client every session is accepted.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// Create registers jti for userID with the given ttl.
func (r *SessionRepository) Create(ctx context.Context, jti, userID string, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	userKey := userSessionKeyPrefix + userID
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+jti, userID, ttl)
	pipe.SAdd(ctx, userKey, jti)
	pipe.Expire(ctx, userKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	return nil
}

// Exists reports whether jti is still registered.
func (r *SessionRepository) Exists(ctx context.Context, jti string) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	if err := r.client.Get(ctx, sessionKeyPrefix+jti).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get session: %w", err)
	}
	return true, nil
}

// Delete revokes a single session.
func (r *SessionRepository) Delete(ctx context.Context, jti, userID string) error {
	if r.client == nil {
		return nil
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+jti)
	pipe.SRem(ctx, userSessionKeyPrefix+userID, jti)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser revokes every session of userID and returns how many
// were removed.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	if r.client == nil {
		return 0, nil
	}
	n, err := revokeUserSessions.Run(ctx, r.client, []string{userSessionKeyPrefix + userID}, sessionKeyPrefix).Int()
	if err != nil {
		return 0, fmt.Errorf("redis revoke sessions: %w", err)
	}
	return n, nil
}
