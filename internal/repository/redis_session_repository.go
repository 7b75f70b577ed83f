package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/waranyu/saas-admin-platform/internal/domain"
	"github.com/waranyu/saas-admin-platform/pkg/redis"
)

// SessionRepository defines the interface for refresh session storage
type SessionRepository interface {
	Store(ctx context.Context, session *domain.Session) error
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	Delete(ctx context.Context, refreshToken string) error
}

const sessionKeyPrefix = "session:"

// RedisSessionRepository implements SessionRepository using Redis.
// Sessions are keyed by refresh token and expire with the token.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository creates a new RedisSessionRepository
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// Store persists a session with a TTL matching its expiry
func (r *RedisSessionRepository) Store(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return r.client.Set(ctx, sessionKeyPrefix+session.RefreshToken, data, ttl).Err()
}

// GetByRefreshToken retrieves a session by refresh token.
// Returns (nil, nil) when the session does not exist or has expired.
func (r *RedisSessionRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+refreshToken).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	session := &domain.Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// Delete removes a session, revoking its refresh token
func (r *RedisSessionRepository) Delete(ctx context.Context, refreshToken string) error {
	return r.client.Del(ctx, sessionKeyPrefix+refreshToken).Err()
}
