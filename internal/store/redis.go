// redis.go -- go-redis backed server-side session store.
//
// Two keys per browser session, both keyed by the SHA-256 hash of the session token:
//
//	session:<hash>        authenticated user id, TTL = session TTL
//	login_attempt:<hash>  pending state + PKCE verifier JSON, TTL = attempt TTL
//
// Absence of session:<hash> means the browser is unauthenticated.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore wraps a Redis client for session and login-attempt operations.
type RedisSessionStore struct {
	rdb *redis.Client
}

// NewRedisClient parses redisURL, connects, and pings to verify connectivity.
// Call once at startup from main.go; the returned client is safe for concurrent use.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	// Parse redisURL to get option values, if err return it
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewRedisSessionStore wraps an existing client. The caller owns and closes rdb.
func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb}
}

func sessionKey(hash string) string      { return "session:" + hash }
func loginAttemptKey(hash string) string { return "login_attempt:" + hash }

// CheckHealth pings Redis.
func (s *RedisSessionStore) CheckHealth(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// SaveLoginAttempt stores the pending attempt for a session, replacing any earlier one.
// A replaced attempt's state can no longer complete a callback.
func (s *RedisSessionStore) SaveLoginAttempt(ctx context.Context, hash string, attempt LoginAttempt, ttl time.Duration) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshaling login attempt: %w", err)
	}
	if err := s.rdb.Set(ctx, loginAttemptKey(hash), payload, ttl).Err(); err != nil {
		return fmt.Errorf("saving login attempt: %w", err)
	}
	return nil
}

// TakeLoginAttempt reads and deletes the pending attempt in one GETDEL.
// Of two concurrent callers only one gets the attempt; the other gets ErrCacheMiss.
func (s *RedisSessionStore) TakeLoginAttempt(ctx context.Context, hash string) (*LoginAttempt, error) {
	raw, err := s.rdb.GetDel(ctx, loginAttemptKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("taking login attempt: %w", err)
	}

	var attempt LoginAttempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return nil, fmt.Errorf("parsing login attempt: %w", err)
	}
	return &attempt, nil
}

// SetSessionUser binds userID to the session and (re)starts its TTL.
func (s *RedisSessionStore) SetSessionUser(ctx context.Context, hash string, userID uuid.UUID, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, sessionKey(hash), userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("setting session user: %w", err)
	}
	return nil
}

// GetSessionUser returns the user bound to the session.
// Returns ErrCacheMiss if the session is unauthenticated or expired.
func (s *RedisSessionStore) GetSessionUser(ctx context.Context, hash string) (uuid.UUID, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrCacheMiss
		}
		return uuid.Nil, fmt.Errorf("fetching session user: %w", err)
	}

	id, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing session user id: %w", err)
	}
	return id, nil
}

// DeleteSession removes the session and any pending attempt in one atomic pipeline.
func (s *RedisSessionStore) DeleteSession(ctx context.Context, hash string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(hash))
	pipe.Del(ctx, loginAttemptKey(hash))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
