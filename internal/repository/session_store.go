// Package repository contains the repository layer for the Finance API
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned when a session is absent or expired
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoPendingCode is returned by IncrAttempts when the session holds no code
	ErrNoPendingCode = errors.New("no pending code")
)

// SessionStore keeps the two-factor login state of a browser session.
// The TTL is fixed when the session is created, updates never extend it.
type SessionStore interface {
	Create(ctx context.Context) (string, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Set(ctx context.Context, id string, update models.SessionUpdate) error
	// IncrAttempts atomically adds one to the attempt counter of a pending code
	// and returns the new count
	IncrAttempts(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

const (
	sessionKeyPrefix = "session:"

	fieldCode      = "code"
	fieldIdentity  = "identity"
	fieldAttempts  = "attempts"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
)

// updateScript applies a partial update only while the key exists.
// ARGV[1] is the number of field/value pairs, followed by the pairs,
// followed by the fields to delete.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
local n = tonumber(ARGV[1])
for i = 1, n do
	redis.call('HSET', KEYS[1], ARGV[2*i], ARGV[2*i+1])
end
for i = 2*n+2, #ARGV do
	redis.call('HDEL', KEYS[1], ARGV[i])
end
return 1
`)

// incrAttemptsScript returns -1 when the key is gone, -2 when no code is pending
var incrAttemptsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
	return -2
end
return redis.call('HINCRBY', KEYS[1], ARGV[2], 1)
`)

// RedisSessionStore stores sessions as redis hashes that expire on their own
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a redis backed session store
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Create creates an empty session and returns its id
func (s *RedisSessionStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	key := sessionKey(id)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		fieldAttempts, 0,
		fieldCreatedAt, now.Format(time.RFC3339Nano),
		fieldExpiresAt, now.Add(s.ttl).Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to create session: %v", err)
	}
	return id, nil
}

// Get gets a session, ErrSessionNotFound once the key has expired
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	values, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}
	if len(values) == 0 {
		return nil, ErrSessionNotFound
	}

	session := &models.Session{ID: id, PendingCode: values[fieldCode]}
	if raw, ok := values[fieldIdentity]; ok && raw != "" {
		var identity models.Identity
		if err := json.Unmarshal([]byte(raw), &identity); err != nil {
			return nil, fmt.Errorf("failed to decode session identity: %v", err)
		}
		session.PendingIdentity = &identity
	}
	if raw, ok := values[fieldAttempts]; ok {
		session.Attempts, _ = strconv.Atoi(raw)
	}
	session.CreatedAt, _ = time.Parse(time.RFC3339Nano, values[fieldCreatedAt])
	session.ExpiresAt, _ = time.Parse(time.RFC3339Nano, values[fieldExpiresAt])
	return session, nil
}

// Set applies a partial update, ErrSessionNotFound when the session is gone
func (s *RedisSessionStore) Set(ctx context.Context, id string, update models.SessionUpdate) error {
	if id == "" {
		return ErrSessionNotFound
	}

	var (
		sets = map[string]string{}
		dels []string
	)
	if update.ClearPending {
		dels = append(dels, fieldCode, fieldIdentity)
		sets[fieldAttempts] = "0"
	}
	if update.PendingCode != nil {
		sets[fieldCode] = *update.PendingCode
		dels = without(dels, fieldCode)
	}
	if update.PendingIdentity != nil {
		raw, err := json.Marshal(update.PendingIdentity)
		if err != nil {
			return fmt.Errorf("failed to encode session identity: %v", err)
		}
		sets[fieldIdentity] = string(raw)
		dels = without(dels, fieldIdentity)
	}
	if update.Attempts != nil {
		sets[fieldAttempts] = strconv.Itoa(*update.Attempts)
	}

	args := []interface{}{len(sets)}
	for field, value := range sets {
		args = append(args, field, value)
	}
	for _, field := range dels {
		args = append(args, field)
	}

	applied, err := updateScript.Run(ctx, s.client, []string{sessionKey(id)}, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to update session: %v", err)
	}
	if applied == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// IncrAttempts counts one verification attempt against the pending code
func (s *RedisSessionStore) IncrAttempts(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, ErrSessionNotFound
	}
	n, err := incrAttemptsScript.Run(ctx, s.client, []string{sessionKey(id)}, fieldCode, fieldAttempts).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to count attempt: %v", err)
	}
	switch n {
	case -1:
		return 0, ErrSessionNotFound
	case -2:
		return 0, ErrNoPendingCode
	}
	return n, nil
}

// Delete deletes a session, deleting a missing session is not an error
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %v", err)
	}
	return nil
}

func without(fields []string, field string) []string {
	out := fields[:0]
	for _, f := range fields {
		if f != field {
			out = append(out, f)
		}
	}
	return out
}
