package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace-storefront/internal/domain"
)

const (
	redisSessionPrefix    = "storefront:session:"
	redisPreferencePrefix = "storefront:pref:"
)

// RedisStore keeps sessions and preferences in Redis. Session keys expire
// after ttl of inactivity; preferences share the same lifetime.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis URL and verifies the connection.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store: invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	raw, err := s.client.Get(ctx, redisSessionPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("store: GetSession redis error: %w", err)
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("store: GetSession failed to decode session: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) SaveSession(ctx context.Context, session *domain.SessionRecord) error {
	if session == nil || session.ID == "" {
		return ErrInvalidSession
	}
	session.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("store: SaveSession failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, redisSessionPrefix+session.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: SaveSession redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, redisSessionPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("store: DeleteSession redis error: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) GetPreference(ctx context.Context, sessionID, name string) (json.RawMessage, error) {
	raw, err := s.client.HGet(ctx, redisPreferencePrefix+sessionID, name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("store: GetPreference redis error: %w", err)
	}
	return json.RawMessage(raw), nil
}

func (s *RedisStore) PutPreference(ctx context.Context, sessionID, name string, value json.RawMessage) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	key := redisPreferencePrefix + sessionID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, name, []byte(value))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: PutPreference redis error: %w", err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
