// session/redis.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session keys in Redis.
const DefaultKeyPrefix = "corpsite:session:"

// RedisStore keeps sessions in Redis with a TTL matching their expiry, so
// several instances can share them.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore wraps an existing client. An empty prefix uses
// DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

// ConnectRedis dials addr and verifies the connection with PING within
// timeout. The client is closed again if the ping fails.
func ConnectRedis(ctx context.Context, addr, password string, db int, timeout time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("session: redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: redis ping %s: %w", addr, err)
	}
	return NewRedisStore(client, ""), nil
}

func (s *RedisStore) key(id string) string { return s.keyPrefix + id }

func (s *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := s.client.Get(ctx, s.key(id)).Scan(&rec); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, ErrExpired
	}
	return &rec, nil
}

// Save writes rec with a TTL; an already expired record is not written.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(rec.ID), rec, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
