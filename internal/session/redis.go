package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis so multiple server processes can share
// them. Redis writes are synchronous on the calling connection, so a session
// saved during one request is visible to the client's next request no matter
// which process serves it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing Redis client. The caller owns the client's
// lifecycle (and should have pinged it at startup).
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

var _ Store = (*RedisStore)(nil)

// key namespaces session tokens so the database can be shared.
func key(token string) string {
	return "microblog:session:" + token
}

func (s *RedisStore) Put(ctx context.Context, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encoding session: %w", err)
	}
	if err := s.client.Set(ctx, key(sess.Token), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: writing to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	payload, err := s.client.Get(ctx, key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: reading from redis: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("session: decoding session: %w", err)
	}
	sess.Token = token
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("session: deleting from redis: %w", err)
	}
	return nil
}
