package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/geocoder89/carebook/internal/redisclient"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(client *redisclient.Client) *RedisStore {
	return &RedisStore{rdb: client.Raw()}
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, id Identity, ttl time.Duration) error {
	b, err := json.Marshal(id)
	if err != nil {
		return err
	}

	return s.rdb.Set(ctx, redisKeyPrefix+sessionID, b, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Identity, error) {
	b, err := s.rdb.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrNoSession
		}
		return Identity{}, err
	}

	var id Identity
	if err := json.Unmarshal(b, &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, redisKeyPrefix+sessionID).Err()
}
