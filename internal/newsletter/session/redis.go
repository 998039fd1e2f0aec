package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs sessions with redis so multiple instances can share
// them. Each session is a hash under a namespaced key with a TTL refreshed
// on every write.
type RedisStore struct {
	client *redis.Client
}

const redisKeyPrefix = "session:"

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, id string) (map[string]string, error) {
	attrs, err := r.client.HGetAll(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return nil, err
	}
	// HGetAll returns an empty map for missing keys rather than redis.Nil.
	if len(attrs) == 0 {
		return nil, ErrNoSession
	}
	return attrs, nil
}

func (r *RedisStore) Set(ctx context.Context, id string, attrs map[string]string, ttl time.Duration) error {
	key := redisKeyPrefix + id

	// A session with no attributes still has to exist so rotation can park
	// an empty authenticated-to-be session. A sentinel field keeps the hash
	// non-empty; Get strips nothing since callers ignore unknown keys.
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		fields := map[string]string{"_present": "1"}
		for k, v := range attrs {
			fields[k] = v
		}
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKeyPrefix+id).Err()
}
