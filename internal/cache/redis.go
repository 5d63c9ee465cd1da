package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chats/internal/models"
	"chats/internal/service"
)

const keyPrefix = "chat:"

// RedisCache keeps by-id message snapshots for ttl.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ service.MessageCache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewClient connects to Redis and fails fast when it is unreachable.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (rc *RedisCache) StoreMessage(ctx context.Context, id string, detail models.MessageDetail) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, keyPrefix+id, payload, rc.ttl).Err()
}

// LoadMessage returns nil without error on a miss.
func (rc *RedisCache) LoadMessage(ctx context.Context, id string) (*models.MessageDetail, error) {
	data, err := rc.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var detail models.MessageDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", id, err)
	}
	return &detail, nil
}

func (rc *RedisCache) Evict(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}
	return rc.client.Del(ctx, keys...).Err()
}

func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}
