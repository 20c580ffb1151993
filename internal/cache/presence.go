package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "presence:"

// PresenceCache — write-through кэш снапшотов presence в Redis с TTL.
// Промах кэша — (nil, nil); источник истины всегда Postgres.
type PresenceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(ctx context.Context, url string, ttl time.Duration) (*PresenceCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &PresenceCache{rdb: client, ttl: ttl}, nil
}

func (c *PresenceCache) Get(ctx context.Context, userID string) (*domain.PresenceState, error) {
	data, err := c.rdb.Get(ctx, presenceKeyPrefix+userID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var st domain.PresenceState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("cache unmarshal: %w", err)
	}
	return &st, nil
}

func (c *PresenceCache) Set(ctx context.Context, st *domain.PresenceState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, presenceKeyPrefix+st.UserID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *PresenceCache) Close() error {
	return c.rdb.Close()
}
