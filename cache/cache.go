package cache

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	queueStatusKey   = "hub:queue_status"
	matchKeyPrefix   = "hub:match:"
	defaultStatusTTL = 15 * time.Second
)

// NewRedisClient connects to redis or panics; the cache layer is part of the
// serving path (queue-status projections) and must be up before we listen.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379" // fallback for local dev
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	log.Println("✅ Connected to Redis")
	return rdb
}

// StatusCache holds short-lived projections of queue/match state and the
// invalidation hook the engines fire after any visible state change.
type StatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatusCache(rdb *redis.Client) *StatusCache {
	return &StatusCache{rdb: rdb, ttl: defaultStatusTTL}
}

// GetQueueStatus returns the cached queue-status JSON, or "" on miss.
func (c *StatusCache) GetQueueStatus(ctx context.Context) string {
	if c == nil || c.rdb == nil {
		return ""
	}
	val, err := c.rdb.Get(ctx, queueStatusKey).Result()
	if err != nil {
		return ""
	}
	return val
}

func (c *StatusCache) SetQueueStatus(ctx context.Context, payload string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, queueStatusKey, payload, c.ttl).Err(); err != nil {
		log.Printf("[CACHE] failed to set queue status: %v", err)
	}
}

// InvalidateQueueStatus drops the queue projection. Fired after queue joins
// and leaves and after any promotion.
func (c *StatusCache) InvalidateQueueStatus(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, queueStatusKey).Err(); err != nil {
		log.Printf("[CACHE] failed to invalidate queue status: %v", err)
	}
}

// InvalidateMatch drops a single match projection. Fired on promotion,
// finalization and cancellation.
func (c *StatusCache) InvalidateMatch(ctx context.Context, matchID string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, matchKeyPrefix+matchID).Err(); err != nil {
		log.Printf("[CACHE] failed to invalidate match %s: %v", matchID, err)
	}
}
