// Package cache holds the shared Redis client used for caching and as the
// backing store of the job queue and rate limiter.
package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/washplan/washplan/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache connects to the Redis server configured via CACHE_HOST,
// CACHE_PORT, CACHE_PASSWORD and CACHE_DB. A failed ping is logged but not
// fatal; callers degrade to uncached behavior.
func SetupCache() {
	client = redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s",
			env.GetEnv("CACHE_HOST", "localhost"),
			env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	})

	if pong, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: Could not connect to cache: %v", err)
	} else {
		log.Printf("Successfully connected to cache: %s", pong)
	}
}

// GetClient returns the Redis client, connecting lazily if needed.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value with the given expiration.
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value by key.
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// Delete removes a key.
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}
