// Package cache holds Redis-backed caches for read-path metadata.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the client used by the caches. Set it once at startup; all
// cache functions degrade to errors when it is nil so callers can fall back
// to the database.
var RedisClient *redis.Client

// favoriteCountTTL bounds staleness of cached favorite counts.
const favoriteCountTTL = 5 * time.Minute

// FavoriteCountKey builds the Redis key for an audio's favorite count.
func FavoriteCountKey(audioID string) string {
	return fmt.Sprintf("audio:favcount:%s", audioID)
}

// GetFavoriteCount returns the cached favorite count for an audio.
// Returns redis.Nil when the key is absent.
func GetFavoriteCount(ctx context.Context, audioID string) (int64, error) {
	if RedisClient == nil {
		return 0, fmt.Errorf("Redis client not initialized")
	}
	val, err := RedisClient.Get(ctx, FavoriteCountKey(audioID)).Result()
	if err != nil {
		return 0, err
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse cached favorite count %q: %w", val, err)
	}
	return count, nil
}

// SetFavoriteCount caches the favorite count for an audio.
func SetFavoriteCount(ctx context.Context, audioID string, count int64) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	err := RedisClient.Set(ctx, FavoriteCountKey(audioID), count, favoriteCountTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache favorite count for audio %s: %w", audioID, err)
	}
	return nil
}

// InvalidateFavoriteCount drops the cached count after a favorite/unfavorite.
func InvalidateFavoriteCount(ctx context.Context, audioID string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	err := RedisClient.Del(ctx, FavoriteCountKey(audioID)).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate favorite count for audio %s: %w", audioID, err)
	}
	return nil
}
