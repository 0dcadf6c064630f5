package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"agrigate/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache stores upstream responses so repeated requests for the
// same input skip the AI provider entirely.
type RedisCache struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

// NewRedisCache creates a Redis cache instance.
func NewRedisCache(addr, password string, db, poolSize int, logger *zap.SugaredLogger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// Ping tests the Redis connection.
func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Set stores a value in the cache with expiration.
func (rc *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		rc.logger.Errorf("Failed to marshal cache value for key %s: %v", key, err)
		metrics.CacheErrors.WithLabelValues("marshal").Inc()
		return err
	}

	// Transcription payloads can be large; cap entries at 1MB.
	const maxSize = 1 * 1024 * 1024
	if len(data) > maxSize {
		rc.logger.Warnf("Cache value for key %s exceeds size limit (%d bytes > %d bytes), rejecting", key, len(data), maxSize)
		metrics.CacheErrors.WithLabelValues("size_limit").Inc()
		return fmt.Errorf("cache value size %d bytes exceeds maximum allowed size %d bytes", len(data), maxSize)
	}

	err = rc.client.Set(ctx, key, data, expiration).Err()
	if err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
	}
	return err
}

// Get retrieves a value from the cache. The boolean reports whether the
// key was present.
func (rc *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			metrics.CacheMisses.Inc()
			return false, nil
		}
		rc.logger.Errorf("Failed to get cache value for key %s: %v", key, err)
		metrics.CacheErrors.WithLabelValues("get").Inc()
		return false, err
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		rc.logger.Errorf("Failed to unmarshal cache value for key %s: %v", key, err)
		metrics.CacheErrors.WithLabelValues("unmarshal").Inc()
		return false, err
	}

	metrics.CacheHits.Inc()
	return true, nil
}

// Delete removes a key from the cache.
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

// Cache key prefixes per upstream capability.
const (
	CacheKeyTranslatePrefix  = "translate:"
	CacheKeySentimentPrefix  = "sentiment:"
	CacheKeyEntitiesPrefix   = "entities:"
	CacheKeyTranscribePrefix = "transcribe:"
)

// hashInput produces a fixed-length digest so arbitrary user text never
// lands in a Redis key directly.
func hashInput(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TranslateCacheKey generates a cache key for a translation request.
func TranslateCacheKey(text, sourceLang, targetLang string) string {
	return CacheKeyTranslatePrefix + hashInput(text, sourceLang, targetLang)
}

// SentimentCacheKey generates a cache key for a sentiment request.
func SentimentCacheKey(text string) string {
	return CacheKeySentimentPrefix + hashInput(text)
}

// EntitiesCacheKey generates a cache key for an entity recognition
// request.
func EntitiesCacheKey(text string) string {
	return CacheKeyEntitiesPrefix + hashInput(text)
}
