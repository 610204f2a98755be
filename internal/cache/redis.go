// Package cache keeps label phrase embeddings in Redis so repeated
// model loads and ingest runs skip re-encoding the same phrases.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// EmbeddingCache handles Redis-based caching of phrase embeddings
type EmbeddingCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	stats  *cacheStats
}

// cacheStats tracks cache performance metrics
type cacheStats struct {
	hits   int64
	misses int64
}

// NewEmbeddingCache creates a new Redis-based embedding cache
func NewEmbeddingCache(config *Config, logger *zap.Logger) (*EmbeddingCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	cache := &EmbeddingCache{
		client: client,
		config: config,
		logger: logger,
		stats:  &cacheStats{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cache.ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Embedding cache initialized",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections),
		zap.Duration("default_ttl", config.DefaultTTL))

	return cache, nil
}

// ping tests the Redis connection
func (ec *EmbeddingCache) ping(ctx context.Context) error {
	_, err := ec.client.Ping(ctx).Result()
	return err
}

// Lookup fetches a cached embedding for the phrase, if present. The
// encoder name scopes the key so different backends never collide.
func (ec *EmbeddingCache) Lookup(ctx context.Context, encoder, phrase string) (*LookupResult, error) {
	start := time.Now()

	cacheKey := ec.phraseKey(encoder, phrase)

	cachedData, err := ec.client.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		ec.stats.misses++
		ec.logger.Debug("Cache miss", zap.String("key", cacheKey))
		return &LookupResult{CacheHit: false}, nil
	} else if err != nil {
		ec.logger.Error("Cache lookup failed", zap.Error(err))
		return &LookupResult{CacheHit: false}, nil
	}

	var cached CachedEmbedding
	if err := json.Unmarshal([]byte(cachedData), &cached); err != nil {
		ec.logger.Error("Failed to unmarshal cached embedding", zap.Error(err))
		// Delete corrupted cache entry
		ec.client.Del(ctx, cacheKey)
		return &LookupResult{CacheHit: false}, nil
	}

	ec.stats.hits++
	ec.logger.Debug("Cache hit",
		zap.String("key", cacheKey),
		zap.String("phrase", cached.Phrase),
		zap.Duration("duration", time.Since(start)))

	return &LookupResult{
		Embedding: &cached,
		CacheHit:  true,
	}, nil
}

// Store caches one phrase embedding
func (ec *EmbeddingCache) Store(ctx context.Context, encoder, phrase string, embedding []float32) error {
	cacheKey := ec.phraseKey(encoder, phrase)

	cached := &CachedEmbedding{
		Phrase:    phrase,
		Embedding: embedding,
		Encoder:   encoder,
		CachedAt:  time.Now(),
		TTL:       int64(ec.config.DefaultTTL.Seconds()),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding for caching: %w", err)
	}

	err = ec.client.Set(ctx, cacheKey, data, ec.config.DefaultTTL).Err()
	if err != nil {
		ec.logger.Error("Failed to cache embedding", zap.Error(err))
		return fmt.Errorf("failed to cache embedding: %w", err)
	}

	ec.logger.Debug("Embedding cached",
		zap.String("key", cacheKey),
		zap.String("phrase", phrase))

	return nil
}

// StoreBatch caches multiple phrase embeddings using a Redis pipeline
func (ec *EmbeddingCache) StoreBatch(ctx context.Context, encoder string, phrases []string, embeddings [][]float32) error {
	if len(phrases) != len(embeddings) {
		return fmt.Errorf("phrases and embeddings length mismatch")
	}

	if len(phrases) == 0 {
		return nil
	}

	pipe := ec.client.Pipeline()

	for i, phrase := range phrases {
		cacheKey := ec.phraseKey(encoder, phrase)

		cached := &CachedEmbedding{
			Phrase:    phrase,
			Embedding: embeddings[i],
			Encoder:   encoder,
			CachedAt:  time.Now(),
			TTL:       int64(ec.config.DefaultTTL.Seconds()),
		}

		data, err := json.Marshal(cached)
		if err != nil {
			ec.logger.Error("Failed to marshal embedding for batch caching", zap.Error(err))
			continue
		}

		pipe.Set(ctx, cacheKey, data, ec.config.DefaultTTL)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		ec.logger.Error("Batch cache operation failed", zap.Error(err))
		return fmt.Errorf("batch cache operation failed: %w", err)
	}

	ec.logger.Debug("Batch cache operation completed",
		zap.Int("cached_embeddings", len(phrases)))

	return nil
}

// GetStats returns cache performance statistics
func (ec *EmbeddingCache) GetStats(ctx context.Context) (*CacheStats, error) {
	info, err := ec.client.Info(ctx, "memory", "stats").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	stats := &CacheStats{
		Hits:   ec.stats.hits,
		Misses: ec.stats.misses,
	}

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	lines := strings.Split(info, "\r\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "used_memory:") {
			if memStr := strings.TrimPrefix(line, "used_memory:"); memStr != "" {
				if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
					stats.MemoryUsage = mem
				}
			}
		}
	}

	keys, err := ec.client.DBSize(ctx).Result()
	if err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Clear removes all cached embeddings under the configured prefix
func (ec *EmbeddingCache) Clear(ctx context.Context) error {
	pattern := ec.config.KeyPrefix + "*"

	iter := ec.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	// Delete keys in batches
	batchSize := 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		if err := ec.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			ec.logger.Error("Failed to delete cache keys", zap.Error(err))
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	ec.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (ec *EmbeddingCache) Close() error {
	if ec.client != nil {
		return ec.client.Close()
	}
	return nil
}

// phraseKey creates a cache key from the encoder name and phrase text
func (ec *EmbeddingCache) phraseKey(encoder, phrase string) string {
	hasher := sha256.New()
	hasher.Write([]byte(encoder))
	hasher.Write([]byte{0})
	hasher.Write([]byte(phrase))

	hash := hex.EncodeToString(hasher.Sum(nil))
	return fmt.Sprintf("%s:phrase:%s", ec.config.KeyPrefix, hash[:16])
}

// maskRedisURL masks credentials in the Redis URL for logging
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
