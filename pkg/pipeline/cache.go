package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/comet-col/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// VectorCache memoizes embedding vectors keyed by a stable fingerprint of
// (catalog version, token sequence). The core stays cache-agnostic; this
// layer belongs to the orchestrator.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float64, bool)
	Set(ctx context.Context, key string, vector []float64)
}

// Fingerprint derives the cache key for a sequence built under a given
// catalog version. The sequence is fully determined by (record, catalog),
// so the pair identifies the embedding input exactly.
func Fingerprint(catalogVersion, sequence string) string {
	sum := sha256.Sum256([]byte(catalogVersion + "\n" + sequence))
	return "vector:" + hex.EncodeToString(sum[:])
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float64, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Debug("Vector cache read failed")
		}
		return nil, false
	}
	var vector []float64
	if err := json.Unmarshal(data, &vector); err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("Corrupt cached vector, ignoring")
		return nil, false
	}
	return vector, true
}

func (c *RedisCache) Set(ctx context.Context, key string, vector []float64) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).Debug("Vector cache write failed")
	}
}
