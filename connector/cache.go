package connector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/anuj67851/graph-rag-metadata/helper"
	goredis "github.com/redis/go-redis/v9"
)

// RedisCache caches query responses in Redis as JSON under content-addressed
// keys.
type RedisCache struct {
	client    *goredis.Client
	keyPrefix string
	logger    *slog.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(addr string, password string, db int, keyPrefix string, logger *slog.Logger) (*RedisCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, helper.NewError("redis ping", err)
	}

	logger.Info("Connected to Redis cache", slog.String("addr", addr))

	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}, nil
}

// NewRedisCacheFromClient wraps an existing Redis client, used by tests.
func NewRedisCacheFromClient(client *goredis.Client, keyPrefix string, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Key derives the cache key for a query and an optional document filter:
// the prefixed hex SHA-256 of the query concatenated with the filter
// filenames sorted lexicographically. The key is stable under permutation
// of the filter.
func (r *RedisCache) Key(query string, filterFilenames []string) string {
	sorted := make([]string, len(filterFilenames))
	copy(sorted, filterFilenames)
	sort.Strings(sorted)

	hash := sha256.Sum256([]byte(query + strings.Join(sorted, "")))
	return r.keyPrefix + hex.EncodeToString(hash[:])
}

// Get returns the cached value for key, or (nil, nil) on a miss.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			r.logger.Debug("Cache miss", slog.String("key", key))
			return nil, nil
		}
		return nil, helper.NewError("cache get", err)
	}

	r.logger.Debug("Cache hit", slog.String("key", key))
	return data, nil
}

// Set writes a value under key with the given TTL.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.client.Set(ctx, key, value, ttl).Err()
	if err != nil {
		return helper.NewError("cache set", err)
	}
	return nil
}

// Delete removes a key, used to drop corrupt entries.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	err := r.client.Del(ctx, key).Err()
	if err != nil {
		return helper.NewError("cache delete", err)
	}
	return nil
}

// Close releases the Redis client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
