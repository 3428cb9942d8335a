/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for frequently read
// brand and media data.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/ministry_platform/internal/models"
	"github.com/friendsincode/ministry_platform/internal/telemetry"
)

// Default TTL values for different cache types
const (
	DefaultBrandListTTL = 5 * time.Minute
	DefaultBrandTTL     = 30 * time.Minute
	DefaultYouTubeTTL   = 6 * time.Hour
)

// Key prefixes for Redis cache
const (
	keyRoot      = "ministry:cache:"
	KeyBrandList = keyRoot + "brands"
	KeyBrand     = keyRoot + "brand:"   // + brand_id
	KeyYouTube   = keyRoot + "youtube:" // + channel handle
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BrandListTTL time.Duration
	BrandTTL     time.Duration
	YouTubeTTL   time.Duration

	// DisableOnError trips the breaker on the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		BrandListTTL:   DefaultBrandListTTL,
		BrandTTL:       DefaultBrandTTL,
		YouTubeTTL:     DefaultYouTubeTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback. A nil or
// disabled Cache misses every lookup and ignores writes.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New connects to Redis. An unreachable server yields a disabled cache, not
// an error.
func New(cfg Config, logger zerolog.Logger) *Cache {
	logger = logger.With().Str("component", "cache").Logger()
	if cfg.RedisAddr == "" {
		logger.Info().Msg("redis not configured, running without caching")
		return Disabled(logger)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis cache unavailable, running without caching")
		_ = client.Close()
		return &Cache{logger: logger, config: cfg, disabled: true}
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("redis cache initialized")
	return &Cache{client: client, logger: logger, config: cfg}
}

// Disabled returns a cache that never stores anything.
func Disabled(logger zerolog.Logger) *Cache {
	return &Cache{logger: logger, disabled: true}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c != nil && c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

func family(key string) string {
	rest := strings.TrimPrefix(key, keyRoot)
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		return rest[:i]
	}
	return rest
}

func (c *Cache) get(ctx context.Context, key string, dest any) bool {
	if !c.IsAvailable() {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		c.handleError(err, "get")
		telemetry.CacheMissesTotal.WithLabelValues(family(key)).Inc()
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		telemetry.CacheMissesTotal.WithLabelValues(family(key)).Inc()
		return false
	}

	telemetry.CacheHitsTotal.WithLabelValues(family(key)).Inc()
	return true
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

func (c *Cache) delete(ctx context.Context, keys ...string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}
	return nil
}

func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}
		if len(keys) > 0 {
			if err := c.delete(ctx, keys...); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func ttlOr(ttl, def time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return def
}

// GetBrandList returns the cached brand list.
func (c *Cache) GetBrandList(ctx context.Context) ([]models.Brand, bool) {
	var brands []models.Brand
	if !c.get(ctx, KeyBrandList, &brands) {
		return nil, false
	}
	return brands, true
}

// SetBrandList caches the brand list.
func (c *Cache) SetBrandList(ctx context.Context, brands []models.Brand) error {
	if c == nil {
		return nil
	}
	return c.set(ctx, KeyBrandList, brands, ttlOr(c.config.BrandListTTL, DefaultBrandListTTL))
}

// GetBrand returns a cached brand.
func (c *Cache) GetBrand(ctx context.Context, id string) (*models.Brand, bool) {
	var brand models.Brand
	if !c.get(ctx, KeyBrand+id, &brand) {
		return nil, false
	}
	return &brand, true
}

// SetBrand caches one brand.
func (c *Cache) SetBrand(ctx context.Context, brand *models.Brand) error {
	if c == nil || brand == nil {
		return nil
	}
	return c.set(ctx, KeyBrand+brand.ID, brand, ttlOr(c.config.BrandTTL, DefaultBrandTTL))
}

// InvalidateBrand drops a brand and the list that contains it.
func (c *Cache) InvalidateBrand(ctx context.Context, id string) error {
	if id == "" {
		return c.delete(ctx, KeyBrandList)
	}
	return c.delete(ctx, KeyBrandList, KeyBrand+id)
}

// GetYouTube returns a cached channel video list.
func (c *Cache) GetYouTube(ctx context.Context, handle string, dest any) bool {
	return c.get(ctx, KeyYouTube+strings.ToLower(handle), dest)
}

// SetYouTube caches a channel video list.
func (c *Cache) SetYouTube(ctx context.Context, handle string, videos any) error {
	if c == nil {
		return nil
	}
	return c.set(ctx, KeyYouTube+strings.ToLower(handle), videos, ttlOr(c.config.YouTubeTTL, DefaultYouTubeTTL))
}

// FlushAll removes all cached data.
func (c *Cache) FlushAll(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, keyRoot+"*")
}
