/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
	return c
}

// RedisTransport relays over Redis pub/sub.
type RedisTransport struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisTransport connects to Redis and verifies the connection.
func NewRedisTransport(cfg RedisConfig, logger zerolog.Logger) (*RedisTransport, error) {
	cfg = cfg.withDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("redis event transport connected")
	return &RedisTransport{client: client, logger: logger}, nil
}

// Name implements Transport.
func (t *RedisTransport) Name() string { return "redis" }

// Publish implements Transport.
func (t *RedisTransport) Publish(ctx context.Context, subject string, data []byte) error {
	return t.client.Publish(ctx, subject, data).Err()
}

// Receive implements Transport.
func (t *RedisTransport) Receive(ctx context.Context, handle func(subject string, data []byte)) error {
	pubsub := t.client.PSubscribe(ctx, SubjectPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			handle(msg.Channel, []byte(msg.Payload))
		}
	}
}

// Close implements Transport.
func (t *RedisTransport) Close() error {
	return t.client.Close()
}
