// Package redis provides the Redis connection and the active-version pointer that lets
// several replicas converge on the same serving version.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

// RedisConnection manages the Redis client lifecycle.
type RedisConnection struct {
	config *config.RedisConfig
	client goredis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection creates a client for cfg and verifies connectivity.
func NewRedisConnection(ctx context.Context, cfg *config.RedisConfig, log logger.Logger) (*RedisConnection, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	rc := &RedisConnection{config: cfg, client: client, logger: log.WithComponent("Redis")}
	if err := rc.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	rc.logger.Info(ctx, "Redis connection established", logger.Fields{"address": cfg.Address, "db": cfg.DB})
	return rc, nil
}

// NewRedisConnectionFromClient wraps an existing client.
func NewRedisConnectionFromClient(client goredis.UniversalClient, cfg *config.RedisConfig, log logger.Logger) *RedisConnection {
	return &RedisConnection{config: cfg, client: client, logger: log.WithComponent("Redis")}
}

// GetClient returns the underlying client.
func (rc *RedisConnection) GetClient() goredis.UniversalClient {
	return rc.client
}

// Ping verifies Redis connectivity.
func (rc *RedisConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.client.Ping(pingCtx).Err(); err != nil {
		return errors.Internal("redis ping failed", err)
	}
	return nil
}

// Close closes the client.
func (rc *RedisConnection) Close() error {
	return rc.client.Close()
}

//Personal.AI order the ending
