package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient creates the shared Redis client fronting C8's candidate
// pool cache. A ping failure does not fail startup — the cache degrades to
// a pure miss, and C8 falls back to querying the Result Store directly.
func NewRedisClient(cfg *Config, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable - candidate pool caching disabled", zap.Error(err))
	} else {
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	return client
}
