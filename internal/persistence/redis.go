package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/quotation-service/internal/config"
)

// Redis wraps the go-redis client backing the notification job queue.
type Redis struct {
	Client *redis.Client
}

// NewRedis dials Redis. An unreachable broker is logged, not fatal: the API
// keeps serving and post-commit enqueues degrade to log-only until it returns.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("job queue broker unreachable",
			zap.String("addr", cfg.Addr),
			zap.Int("db", cfg.DB),
			zap.Error(err))
	} else {
		logger.Info("job queue broker connected",
			zap.String("addr", cfg.Addr),
			zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
