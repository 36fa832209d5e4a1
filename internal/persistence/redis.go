package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/config"
)

const redisStartupPingTimeout = 3 * time.Second

// Redis holds the client backing the compliance snapshot cache and the
// breach dedupe keys. Both degrade gracefully, so an unreachable server at
// startup is logged rather than fatal.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the client and probes the server once.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	fields := []zap.Field{zap.String("redis_addr", cfg.Addr), zap.Int("redis_db", cfg.DB)}
	ctx, cancel := context.WithTimeout(context.Background(), redisStartupPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, snapshot cache and breach dedupe degraded", append(fields, zap.Error(err))...)
	} else {
		logger.Info("redis ready for sla cache", fields...)
	}

	return &Redis{Client: client}
}

// Close releases the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping backs the readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
