package db

import (
	"context"
	"log"
	"time"

	"backend-pacetrack/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis builds the shared client, or nil when no address is
// configured. Redis is optional: without it live fan-out stays inside
// a single process and usage counters reset on restart.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// Keep the client anyway; publishes fall back to in-process
		// delivery until the server comes up.
		log.Printf("redis at %s not reachable yet: %v", cfg.RedisAddr, err)
	}
	return client
}
