// Package repository contains the repository layer for the Finance API
package repository

import (
	"context"
	"time"

	"github.com/nsvirk/financeapi/internal/config"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis creates the redis client shared by the session store, rate limiter and publisher
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	return redisClient, nil
}
