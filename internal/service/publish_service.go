// Package service contains the service layer for the Finance API
package service

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/nsvirk/financeapi/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
)

// PublishService relays Postgres notifications of new transactions to a Redis channel
type PublishService struct {
	redisClient *redis.Client
	pgConnStr   string
}

// NewPublishService creates a new PublishService
func NewPublishService(redisClient *redis.Client, pgConnStr string) *PublishService {
	return &PublishService{
		redisClient: redisClient,
		pgConnStr:   pgConnStr,
	}
}

// PublishTransactionsToRedisChannel listens on TransactionsChannel until ctx is done
func (s *PublishService) PublishTransactionsToRedisChannel(ctx context.Context) error {
	listener := pq.NewListener(s.pgConnStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			zaplogger.Error("PostgreSQL listener event", zaplogger.Fields{"event": int(ev), "error": err.Error()})
		}
	})
	defer listener.Close()

	if err := listener.Listen(TransactionsChannel); err != nil {
		return err
	}
	zaplogger.Info("Listening for new transactions", zaplogger.Fields{"channel": TransactionsChannel})

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect
			if n == nil {
				continue
			}
			if err := s.Publish(ctx, n.Extra); err != nil {
				zaplogger.Error("Failed to publish to Redis", zaplogger.Fields{"error": err.Error()})
			}
		case <-time.After(90 * time.Second):
			go func() {
				if err := listener.Ping(); err != nil {
					zaplogger.Error("Error pinging PostgreSQL", zaplogger.Fields{"error": err.Error()})
				}
			}()
		}
	}
}

// Publish publishes a payload on the Redis transactions channel
func (s *PublishService) Publish(ctx context.Context, payload string) error {
	return s.redisClient.Publish(ctx, TransactionsChannel, payload).Err()
}
