package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, TransactionsChannel)
	defer sub.Close()
	// wait for the subscription to be confirmed before publishing
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	payload := `{"transaction_id":"98765","account_id":"1000200030","db_cr":"WITHDRAWAL","amount":"40.10"}`
	require.NoError(t, NewPublishService(client, "").Publish(ctx, payload))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, TransactionsChannel, msg.Channel)
	assert.Equal(t, payload, msg.Payload)
}

func TestPublishFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.Error(t, NewPublishService(client, "").Publish(ctx, "{}"))
}
