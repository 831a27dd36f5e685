package mq

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCopiesEvents(t *testing.T) {
	var r Recorder
	r.Publish(context.Background(), "farmcart.orders", map[string]any{"orderId": "o1"})
	events := r.Events()
	require.Len(t, events, 1)
	events[0].Topic = "changed"
	assert.Equal(t, "farmcart.orders", r.Events()[0].Topic)
}

func TestRedisPublisher(t *testing.T) {
	addr := os.Getenv("FARMCART_TEST_REDIS")
	if addr == "" {
		t.Skip("FARMCART_TEST_REDIS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	sub := client.Subscribe(ctx, "farmcart.test")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	NewRedisPublisher(client, nil).Publish(ctx, "farmcart.test", map[string]any{"accountId": "a1"})
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, "a1", got["accountId"])
}
