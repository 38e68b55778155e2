package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finpay/ledger/internal/logging"
)

func TestRedisNotifierPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewRedisNotifier(client)
	require.NoError(t, n.Send(ctx, Message{
		Kind:        KindPaymentReceived,
		Destination: "user-2",
		Body:        "You received 30.00 USD from alice@example.com",
		Amount:      "30.00",
		Currency:    "USD",
	}))

	select {
	case msg := <-sub.Channel():
		var got Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, KindPaymentReceived, got.Kind)
		assert.Equal(t, "user-2", got.Destination)
		assert.Equal(t, "30.00", got.Amount)
		assert.False(t, got.OccurredAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestLoggerNotifierNilSafe(t *testing.T) {
	var n *LoggerNotifier
	assert.NoError(t, n.Send(context.Background(), Message{Kind: KindInternalTransfer}))
	assert.NoError(t, NewLoggerNotifier(logging.Discard()).Send(context.Background(), Message{Kind: KindInternalTransfer}))
}
