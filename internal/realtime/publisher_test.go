package realtime

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"eline/internal/hub"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPublisherTargetsBusiness(t *testing.T) {
	h := hub.New(nil)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC))
	mine := &hub.Client{ID: "mine", Send: make(chan []byte, 1)}
	other := &hub.Client{ID: "other", Send: make(chan []byte, 1)}
	h.Register(mine)
	h.Register(other)
	h.Subscribe(mine, "shop-1")
	h.Subscribe(other, "shop-2")

	NewLocalPublisher(h, clock, nil).Publish(context.Background(), "shop-1")

	require.Len(t, mine.Send, 1)
	assert.Len(t, other.Send, 0)
	var ev Event
	require.NoError(t, json.Unmarshal(<-mine.Send, &ev))
	assert.Equal(t, EventQueueUpdate, ev.Type)
	assert.Equal(t, "shop-1", ev.BusinessID)
	assert.True(t, ev.Timestamp.Equal(clock.Now()))
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "eline:queue:abc", ChannelFor("abc"))
}

func TestRedisRelay(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := NewRedisClient(url)
	require.NoError(t, err)
	defer client.Close()

	h := hub.New(nil)
	c := &hub.Client{ID: "c", Send: make(chan []byte, 1)}
	h.Register(c)
	h.Subscribe(c, "shop-9")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Relay(ctx, client, h, nil) }()

	pub := NewRedisPublisher(client, clockwork.NewRealClock(), nil)
	deadline := time.After(5 * time.Second)
	for {
		pub.Publish(context.Background(), "shop-9")
		select {
		case payload := <-c.Send:
			var ev Event
			require.NoError(t, json.Unmarshal(payload, &ev))
			assert.Equal(t, "shop-9", ev.BusinessID)
			cancel()
			assert.NoError(t, <-done)
			return
		case <-deadline:
			t.Fatal("relay did not deliver")
		case <-time.After(100 * time.Millisecond):
		}
	}
}
