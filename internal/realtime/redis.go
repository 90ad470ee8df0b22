package realtime

import (
	"context"
	"strings"

	"eline/internal/hub"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "eline:queue:"

func ChannelFor(businessID string) string {
	return channelPrefix + businessID
}

// RedisPublisher fans queue events out through Redis pub/sub so that every
// server instance can relay them to its own clients.
type RedisPublisher struct {
	client *redis.Client
	clock  clockwork.Clock
	log    *zap.Logger
}

func NewRedisPublisher(client *redis.Client, clock clockwork.Clock, log *zap.Logger) *RedisPublisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisPublisher{client: client, clock: clock, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, businessID string) {
	payload, err := encodeEvent(businessID, p.clock.Now())
	if err != nil {
		p.log.Error("encode realtime event", zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, ChannelFor(businessID), payload).Err(); err != nil {
		p.log.Warn("redis publish failed", zap.String("business_id", businessID), zap.Error(err))
	}
}

// Relay copies every event published on the queue channels into h until ctx
// is cancelled.
func Relay(ctx context.Context, client *redis.Client, h *hub.Hub, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	pubsub := client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			businessID := strings.TrimPrefix(msg.Channel, channelPrefix)
			if businessID == "" {
				continue
			}
			h.Broadcast(businessID, []byte(msg.Payload))
		}
	}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
