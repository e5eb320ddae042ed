package bus

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "ticks."

// Subscriber holds the trigger engine's own bus subscription to a fixed
// symbol set. It shares nothing with the fanout gateway's registry.
type Subscriber struct {
	pubsub *redis.PubSub
}

func NewSubscriber(ctx context.Context, client *redis.Client, symbols []string) *Subscriber {
	channels := make([]string, len(symbols))
	for i, sym := range symbols {
		channels[i] = channelPrefix + sym
	}
	return &Subscriber{pubsub: client.Subscribe(ctx, channels...)}
}

// Run blocks, handing each bus tick to the handler.
func (s *Subscriber) Run(ctx context.Context, handler func(ctx context.Context, symbol string, payload string)) {
	ch := s.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			symbol := strings.TrimPrefix(msg.Channel, channelPrefix)
			handler(ctx, symbol, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Subscriber) Close() error {
	return s.pubsub.Close()
}
