package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "tick:"
	channelPrefix = "ticks."
)

// Compile-time check to ensure RedisStore implements BusStore
var _ BusStore = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
	pubsub *redis.PubSub
	mu     sync.Mutex // serializes subscription changes on the shared pubsub
}

func NewRedisStore(client *redis.Client) *RedisStore {
	ps := client.Subscribe(context.Background())
	return &RedisStore{
		client: client,
		pubsub: ps,
	}
}

// GetSnapshots fetches the last published tick for each symbol (MGET).
func (r *RedisStore) GetSnapshots(ctx context.Context, symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = keyPrefix + sym
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []string
	for _, val := range results {
		if payload, ok := val.(string); ok && payload != "" {
			snapshots = append(snapshots, payload)
		}
	}
	return snapshots, nil
}

func (r *RedisStore) SubscribeToFeed(ctx context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pubsub.Subscribe(ctx, channelPrefix+symbol)
}

func (r *RedisStore) UnsubscribeFromFeed(ctx context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pubsub.Unsubscribe(ctx, channelPrefix+symbol)
}

// RunPubSub is a blocking loop that reads bus messages and hands the symbol
// plus the raw payload to the callback.
func (r *RedisStore) RunPubSub(ctx context.Context, onMessage func(symbol string, payload string)) {
	ch := r.pubsub.Channel()

	for msg := range ch {
		symbol := strings.TrimPrefix(msg.Channel, channelPrefix)
		if symbol == msg.Channel {
			// Not a tick channel
			continue
		}
		onMessage(symbol, msg.Payload)
	}
}

func (r *RedisStore) Close() error {
	if err := r.pubsub.Close(); err != nil {
		return err
	}
	return r.client.Close()
}
