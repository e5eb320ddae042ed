package repository

import (
	"context"
)

// BusStore is the gateway's view of the tick bus: lazy per-symbol channel
// subscriptions, a blocking receive loop, and latest-tick snapshot lookups.
type BusStore interface {
	GetSnapshots(ctx context.Context, symbols []string) ([]string, error)
	SubscribeToFeed(ctx context.Context, symbol string) error
	UnsubscribeFromFeed(ctx context.Context, symbol string) error
	RunPubSub(ctx context.Context, onMessage func(symbol string, payload string))
	Close() error
}
