package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tickplane/tickplane/pkg/models"
	"github.com/tickplane/tickplane/pkg/queue"
)

type mockPopper struct {
	items  []string
	idx    int
	cancel context.CancelFunc
}

func (m *mockPopper) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	if m.idx >= len(m.items) {
		// Drain finished; stop the consumer loop
		m.cancel()
		return redis.NewStringSliceResult(nil, context.Canceled)
	}
	item := m.items[m.idx]
	m.idx++
	return redis.NewStringSliceResult([]string{keys[0], item}, nil)
}

type mockSink struct {
	persisted  []models.Tick
	failSymbol string
}

func (m *mockSink) Persist(ctx context.Context, tick *models.Tick) error {
	if tick.Symbol == m.failSymbol {
		return errors.New("storage down")
	}
	m.persisted = append(m.persisted, *tick)
	return nil
}

func tickPayload(symbol string, tradeID int64, price string) string {
	b, _ := json.Marshal(models.Tick{
		Symbol:  symbol,
		TradeID: tradeID,
		Price:   decimal.RequireFromString(price),
	})
	return string(b)
}

func TestConsumer_DrainsChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	popper := &mockPopper{
		items: []string{
			tickPayload("BTCUSDT", 1, "50000"),
			tickPayload("ETHUSDT", 2, "3000"),
		},
		cancel: cancel,
	}
	sink := &mockSink{}

	queue.NewConsumer(popper, sink, zap.NewNop()).Run(ctx, "db")

	if len(sink.persisted) != 2 {
		t.Fatalf("Expected 2 persisted ticks, got %d", len(sink.persisted))
	}
	if sink.persisted[0].Symbol != "BTCUSDT" || sink.persisted[1].Symbol != "ETHUSDT" {
		t.Errorf("Ticks persisted out of order: %+v", sink.persisted)
	}
}

func TestConsumer_ContinuesPastFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	popper := &mockPopper{
		items: []string{
			tickPayload("BTCUSDT", 1, "50000"),
			"{not json",
			tickPayload("ETHUSDT", 2, "3000"), // sink rejects this one
			tickPayload("SOLUSDT", 3, "150"),
		},
		cancel: cancel,
	}
	sink := &mockSink{failSymbol: "ETHUSDT"}

	queue.NewConsumer(popper, sink, zap.NewNop()).Run(ctx, "db")

	if len(sink.persisted) != 2 {
		t.Fatalf("Expected 2 persisted ticks, got %d", len(sink.persisted))
	}
	if sink.persisted[1].Symbol != "SOLUSDT" {
		t.Errorf("Consumer should keep draining after a persist failure, got %+v", sink.persisted)
	}
}

func TestProducer_PushesToChannel(t *testing.T) {
	pusher := &mockPusher{}
	prod := queue.NewProducer(pusher)

	if err := prod.Push(context.Background(), "db", []byte("payload")); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if pusher.lastKey != "db" {
		t.Errorf("Expected push on channel db, got %s", pusher.lastKey)
	}
}

type mockPusher struct {
	lastKey string
}

func (m *mockPusher) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.lastKey = key
	return redis.NewIntResult(1, nil)
}
