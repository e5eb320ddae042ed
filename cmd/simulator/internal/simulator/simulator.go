package simulator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tickplane/tickplane/pkg/models"
	"github.com/tickplane/tickplane/pkg/queue"
)

const (
	keyPrefix     = "tick:"
	channelPrefix = "ticks."
	snapshotTTL   = 1 * time.Hour
)

// TickSimulator publishes random-walk ticks through the same queue-push and
// bus-publish path the real ingestor uses. Local development tool: it stands
// in for the upstream exchange feed.
type TickSimulator struct {
	logger       *zap.Logger
	producer     *queue.Producer
	rdb          RedisClient
	symbols      []string
	basePrices   map[string]float64
	rand         Rand
	clock        Clock
	tradeIDs     map[string]int64
	queueChannel string
}

func NewTickSimulator(
	logger *zap.Logger,
	producer *queue.Producer,
	rdb RedisClient,
	symbols []string,
	basePrices map[string]float64,
	rnd Rand,
	clock Clock,
	queueChannel string,
) *TickSimulator {
	return &TickSimulator{
		logger:       logger,
		producer:     producer,
		rdb:          rdb,
		symbols:      symbols,
		basePrices:   basePrices,
		rand:         rnd,
		clock:        clock,
		tradeIDs:     make(map[string]int64),
		queueChannel: queueChannel,
	}
}

func (s *TickSimulator) Run(ctx context.Context) {
	s.logger.Info("Simulator started", zap.Strings("symbols", s.symbols))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if len(s.symbols) == 0 {
				s.clock.Sleep(1 * time.Second)
				continue
			}

			symbol := s.symbols[s.rand.Intn(len(s.symbols))]
			fluctuation := (s.rand.Float64() * 10) - 5
			price := s.basePrices[symbol] + fluctuation
			s.basePrices[symbol] = price
			s.tradeIDs[symbol]++

			now := s.clock.Now().UnixMilli()
			tick := models.Tick{
				EventTime: now,
				TradeTime: now,
				Symbol:    symbol,
				TradeID:   s.tradeIDs[symbol],
				Price:     decimal.NewFromFloat(price),
				Quantity:  decimal.NewFromFloat(s.rand.Float64()),
			}

			payload, _ := json.Marshal(tick) // Error ignored for simplicity in loop

			if err := s.producer.Push(ctx, s.queueChannel, payload); err != nil {
				s.logger.Error("Queue push failed", zap.Error(err))
			}

			pipe := s.rdb.Pipeline()
			pipe.Set(ctx, keyPrefix+symbol, payload, snapshotTTL)
			pipe.Publish(ctx, channelPrefix+symbol, payload)
			if _, err := pipe.Exec(ctx); err != nil {
				s.logger.Error("Bus publish failed", zap.Error(err))
			}

			s.clock.Sleep(100 * time.Millisecond)
		}
	}
}
