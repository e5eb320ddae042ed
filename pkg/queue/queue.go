// Package queue is the durable write queue between the tick ingestor and the
// persistence writer: a redis list per named channel, LPUSH on the producer
// side and a blocking BRPOP loop on the consumer side, so a slow storage
// write never blocks or drops a live tick.
//
// There is no acknowledgement or redelivery. If the consumer dies between
// pop and persist, that tick is gone from the durable record even though it
// was already broadcast live. The queue is also unbounded; a slow consumer
// grows the list without any shed policy.
//
// The producer and the consumer must be given independent redis clients:
// the consumer's blocking pop occupies its connection for the whole wait.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tickplane/tickplane/pkg/models"
)

// Pusher is the subset of redis commands the producer needs.
type Pusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Popper is the subset of redis commands the consumer needs.
type Popper interface {
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Sink persists one deserialized tick.
type Sink interface {
	Persist(ctx context.Context, tick *models.Tick) error
}

type Producer struct {
	rdb Pusher
}

func NewProducer(rdb Pusher) *Producer {
	return &Producer{rdb: rdb}
}

// Push appends the payload to the tail of the named channel.
func (p *Producer) Push(ctx context.Context, channel string, payload []byte) error {
	return p.rdb.LPush(ctx, channel, payload).Err()
}

type Consumer struct {
	rdb    Popper
	sink   Sink
	logger *zap.Logger
}

func NewConsumer(rdb Popper, sink Sink, logger *zap.Logger) *Consumer {
	return &Consumer{rdb: rdb, sink: sink, logger: logger}
}

// Run blocks forever popping from the head of the channel and handing each
// tick to the sink. Every per-item failure is logged and the loop continues;
// only context cancellation stops it.
func (c *Consumer) Run(ctx context.Context, channel string) {
	c.logger.Info("Queue consumer started", zap.String("channel", channel))

	for {
		res, err := c.rdb.BRPop(ctx, 0, channel).Result()
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Queue consumer stopping", zap.String("channel", channel))
				return
			}
			c.logger.Error("Queue pop error", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		// BRPOP returns [key, value]
		if len(res) < 2 {
			continue
		}

		var tick models.Tick
		if err := json.Unmarshal([]byte(res[1]), &tick); err != nil {
			c.logger.Error("Malformed queued tick", zap.Error(err))
			continue
		}

		if err := c.sink.Persist(ctx, &tick); err != nil {
			c.logger.Error("Persist error",
				zap.String("symbol", tick.Symbol),
				zap.Int64("trade_id", tick.TradeID),
				zap.Error(err))
		}
	}
}
