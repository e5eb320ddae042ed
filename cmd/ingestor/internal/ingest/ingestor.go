package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tickplane/tickplane/cmd/ingestor/internal/feed"
	"github.com/tickplane/tickplane/pkg/queue"
)

const (
	keyPrefix     = "tick:"
	channelPrefix = "ticks."
	snapshotTTL   = 1 * time.Hour
)

// RedisClient abstracts the bus connection
type RedisClient interface {
	Pipeline() redis.Pipeliner
}

// Ingestor turns raw feed frames into canonical ticks and emits each tick
// exactly once per successful parse to both sinks: the durable write queue
// and the per-symbol bus channel. The latest tick is also kept under a
// snapshot key for quote lookups and new-subscriber catch-up.
type Ingestor struct {
	producer     *queue.Producer
	rdb          RedisClient
	queueChannel string
	logger       *zap.Logger
}

func NewIngestor(producer *queue.Producer, rdb RedisClient, queueChannel string, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		producer:     producer,
		rdb:          rdb,
		queueChannel: queueChannel,
		logger:       logger,
	}
}

// HandleRaw processes one frame from the feed connection. Parse failures are
// logged and dropped; they never crash the connection loop.
func (i *Ingestor) HandleRaw(ctx context.Context, raw []byte) {
	tick, err := feed.ParseTick(raw)
	if err != nil {
		i.logger.Debug("Dropping feed frame", zap.Error(err))
		return
	}

	payload, err := json.Marshal(tick)
	if err != nil {
		i.logger.Error("Tick marshal failed", zap.Error(err))
		return
	}

	if err := i.producer.Push(ctx, i.queueChannel, payload); err != nil {
		i.logger.Error("Queue push failed",
			zap.String("symbol", tick.Symbol),
			zap.Error(err))
	}

	// Snapshot + broadcast go out together
	pipe := i.rdb.Pipeline()
	pipe.Set(ctx, keyPrefix+tick.Symbol, payload, snapshotTTL)
	pipe.Publish(ctx, channelPrefix+tick.Symbol, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		i.logger.Error("Bus publish failed",
			zap.String("symbol", tick.Symbol),
			zap.Error(err))
	}
}
