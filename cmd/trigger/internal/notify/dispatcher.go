package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/tickplane/tickplane/pkg/models"
)

// KafkaWriter abstracts the notification topic
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Dispatcher enqueues events for the notification worker. Delivery and
// retries are the worker's problem; this side only writes.
type Dispatcher struct {
	writer KafkaWriter
}

func NewDispatcher(writer KafkaWriter) *Dispatcher {
	return &Dispatcher{writer: writer}
}

func (d *Dispatcher) Enqueue(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.Recipient.String()),
		Value: payload,
	})
}

func (d *Dispatcher) Close() error {
	return d.writer.Close()
}
