package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderFilled      = "ORDER_FILLED"
	EventTakeProfitClosed = "TAKE_PROFIT_CLOSED"
	EventStopLossClosed   = "STOP_LOSS_CLOSED"
)

// Notification is the payload handed to the delivery worker. Dispatch is
// fire-and-forget; the worker owns retries.
type Notification struct {
	Recipient uuid.UUID       `json:"recipient"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Quantity  decimal.Decimal `json:"quantity"`
	OrderID   uuid.UUID       `json:"order_id"`
	EventType string          `json:"event_type"`
}
