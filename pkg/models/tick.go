package models

import "github.com/shopspring/decimal"

// Tick represents a single normalized trade event from the upstream feed.
// It is built exactly once per upstream event and never mutated afterwards;
// the write path and the bus path each consume their own serialized copy.
type Tick struct {
	EventTime int64           `json:"event_time"` // unix milli
	TradeTime int64           `json:"trade_time"` // unix milli
	Symbol    string          `json:"symbol"`
	TradeID   int64           `json:"trade_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
}
