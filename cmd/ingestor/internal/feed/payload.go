package feed

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tickplane/tickplane/pkg/models"
)

// combinedFrame is the multiplexed-stream envelope: one connection carries
// every subscribed symbol, each event wrapped with its stream name.
type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type tradeEvent struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	TradeID   int64  `json:"t"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// ParseTick normalizes one raw feed frame into a canonical Tick. Both the
// combined-stream envelope and a bare trade event are accepted. Non-trade
// events (subscription acks, other stream kinds) return an error and are
// dropped by the caller.
func ParseTick(raw []byte) (*models.Tick, error) {
	var frame combinedFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("unparsable frame: %w", err)
	}

	data := frame.Data
	if len(data) == 0 {
		data = raw
	}

	var ev tradeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unparsable event: %w", err)
	}
	if ev.Event != "trade" {
		return nil, fmt.Errorf("ignoring event type %q", ev.Event)
	}
	if ev.Symbol == "" {
		return nil, fmt.Errorf("trade event missing symbol")
	}

	price, err := decimal.NewFromString(ev.Price)
	if err != nil {
		return nil, fmt.Errorf("bad price %q: %w", ev.Price, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("non-positive price %q", ev.Price)
	}
	qty, err := decimal.NewFromString(ev.Quantity)
	if err != nil {
		return nil, fmt.Errorf("bad quantity %q: %w", ev.Quantity, err)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("non-positive quantity %q", ev.Quantity)
	}

	return &models.Tick{
		EventTime: ev.EventTime,
		TradeTime: ev.TradeTime,
		Symbol:    ev.Symbol,
		TradeID:   ev.TradeID,
		Price:     price,
		Quantity:  qty,
	}, nil
}
