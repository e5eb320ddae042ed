package feed_test

import (
	"testing"

	"github.com/tickplane/tickplane/cmd/ingestor/internal/feed"
)

func TestParseTick_CombinedFrame(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@trade","data":{"e":"trade","E":1700000000123,"s":"BTCUSDT","t":987654,"p":"50123.45","q":"0.5","T":1700000000120}}`)

	tick, err := feed.ParseTick(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tick.Symbol != "BTCUSDT" {
		t.Errorf("Expected BTCUSDT, got %s", tick.Symbol)
	}
	if tick.TradeID != 987654 {
		t.Errorf("Expected trade id 987654, got %d", tick.TradeID)
	}
	if tick.Price.String() != "50123.45" {
		t.Errorf("Expected price 50123.45, got %s", tick.Price)
	}
	if tick.EventTime != 1700000000123 || tick.TradeTime != 1700000000120 {
		t.Errorf("Timestamps not carried over: %d / %d", tick.EventTime, tick.TradeTime)
	}
}

func TestParseTick_BareEvent(t *testing.T) {
	raw := []byte(`{"e":"trade","E":1,"s":"ETHUSDT","t":2,"p":"3000","q":"1.25","T":1}`)

	tick, err := feed.ParseTick(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tick.Symbol != "ETHUSDT" || tick.Quantity.String() != "1.25" {
		t.Errorf("Unexpected tick: %+v", tick)
	}
}

func TestParseTick_Rejects(t *testing.T) {
	cases := map[string]string{
		"invalid json":    `{not json`,
		"non-trade event": `{"e":"depthUpdate","s":"BTCUSDT"}`,
		"missing symbol":  `{"e":"trade","p":"1","q":"1"}`,
		"bad price":       `{"e":"trade","s":"BTCUSDT","p":"abc","q":"1"}`,
		"bad quantity":    `{"e":"trade","s":"BTCUSDT","p":"1","q":""}`,
		"zero price":      `{"e":"trade","s":"BTCUSDT","p":"0","q":"1"}`,
		"negative price":  `{"e":"trade","s":"BTCUSDT","p":"-50000","q":"1"}`,
		"zero quantity":   `{"e":"trade","s":"BTCUSDT","p":"50000","q":"0"}`,
		"subscribe ack":   `{"result":null,"id":1}`,
	}

	for name, raw := range cases {
		if _, err := feed.ParseTick([]byte(raw)); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}
