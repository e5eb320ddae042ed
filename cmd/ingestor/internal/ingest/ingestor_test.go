package ingest_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/tickplane/tickplane/cmd/ingestor/internal/ingest"
	"github.com/tickplane/tickplane/cmd/ingestor/internal/testutils"
	"github.com/tickplane/tickplane/pkg/queue"
)

func TestIngestor_ValidTick(t *testing.T) {
	pusher := testutils.NewMockPusher()
	rdb := testutils.NewMockRedisClient()
	ing := ingest.NewIngestor(queue.NewProducer(pusher), rdb, "db", zap.NewNop())

	raw := []byte(`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"BTCUSDT","t":42,"p":"50000","q":"0.1","T":1}}`)
	ing.HandleRaw(context.Background(), raw)

	if len(pusher.Pushed["db"]) != 1 {
		t.Fatalf("Expected exactly one queue push, got %d", len(pusher.Pushed["db"]))
	}

	pipe := rdb.PipelineSpy
	pipe.Mu.Lock()
	defer pipe.Mu.Unlock()
	if pipe.ExecCount != 1 {
		t.Fatalf("Expected one pipeline exec, got %d", pipe.ExecCount)
	}

	wantCmds := map[string]bool{"SET tick:BTCUSDT": false, "PUBLISH ticks.BTCUSDT": false}
	for _, cmd := range pipe.RecordedCmds {
		if _, ok := wantCmds[cmd]; ok {
			wantCmds[cmd] = true
		}
	}
	for cmd, seen := range wantCmds {
		if !seen {
			t.Errorf("Missing pipeline command %q (got %v)", cmd, pipe.RecordedCmds)
		}
	}
}

func TestIngestor_MalformedFrameDropped(t *testing.T) {
	pusher := testutils.NewMockPusher()
	rdb := testutils.NewMockRedisClient()
	ing := ingest.NewIngestor(queue.NewProducer(pusher), rdb, "db", zap.NewNop())

	ing.HandleRaw(context.Background(), []byte(`{garbage`))
	ing.HandleRaw(context.Background(), []byte(`{"result":null,"id":1}`)) // subscription ack

	if len(pusher.Pushed["db"]) != 0 {
		t.Errorf("Malformed frames must not reach the queue")
	}
	if rdb.PipelineSpy.ExecCount != 0 {
		t.Errorf("Malformed frames must not be broadcast")
	}
}
