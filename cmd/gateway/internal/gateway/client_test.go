package gateway_test

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/tickplane/tickplane/cmd/gateway/internal/gateway"
	"github.com/tickplane/tickplane/cmd/gateway/internal/hub"
	"github.com/tickplane/tickplane/cmd/gateway/internal/protocol"
	"github.com/tickplane/tickplane/cmd/gateway/internal/testutils"
)

// dial wires a ClientAdapter to one end of an in-memory pipe and hands the
// test the peer end, which plays the websocket client.
func dial(t *testing.T) net.Conn {
	t.Helper()

	server, client := net.Pipe()
	h := hub.NewHub(testutils.NewMockStore(), zap.NewNop())
	adapter := gateway.NewClient(server, h, zap.NewNop(), map[string]bool{"BTCUSDT": true})
	adapter.Start()

	t.Cleanup(func() {
		client.Close()
		adapter.Close()
	})
	return client
}

func readJSON(t *testing.T, conn net.Conn, v interface{}) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := wsutil.ReadServerText(conn)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if err := json.Unmarshal(frame, v); err != nil {
		t.Fatalf("Reply is not valid JSON: %v", err)
	}
}

func TestClientAdapter_MalformedMessageKeepsConnection(t *testing.T) {
	conn := dial(t)

	if err := wsutil.WriteClientText(conn, []byte("this is not json")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var reply protocol.ErrorReply
	readJSON(t, conn, &reply)
	if reply.Op != protocol.OpError || reply.Code != protocol.CodeInvalidMessage {
		t.Errorf("Expected INVALID_MESSAGE error, got %+v", reply)
	}

	// The connection must survive the garbage frame and keep processing
	// commands; symbols are normalized to upper case on the way in.
	if err := wsutil.WriteClientText(conn, []byte(`{"op":"subscribe","symbols":["btcusdt"]}`)); err != nil {
		t.Fatalf("Connection should still accept frames: %v", err)
	}

	var ack protocol.Ack
	readJSON(t, conn, &ack)
	if ack.Op != protocol.OpSubscribed {
		t.Errorf("Expected subscribed ack after the malformed frame, got %+v", ack)
	}
	if len(ack.Symbols) != 1 || ack.Symbols[0] != "BTCUSDT" {
		t.Errorf("Expected normalized symbol list, got %v", ack.Symbols)
	}
}

func TestClientAdapter_UnsupportedOpKeepsConnection(t *testing.T) {
	conn := dial(t)

	if err := wsutil.WriteClientText(conn, []byte(`{"op":"snapshot"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var reply protocol.ErrorReply
	readJSON(t, conn, &reply)
	if reply.Code != protocol.CodeUnsupportedOp {
		t.Errorf("Expected UNSUPPORTED_OP, got %+v", reply)
	}

	if err := wsutil.WriteClientText(conn, []byte(`{"op":"subscribe","symbols":["BTCUSDT"]}`)); err != nil {
		t.Fatalf("Connection should still accept frames: %v", err)
	}
	var ack protocol.Ack
	readJSON(t, conn, &ack)
	if ack.Op != protocol.OpSubscribed {
		t.Errorf("Expected subscribed ack, got %+v", ack)
	}
}
