package testutils

import (
	"context"
	"sync"

	"github.com/tickplane/tickplane/cmd/gateway/internal/protocol"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Acks     []protocol.Ack
	Errors   []protocol.ErrorReply
	RawBytes []string
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	switch msg := v.(type) {
	case protocol.Ack:
		m.Acks = append(m.Acks, msg)
	case protocol.ErrorReply:
		m.Errors = append(m.Errors, msg)
	}
}

func (m *MockClient) SendBytes(b []byte) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Closed {
		return false
	}
	m.RawBytes = append(m.RawBytes, string(b))
	return true
}

func (m *MockClient) LastAck() protocol.Ack {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Acks) == 0 {
		return protocol.Ack{}
	}
	return m.Acks[len(m.Acks)-1]
}

func (m *MockClient) Received() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	out := make([]string, len(m.RawBytes))
	copy(out, m.RawBytes)
	return out
}

// MockBusStore simulates the redis bus
type MockBusStore struct {
	SubscribedChannels map[string]int // symbol -> active subscription count
	UnsubscribeCalls   map[string]int
	Mu                 sync.Mutex
}

func NewMockStore() *MockBusStore {
	return &MockBusStore{
		SubscribedChannels: make(map[string]int),
		UnsubscribeCalls:   make(map[string]int),
	}
}

func (m *MockBusStore) GetSnapshots(ctx context.Context, symbols []string) ([]string, error) {
	return nil, nil
}

func (m *MockBusStore) SubscribeToFeed(ctx context.Context, symbol string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.SubscribedChannels[symbol]++
	return nil
}

func (m *MockBusStore) UnsubscribeFromFeed(ctx context.Context, symbol string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.UnsubscribeCalls[symbol]++
	m.SubscribedChannels[symbol]--
	if m.SubscribedChannels[symbol] <= 0 {
		delete(m.SubscribedChannels, symbol)
	}
	return nil
}

func (m *MockBusStore) RunPubSub(ctx context.Context, onMessage func(symbol string, payload string)) {
	// No-op for unit tests
}

func (m *MockBusStore) Close() error { return nil }
