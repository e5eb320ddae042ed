package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time        { return m.CurrentTime }
func (m *MockClock) Sleep(d time.Duration) { m.CurrentTime = m.CurrentTime.Add(d) }

type MockRand struct {
	ValInt   int
	ValFloat float64
}

func (m *MockRand) Intn(n int) int   { return m.ValInt }
func (m *MockRand) Float64() float64 { return m.ValFloat }

type MockPipeline struct {
	redis.Pipeliner

	ExecCount    int
	RecordedCmds []string
	Payloads     []string
	Mu           sync.Mutex
}

func (m *MockPipeline) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, "SET "+key)
	if b, ok := value.([]byte); ok {
		m.Payloads = append(m.Payloads, string(b))
	}
	return redis.NewStatusCmd(ctx)
}

func (m *MockPipeline) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, "PUBLISH "+channel)
	return redis.NewIntCmd(ctx)
}

func (m *MockPipeline) Exec(ctx context.Context) ([]redis.Cmder, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.ExecCount++
	return nil, nil
}

type MockRedisClient struct {
	PipelineSpy *MockPipeline
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{PipelineSpy: &MockPipeline{}}
}

func (m *MockRedisClient) Pipeline() redis.Pipeliner {
	return m.PipelineSpy
}

type MockPusher struct {
	Pushed map[string][]string
	Mu     sync.Mutex
}

func NewMockPusher() *MockPusher {
	return &MockPusher{Pushed: make(map[string][]string)}
}

func (m *MockPusher) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	for _, v := range values {
		if b, ok := v.([]byte); ok {
			m.Pushed[key] = append(m.Pushed[key], string(b))
		}
	}
	return redis.NewIntCmd(ctx)
}
