package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tickplane/tickplane/cmd/trigger/internal/store"
	"github.com/tickplane/tickplane/pkg/models"
)

// FakeClock lets tests step through debounce windows deterministically
type FakeClock struct {
	Mu      sync.Mutex
	Current time.Time
}

func NewFakeClock() *FakeClock {
	return &FakeClock{Current: time.Unix(1700000000, 0)}
}

func (c *FakeClock) Now() time.Time {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return c.Current
}

func (c *FakeClock) Advance(d time.Duration) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Current = c.Current.Add(d)
}

type FillRecord struct {
	Position   models.Position
	EntryPrice decimal.Decimal
	Quantity   decimal.Decimal
}

type CloseRecord struct {
	Position  models.Position
	ExitPrice decimal.Decimal
	Pnl       decimal.Decimal
}

// MockStore simulates the position/balance persistence layer
type MockStore struct {
	Mu        sync.Mutex
	Pending   []models.Position
	Open      []models.Position
	Fills     []FillRecord
	Closes    []CloseRecord
	FailIDs   map[string]bool // persistence error for these position ids
	Conflicts map[string]bool // state conflict for these position ids

	LookupCalls int
}

func NewMockStore() *MockStore {
	return &MockStore{
		FailIDs:   make(map[string]bool),
		Conflicts: make(map[string]bool),
	}
}

func (m *MockStore) PendingLimitOrders(ctx context.Context, asset string) ([]models.Position, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.LookupCalls++
	var out []models.Position
	for _, p := range m.Pending {
		if p.Asset == asset {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockStore) OpenPositionsWithTriggers(ctx context.Context, asset string) ([]models.Position, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.LookupCalls++
	var out []models.Position
	for _, p := range m.Open {
		if p.Asset == asset && (p.TakeProfitPrice != nil || p.StopLossPrice != nil) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockStore) FillOrder(ctx context.Context, pos *models.Position, entryPrice, quantity decimal.Decimal) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Conflicts[pos.ID.String()] {
		return store.ErrStateConflict
	}
	if m.FailIDs[pos.ID.String()] {
		return errTestPersistence
	}
	m.Fills = append(m.Fills, FillRecord{Position: *pos, EntryPrice: entryPrice, Quantity: quantity})
	return nil
}

func (m *MockStore) ClosePosition(ctx context.Context, pos *models.Position, exitPrice, pnl decimal.Decimal, closedAt time.Time) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Conflicts[pos.ID.String()] {
		return store.ErrStateConflict
	}
	if m.FailIDs[pos.ID.String()] {
		return errTestPersistence
	}
	m.Closes = append(m.Closes, CloseRecord{Position: *pos, ExitPrice: exitPrice, Pnl: pnl})
	return nil
}

var errTestPersistence = errors.New("simulated persistence failure")

// MockNotifier records dispatched notifications
type MockNotifier struct {
	Mu     sync.Mutex
	Events []models.Notification
}

func (m *MockNotifier) Enqueue(ctx context.Context, n models.Notification) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Events = append(m.Events, n)
	return nil
}

func (m *MockNotifier) Snapshot() []models.Notification {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	out := make([]models.Notification, len(m.Events))
	copy(out, m.Events)
	return out
}
