package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tickplane/tickplane/cmd/trigger/internal/store"
	"github.com/tickplane/tickplane/pkg/models"
)

// Clock abstracts time for the debounce window
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store is the engine's view of the position/balance persistence layer.
type Store interface {
	PendingLimitOrders(ctx context.Context, asset string) ([]models.Position, error)
	OpenPositionsWithTriggers(ctx context.Context, asset string) ([]models.Position, error)
	FillOrder(ctx context.Context, pos *models.Position, entryPrice, quantity decimal.Decimal) error
	ClosePosition(ctx context.Context, pos *models.Position, exitPrice, pnl decimal.Decimal, closedAt time.Time) error
}

// Notifier hands an event to the delivery worker.
type Notifier interface {
	Enqueue(ctx context.Context, n models.Notification) error
}

// Engine turns live ticks into limit-order fills and TP/SL position closes.
// Evaluation is debounced per symbol; ticks inside the window are dropped
// without effect.
type Engine struct {
	store       Store
	notifier    Notifier
	clock       Clock
	quoteSuffix string
	debounce    time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	lastEval map[string]time.Time
}

func NewEngine(st Store, notifier Notifier, quoteSuffix string, debounce time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		store:       st,
		notifier:    notifier,
		clock:       realClock{},
		quoteSuffix: quoteSuffix,
		debounce:    debounce,
		logger:      logger,
		lastEval:    make(map[string]time.Time),
	}
}

// WithClock substitutes the debounce clock. Test hook.
func (e *Engine) WithClock(c Clock) *Engine {
	e.clock = c
	return e
}

// HandleTick is the bus callback. Ticks for different symbols may run
// concurrently; ticks for the same symbol are spaced by the debounce window.
func (e *Engine) HandleTick(ctx context.Context, symbol string, payload string) {
	var tick models.Tick
	if err := json.Unmarshal([]byte(payload), &tick); err != nil {
		e.logger.Error("Malformed bus tick", zap.String("symbol", symbol), zap.Error(err))
		return
	}

	// A non-positive price cannot be evaluated (quantity = notional / price)
	// and never comes from a real trade; drop it without stamping the window.
	if !tick.Price.IsPositive() {
		e.logger.Warn("Dropping tick with non-positive price",
			zap.String("symbol", symbol), zap.String("price", tick.Price.String()))
		return
	}

	if !e.eligible(symbol) {
		return
	}

	// Orders and positions are stored per-asset, not per-trading-pair
	asset := strings.TrimSuffix(symbol, e.quoteSuffix)
	price := tick.Price

	// The two checks are independent: no shared mutable state between them
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.evaluateLimitOrders(ctx, asset, price)
	}()
	go func() {
		defer wg.Done()
		e.evaluatePositions(ctx, asset, price)
	}()
	wg.Wait()
}

// eligible reports whether the debounce window for the symbol has elapsed,
// and stamps it when it has. The window is an approximation, not a lock.
func (e *Engine) eligible(symbol string) bool {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastEval[symbol]; ok && now.Sub(last) < e.debounce {
		return false
	}
	e.lastEval[symbol] = now
	return true
}

func (e *Engine) evaluateLimitOrders(ctx context.Context, asset string, price decimal.Decimal) {
	orders, err := e.store.PendingLimitOrders(ctx, asset)
	if err != nil {
		e.logger.Error("Pending order lookup failed", zap.String("asset", asset), zap.Error(err))
		return
	}

	for i := range orders {
		order := orders[i]
		if order.LimitPrice == nil {
			continue
		}

		var fills bool
		if order.Side.IsLong() {
			fills = price.LessThanOrEqual(*order.LimitPrice)
		} else {
			fills = price.GreaterThanOrEqual(*order.LimitPrice)
		}
		if !fills {
			continue
		}

		// Quantity is fixed at the actual execution price, not the limit price
		quantity := order.NotionalAmount.Div(price)

		if err := e.store.FillOrder(ctx, &order, price, quantity); err != nil {
			if errors.Is(err, store.ErrStateConflict) {
				// Another evaluation won; nothing to do
				continue
			}
			e.logger.Error("Order fill failed", zap.String("order_id", order.ID.String()), zap.Error(err))
			continue
		}

		e.dispatch(models.Notification{
			Recipient: order.UserID,
			Asset:     order.Asset,
			Amount:    order.NotionalAmount,
			Quantity:  quantity,
			OrderID:   order.ID,
			EventType: models.EventOrderFilled,
		})
	}
}

func (e *Engine) evaluatePositions(ctx context.Context, asset string, price decimal.Decimal) {
	positions, err := e.store.OpenPositionsWithTriggers(ctx, asset)
	if err != nil {
		e.logger.Error("Open position lookup failed", zap.String("asset", asset), zap.Error(err))
		return
	}

	for i := range positions {
		pos := positions[i]
		isLong := pos.Side.IsLong()

		// Stop-loss has strict priority: when both thresholds would fire on
		// the same tick, the position closes via SL and TP is not looked at.
		if pos.StopLossPrice != nil {
			slHit := price.LessThanOrEqual(*pos.StopLossPrice)
			if !isLong {
				slHit = price.GreaterThanOrEqual(*pos.StopLossPrice)
			}
			if slHit {
				e.close(ctx, pos, price, models.EventStopLossClosed)
				continue
			}
		}

		if pos.TakeProfitPrice != nil {
			tpHit := price.GreaterThanOrEqual(*pos.TakeProfitPrice)
			if !isLong {
				tpHit = price.LessThanOrEqual(*pos.TakeProfitPrice)
			}
			if tpHit {
				e.close(ctx, pos, price, models.EventTakeProfitClosed)
			}
		}
	}
}

// Pnl computes realized pnl for a close at exitPrice.
func Pnl(pos *models.Position, exitPrice decimal.Decimal) decimal.Decimal {
	if pos.Side.IsLong() {
		return exitPrice.Sub(pos.EntryPrice).Mul(pos.Quantity)
	}
	return pos.EntryPrice.Sub(exitPrice).Mul(pos.Quantity)
}

func (e *Engine) close(ctx context.Context, pos models.Position, exitPrice decimal.Decimal, event string) {
	pnl := Pnl(&pos, exitPrice)

	if err := e.store.ClosePosition(ctx, &pos, exitPrice, pnl, e.clock.Now()); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			return
		}
		e.logger.Error("Position close failed", zap.String("position_id", pos.ID.String()), zap.Error(err))
		return
	}

	e.dispatch(models.Notification{
		Recipient: pos.UserID,
		Asset:     pos.Asset,
		Amount:    pnl,
		Quantity:  pos.Quantity,
		OrderID:   pos.ID,
		EventType: event,
	})
}

// dispatch is fire-and-forget: it runs after the financial transaction has
// committed and its failure never rolls anything back.
func (e *Engine) dispatch(n models.Notification) {
	go func() {
		if err := e.notifier.Enqueue(context.Background(), n); err != nil {
			e.logger.Error("Notification dispatch failed",
				zap.String("order_id", n.OrderID.String()),
				zap.String("event", n.EventType),
				zap.Error(err))
		}
	}()
}
