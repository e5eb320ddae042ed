package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tickplane/tickplane/pkg/models"
)

// ErrStateConflict means the row was not in the expected status anymore:
// another evaluation filled or closed it first. Callers treat it as a no-op.
var ErrStateConflict = errors.New("position state conflict")

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) PendingLimitOrders(ctx context.Context, asset string) ([]models.Position, error) {
	var orders []models.Position
	err := s.db.WithContext(ctx).
		Where("asset = ? AND status = ? AND order_type = ?", asset, models.StatusPending, models.OrderTypeLimit).
		Find(&orders).Error
	return orders, err
}

func (s *GormStore) OpenPositionsWithTriggers(ctx context.Context, asset string) ([]models.Position, error) {
	var positions []models.Position
	err := s.db.WithContext(ctx).
		Where("asset = ? AND status = ?", asset, models.StatusOpen).
		Where("take_profit_price IS NOT NULL OR stop_loss_price IS NOT NULL").
		Find(&positions).Error
	return positions, err
}

// FillOrder transitions PENDING -> OPEN with the execution price fixed at the
// current tick. The status guard makes concurrent evaluations race-safe: the
// loser sees zero affected rows and backs off.
func (s *GormStore) FillOrder(ctx context.Context, pos *models.Position, entryPrice, quantity decimal.Decimal) error {
	res := s.db.WithContext(ctx).
		Model(&models.Position{}).
		Where("id = ? AND status = ?", pos.ID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":      models.StatusOpen,
			"entry_price": entryPrice,
			"quantity":    quantity,
		})
	if res.Error != nil {
		return fmt.Errorf("fill order %s: %w", pos.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStateConflict
	}
	return nil
}

// ClosePosition applies the position transition and the balance update as one
// transaction; partial application is never observable. The margin locked at
// open is released exactly once, here.
func (s *GormStore) ClosePosition(ctx context.Context, pos *models.Position, exitPrice, pnl decimal.Decimal, closedAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Position{}).
			Where("id = ? AND status = ?", pos.ID, models.StatusOpen).
			Updates(map[string]interface{}{
				"status":     models.StatusClosed,
				"exit_price": exitPrice,
				"pnl":        pnl,
				"closed_at":  closedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("close position %s: %w", pos.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStateConflict
		}

		var bal models.UserBalance
		if err := tx.Where("user_id = ?", pos.UserID).First(&bal).Error; err != nil {
			return fmt.Errorf("load balance for %s: %w", pos.UserID, err)
		}

		next := ApplyClose(bal, pos.Margin, pnl)
		if err := tx.Model(&models.UserBalance{}).
			Where("user_id = ?", pos.UserID).
			Updates(map[string]interface{}{
				"tradable": next.Tradable,
				"locked":   next.Locked,
			}).Error; err != nil {
			return fmt.Errorf("update balance for %s: %w", pos.UserID, err)
		}
		return nil
	})
}

// ApplyClose returns the balance after releasing the position's margin and
// applying realized pnl. Locked never goes negative.
func ApplyClose(bal models.UserBalance, margin, pnl decimal.Decimal) models.UserBalance {
	bal.Tradable = bal.Tradable.Add(margin).Add(pnl)
	bal.Locked = bal.Locked.Sub(margin)
	if bal.Locked.IsNegative() {
		bal.Locked = decimal.Zero
	}
	return bal
}
