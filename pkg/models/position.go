package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"

	// Wire aliases accepted from the order surface
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// IsLong treats BUY as LONG and SELL as SHORT.
func (s Side) IsLong() bool {
	return s == SideLong || s == SideBuy
}

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

type PositionStatus string

const (
	StatusPending   PositionStatus = "PENDING"
	StatusOpen      PositionStatus = "OPEN"
	StatusClosed    PositionStatus = "CLOSED"
	StatusCancelled PositionStatus = "CANCELLED"
)

// Position is the single order/position entity. A LIMIT order lives as a
// PENDING row until filled; a MARKET order is created directly OPEN.
// CLOSED and CANCELLED are absorbing states.
//
// Invariants: NotionalAmount = Margin * Leverage; Quantity is fixed as
// NotionalAmount / executionPrice at the moment the execution price is known.
// Margin stays locked for the whole PENDING and OPEN lifetime and is released
// exactly once at CLOSED or CANCELLED.
type Position struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Asset          string          `gorm:"index;not null" json:"asset"`
	Side           Side            `gorm:"not null" json:"side"`
	OrderType      OrderType       `gorm:"not null" json:"order_type"`
	Status         PositionStatus  `gorm:"index;not null" json:"status"`
	Margin         decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"margin"`
	Leverage       int             `gorm:"not null" json:"leverage"`
	NotionalAmount decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"notional_amount"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,8)" json:"quantity"`
	EntryPrice     decimal.Decimal `gorm:"type:decimal(20,8)" json:"entry_price"`

	LimitPrice      *decimal.Decimal `gorm:"type:decimal(20,8)" json:"limit_price,omitempty"`
	TakeProfitPrice *decimal.Decimal `gorm:"type:decimal(20,8)" json:"take_profit_price,omitempty"`
	StopLossPrice   *decimal.Decimal `gorm:"type:decimal(20,8)" json:"stop_loss_price,omitempty"`
	ExitPrice       *decimal.Decimal `gorm:"type:decimal(20,8)" json:"exit_price,omitempty"`
	Pnl             *decimal.Decimal `gorm:"type:decimal(20,8)" json:"pnl,omitempty"`

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// UserBalance splits a user's funds into the tradable part and the part
// locked as margin against PENDING/OPEN positions. Any single transition
// must conserve tradable+locked up to the pnl applied by that transition.
type UserBalance struct {
	UserID   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	Tradable decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"tradable"`
	Locked   decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"locked"`
}
