package writer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tickplane/tickplane/pkg/models"
)

// TickRecord is the persisted form of a tick, appended to the time-series
// table the candle/chart layer reads from.
type TickRecord struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	Symbol    string          `gorm:"index;not null"`
	TradeID   int64           `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	EventTime int64           `gorm:"not null"`
	TradeTime int64           `gorm:"index;not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (TickRecord) TableName() string { return "ticks" }

// TickStore is the queue consumer's sink.
type TickStore struct {
	db *gorm.DB
}

func NewTickStore(db *gorm.DB) *TickStore {
	return &TickStore{db: db}
}

func (s *TickStore) Persist(ctx context.Context, tick *models.Tick) error {
	rec := recordFromTick(tick)
	return s.db.WithContext(ctx).Create(&rec).Error
}

func recordFromTick(t *models.Tick) TickRecord {
	return TickRecord{
		Symbol:    t.Symbol,
		TradeID:   t.TradeID,
		Price:     t.Price,
		Quantity:  t.Quantity,
		EventTime: t.EventTime,
		TradeTime: t.TradeTime,
	}
}
