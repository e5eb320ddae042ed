package store_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tickplane/tickplane/cmd/trigger/internal/store"
	"github.com/tickplane/tickplane/pkg/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyClose_ProfitConservation(t *testing.T) {
	bal := models.UserBalance{Tradable: d("1000"), Locked: d("200")}

	next := store.ApplyClose(bal, d("200"), d("50"))

	assert.True(t, next.Tradable.Equal(d("1250")), "tradable = 1000 + 200 margin + 50 pnl")
	assert.True(t, next.Locked.Equal(d("0")))
}

func TestApplyClose_LossConservation(t *testing.T) {
	bal := models.UserBalance{Tradable: d("1000"), Locked: d("200")}

	next := store.ApplyClose(bal, d("200"), d("-50"))

	assert.True(t, next.Tradable.Equal(d("1150")), "tradable = 1000 + 200 margin - 50 pnl")
	assert.True(t, next.Locked.Equal(d("0")))
}

func TestApplyClose_PartialLockRemains(t *testing.T) {
	bal := models.UserBalance{Tradable: d("500"), Locked: d("300")}

	next := store.ApplyClose(bal, d("100"), d("25"))

	assert.True(t, next.Tradable.Equal(d("625")))
	assert.True(t, next.Locked.Equal(d("200")), "other positions' margin stays locked")
}

func TestApplyClose_LockedNeverNegative(t *testing.T) {
	// Margin larger than the locked balance (inconsistent upstream state)
	// must clamp to zero instead of going negative
	bal := models.UserBalance{Tradable: d("100"), Locked: d("50")}

	next := store.ApplyClose(bal, d("80"), d("0"))

	assert.True(t, next.Locked.Equal(decimal.Zero))
}
