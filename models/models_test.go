package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestOrderStatusTransitions(t *testing.T) {
	all := []OrderStatus{OrderPending, OrderApproved, OrderDeclined}
	for _, from := range all {
		for _, to := range all {
			want := from == OrderPending && to != OrderPending
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, OrderPending.IsTerminal())
	assert.True(t, OrderApproved.IsTerminal())
	assert.True(t, OrderDeclined.IsTerminal())
}

func TestProductHasStock(t *testing.T) {
	finite := Product{Quantity: intPtr(3)}
	assert.True(t, finite.HasStock(3))
	assert.False(t, finite.HasStock(5))

	unlimited := Product{IsUnlimited: true}
	assert.True(t, unlimited.HasStock(1000))
	assert.Equal(t, -1, unlimited.Available())

	missing := Product{}
	assert.False(t, missing.HasStock(1))
}

func TestProductValidate(t *testing.T) {
	p := Product{Title: "Calculator", Price: decimal.NewFromInt(10), Quantity: intPtr(1)}
	assert.NoError(t, p.Validate())

	p.Quantity = intPtr(-1)
	assert.ErrorIs(t, p.Validate(), ErrInvalidQuantity)

	p.IsUnlimited = true
	assert.NoError(t, p.Validate())

	p.Price = decimal.Zero
	assert.ErrorIs(t, p.Validate(), ErrInvalidPrice)
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(2, 10, 25)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrevious)

	page, limit := NormalizePage(0, 1000)
	assert.Equal(t, 1, page)
	assert.Equal(t, MaxPageSize, limit)
}
