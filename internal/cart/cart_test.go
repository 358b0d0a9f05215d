package cart

import (
	"context"
	"testing"

	"campus_market/internal/testutil"
	"campus_market/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(db)
	buyer := testutil.CreateUser(t, db, models.RoleUser, false)
	seller := testutil.CreateUser(t, db, models.RoleUser, true)
	book := testutil.CreateProduct(t, db, seller.ID, "12.50", testutil.IntPtr(3))
	service := testutil.CreateProduct(t, db, seller.ID, "4.00", nil)

	_, err := svc.Add(ctx, buyer.ID, book.ID, 1)
	require.NoError(t, err)
	item, err := svc.Add(ctx, buyer.ID, book.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	_, err = svc.Add(ctx, buyer.ID, service.ID, 10)
	require.NoError(t, err)

	summary, err := svc.Get(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, summary.Items, 2)
	assert.Equal(t, 12, summary.Count)
	assert.True(t, summary.Subtotal.Equal(decimal.NewFromInt(65)), summary.Subtotal.String())

	_, err = svc.SetQuantity(ctx, buyer.ID, book.ID, 3)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, buyer.ID, service.ID))
	assert.ErrorIs(t, svc.Remove(ctx, buyer.ID, service.ID), ErrNotFound)

	require.NoError(t, svc.Clear(ctx, buyer.ID))
	summary, err = svc.Get(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.True(t, summary.Subtotal.IsZero())
}

func TestCartValidation(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(db)
	buyer := testutil.CreateUser(t, db, models.RoleUser, false)
	seller := testutil.CreateUser(t, db, models.RoleUser, true)
	book := testutil.CreateProduct(t, db, seller.ID, "12.50", testutil.IntPtr(2))
	own := testutil.CreateProduct(t, db, buyer.ID, "1.00", testutil.IntPtr(2))

	_, err := svc.Add(ctx, buyer.ID, book.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Add(ctx, buyer.ID, book.ID, 3)
	assert.ErrorIs(t, err, ErrExceedsStock)

	_, err = svc.Add(ctx, buyer.ID, own.ID, 1)
	assert.ErrorIs(t, err, ErrOwnListing)

	_, err = svc.Add(ctx, buyer.ID, 4242, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = svc.SetQuantity(ctx, buyer.ID, book.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Add(ctx, buyer.ID, book.ID, 2)
	require.NoError(t, err)
	_, err = svc.SetQuantity(ctx, buyer.ID, book.ID, 5)
	assert.ErrorIs(t, err, ErrExceedsStock)
	_, err = svc.SetQuantity(ctx, buyer.ID, book.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
