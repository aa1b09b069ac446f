package memstore

import (
	"context"
	"testing"

	"github.com/ilcreatore32/salelink"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_VariantPricing(t *testing.T) {
	s := New()
	ctx := context.Background()
	tmpl := s.AddTemplate("Chair", decimal.NewFromInt(70))
	v, err := s.AddVariant(tmpl.ID, "Chair (Red)", decimal.RequireFromString("4.99"))
	require.NoError(t, err)

	price, err := s.CurrentPrice(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "74.99", price.String())

	_, err = s.AddVariant(999, "orphan", decimal.Zero)
	assert.ErrorIs(t, err, salelink.ErrProductNotFound)
	_, err = s.CurrentPrice(ctx, tmpl.ID)
	assert.ErrorIs(t, err, salelink.ErrProductNotFound)

	p, err := s.Product(ctx, salelink.KindTemplate, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{v.ID}, p.VariantIDs)
}

func TestStore_CreateLinesIsAllOrNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	tmpl := s.AddTemplate("Desk", decimal.NewFromInt(500))
	v, err := s.AddVariant(tmpl.ID, "Desk", decimal.Zero)
	require.NoError(t, err)
	o := s.AddOrder("S1", 0)

	_, err = s.CreateLines(ctx, o.ID, []salelink.LineValues{
		{ProductID: v.ID, Quantity: 1},
		{ProductID: 12345, Quantity: 1},
	})
	assert.ErrorIs(t, err, salelink.ErrProductNotFound)

	order, err := s.Order(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, order.Lines)

	_, err = s.CreateLines(ctx, 777, []salelink.LineValues{{ProductID: v.ID, Quantity: 1}})
	assert.ErrorIs(t, err, salelink.ErrOrderNotFound)

	created, err := s.CreateLines(ctx, o.ID, []salelink.LineValues{{ProductID: v.ID, Quantity: 2, Sequence: 10}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Desk", created[0].Description)
	assert.Equal(t, salelink.StatusDraft, created[0].OrderStatus)
}

func TestStore_FindActiveOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	o := s.AddOrder("S1", 3)

	got, err := s.FindActiveOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.SalespersonID)

	_, err = s.FindActiveOrder(ctx, 0)
	assert.ErrorIs(t, err, salelink.ErrNoActiveTarget)
	_, err = s.FindActiveOrder(ctx, 42)
	assert.ErrorIs(t, err, salelink.ErrNoActiveTarget)

	require.NoError(t, s.ConfirmOrder(ctx, o.ID))
	got, err = s.Order(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, salelink.StatusConfirmed, got.Status)
	assert.ErrorIs(t, s.ConfirmOrder(ctx, 42), salelink.ErrOrderNotFound)
}
