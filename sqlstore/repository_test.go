package sqlstore

import (
	"context"
	"testing"

	"github.com/ilcreatore32/salelink"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every pooled connection would open its own in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, nil)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

type seed struct {
	template salelink.Product
	variant1 salelink.Product
	variant2 salelink.Product
	order    salelink.SaleOrder
}

func seedCatalog(t *testing.T, repo *Repository) seed {
	t.Helper()
	ctx := context.Background()
	tmpl, err := repo.CreateTemplate(ctx, "Test Product Template", decimal.NewFromInt(100))
	require.NoError(t, err)
	v1, err := repo.CreateVariant(ctx, tmpl.ID, "Test Product Template (S)", decimal.Zero)
	require.NoError(t, err)
	v2, err := repo.CreateVariant(ctx, tmpl.ID, "Test Product Template (M)", decimal.NewFromFloat(12.5))
	require.NoError(t, err)
	order, err := repo.CreateOrder(ctx, "S00001", 0)
	require.NoError(t, err)
	full, err := repo.Product(ctx, salelink.KindTemplate, tmpl.ID)
	require.NoError(t, err)
	return seed{template: *full, variant1: v1, variant2: v2, order: order}
}

func TestRepository_Product(t *testing.T) {
	repo := setupTestRepository(t)
	s := seedCatalog(t, repo)
	ctx := context.Background()

	assert.Equal(t, salelink.KindTemplate, s.template.Kind)
	assert.Equal(t, []int64{s.variant1.ID, s.variant2.ID}, s.template.VariantIDs)

	v2, err := repo.Product(ctx, salelink.KindVariant, s.variant2.ID)
	require.NoError(t, err)
	assert.Equal(t, s.template.ID, v2.TemplateID)
	assert.True(t, v2.ListPrice.Equal(decimal.NewFromFloat(112.5)), "got %s", v2.ListPrice)

	_, err = repo.Product(ctx, salelink.KindVariant, 9999)
	assert.ErrorIs(t, err, salelink.ErrProductNotFound)
}

func TestRepository_CurrentPrice(t *testing.T) {
	repo := setupTestRepository(t)
	s := seedCatalog(t, repo)
	ctx := context.Background()

	price, err := repo.CurrentPrice(ctx, s.variant1.ID)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(100)))

	_, err = repo.CurrentPrice(ctx, 9999)
	assert.ErrorIs(t, err, salelink.ErrProductNotFound)
}

func TestRepository_CreateAndFindLines(t *testing.T) {
	repo := setupTestRepository(t)
	s := seedCatalog(t, repo)
	ctx := context.Background()

	created, err := repo.CreateLines(ctx, s.order.ID, []salelink.LineValues{
		{ProductID: s.variant1.ID, Quantity: 1, PriceUnit: decimal.NewFromInt(100), Sequence: 10},
		{ProductID: s.variant2.ID, Quantity: 2, PriceUnit: decimal.NewFromInt(100), Sequence: 11, Description: "custom"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotZero(t, created[0].ID)
	assert.Equal(t, "Test Product Template (S)", created[0].Description)
	assert.Equal(t, "custom", created[1].Description)
	assert.Equal(t, salelink.StatusDraft, created[0].OrderStatus)

	lines, err := repo.FindByProduct(ctx, []int64{s.variant2.ID})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2.0, lines[0].Quantity)
	assert.True(t, lines[0].PriceUnit.Equal(decimal.NewFromInt(100)))

	require.NoError(t, repo.ConfirmOrder(ctx, s.order.ID))
	lines, err = repo.FindByProduct(ctx, s.template.VariantIDs)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, salelink.StatusConfirmed, lines[0].OrderStatus)

	lines, err = repo.FindByProduct(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRepository_CreateLinesRollsBack(t *testing.T) {
	repo := setupTestRepository(t)
	s := seedCatalog(t, repo)
	ctx := context.Background()

	_, err := repo.CreateLines(ctx, s.order.ID, []salelink.LineValues{
		{ProductID: s.variant1.ID, Quantity: 1, PriceUnit: decimal.NewFromInt(100)},
		{ProductID: s.variant2.ID, Quantity: -1, PriceUnit: decimal.NewFromInt(100)},
	})
	require.Error(t, err)

	order, err := repo.Order(ctx, s.order.ID)
	require.NoError(t, err)
	assert.Empty(t, order.Lines, "the first insert must be rolled back")

	_, err = repo.CreateLines(ctx, 9999, []salelink.LineValues{{ProductID: s.variant1.ID, Quantity: 1}})
	assert.ErrorIs(t, err, salelink.ErrOrderNotFound)
}

func TestRepository_FindActiveOrder(t *testing.T) {
	repo := setupTestRepository(t)
	s := seedCatalog(t, repo)
	ctx := context.Background()

	o, err := repo.FindActiveOrder(ctx, s.order.ID)
	require.NoError(t, err)
	assert.Equal(t, "S00001", o.Name)

	_, err = repo.FindActiveOrder(ctx, 0)
	assert.ErrorIs(t, err, salelink.ErrNoActiveTarget)
	_, err = repo.FindActiveOrder(ctx, 9999)
	assert.ErrorIs(t, err, salelink.ErrNoActiveTarget)

	assert.ErrorIs(t, repo.ConfirmOrder(ctx, 9999), salelink.ErrOrderNotFound)
}
