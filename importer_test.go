package salelink_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ilcreatore32/salelink"
	"github.com/ilcreatore32/salelink/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type importFixture struct {
	store     *memstore.Store
	product9  salelink.Product
	product11 salelink.Product
	order     salelink.SaleOrder
	importer  *salelink.Importer
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	store := memstore.New()
	desk := store.AddTemplate("Customizable Desk", decimal.RequireFromString("750.00"))
	p9, err := store.AddVariant(desk.ID, "Customizable Desk (Steel)", decimal.Zero)
	require.NoError(t, err)
	chair := store.AddTemplate("Office Chair", decimal.RequireFromString("70.00"))
	p11, err := store.AddVariant(chair.ID, "Office Chair (Black)", decimal.RequireFromString("2.50"))
	require.NoError(t, err)

	return &importFixture{
		store:     store,
		product9:  p9,
		product11: p11,
		order:     store.AddOrder("S00042", 0),
		importer:  salelink.NewImporter(store, store, salelink.PriceLineDeriver{Prices: store}),
	}
}

func (f *importFixture) orderLines(t *testing.T) []salelink.OrderLine {
	t.Helper()
	o, err := f.store.Order(context.Background(), f.order.ID)
	require.NoError(t, err)
	return o.Lines
}

func TestImporter_ImportProducts(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	ws := f.importer.PrepareProducts(f.order.ID, f.product9.ID, f.product11.ID)
	assert.Equal(t, salelink.StateStaged, ws.State())
	require.NoError(t, ws.SetQuantity(0, 4))
	require.NoError(t, ws.SetQuantity(1, 6))

	outcome, err := f.importer.Commit(ctx, ws)
	require.NoError(t, err)
	assert.False(t, outcome.IsNoOp())
	assert.Equal(t, 2, outcome.LinesCreated())
	assert.True(t, ws.IsCommitted())

	lines := f.orderLines(t)
	require.Len(t, lines, 2)
	for _, line := range lines {
		switch line.ProductID {
		case f.product9.ID:
			assert.Equal(t, 4.0, line.Quantity)
			assert.True(t, line.PriceUnit.Equal(decimal.RequireFromString("750")))
		case f.product11.ID:
			assert.Equal(t, 6.0, line.Quantity)
			assert.True(t, line.PriceUnit.Equal(decimal.RequireFromString("72.5")))
		default:
			t.Fatalf("unexpected product %d", line.ProductID)
		}
	}
}

func TestImporter_ConfirmKeepsQuantities(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	ws := f.importer.Prepare(f.order.ID, []salelink.Item{
		{ProductID: f.product9.ID, Quantity: 3},
		{ProductID: f.product11.ID, Quantity: 5},
	})
	_, err := f.importer.Commit(ctx, ws)
	require.NoError(t, err)
	require.NoError(t, f.store.ConfirmOrder(ctx, f.order.ID))

	lines := f.orderLines(t)
	require.Len(t, lines, 2)
	assert.Equal(t, f.product9.ID, lines[0].ProductID)
	assert.Equal(t, 3.0, lines[0].Quantity)
	assert.Equal(t, f.product11.ID, lines[1].ProductID)
	assert.Equal(t, 5.0, lines[1].Quantity)
	assert.Less(t, lines[0].Sequence, lines[1].Sequence)
	assert.Equal(t, salelink.StatusConfirmed, lines[0].OrderStatus)
}

func TestImporter_NoValues(t *testing.T) {
	f := newImportFixture(t)
	noValues := salelink.LineDeriverFunc(func(context.Context, salelink.Selection, salelink.SaleOrder) (salelink.LineValues, bool, error) {
		return salelink.LineValues{}, false, nil
	})
	importer := salelink.NewImporter(f.store, f.store, noValues)

	ws := importer.PrepareProducts(f.order.ID, f.product9.ID, f.product11.ID)
	outcome, err := importer.Commit(context.Background(), ws)
	require.NoError(t, err)
	assert.False(t, outcome.IsNoOp())
	assert.Equal(t, 0, outcome.LinesCreated())
	assert.Equal(t, 2, outcome.Skipped)
	assert.Empty(t, f.orderLines(t))
}

func TestImporter_EmptyWorkingSet(t *testing.T) {
	f := newImportFixture(t)

	ws := f.importer.Prepare(f.order.ID, nil)
	assert.Equal(t, salelink.StateEmpty, ws.State())

	outcome, err := f.importer.Commit(context.Background(), ws)
	require.NoError(t, err)
	assert.False(t, outcome.IsNoOp())
	assert.Equal(t, 0, outcome.LinesCreated())
	assert.Empty(t, f.orderLines(t))
}

func TestImporter_NoTarget(t *testing.T) {
	f := newImportFixture(t)

	tests := []struct {
		name   string
		target int64
	}{
		{name: "no active id", target: 0},
		{name: "unknown order", target: 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := f.importer.PrepareProducts(tt.target, f.product9.ID, f.product11.ID)
			outcome, err := f.importer.Commit(context.Background(), ws)
			require.NoError(t, err)
			assert.True(t, outcome.IsNoOp())
			assert.Equal(t, 0, outcome.LinesCreated())
			assert.True(t, ws.IsCommitted())
			assert.Empty(t, f.orderLines(t))
		})
	}
}

func TestImporter_SkipsInvalidSelections(t *testing.T) {
	f := newImportFixture(t)

	ws := f.importer.Prepare(f.order.ID, []salelink.Item{
		{ProductID: f.product9.ID, Quantity: 2},
		{ProductID: 0, Quantity: 1},
		{ProductID: 424242, Quantity: 1},
		{ProductID: f.product11.ID, Quantity: 1},
	})
	outcome, err := f.importer.Commit(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.LinesCreated())
	assert.Equal(t, 2, outcome.Skipped)

	lines := f.orderLines(t)
	require.Len(t, lines, 2)
	assert.Equal(t, f.product9.ID, lines[0].ProductID)
	assert.Equal(t, f.product11.ID, lines[1].ProductID)
}

func TestImporter_NegativeQuantitySkipped(t *testing.T) {
	f := newImportFixture(t)

	ws := f.importer.Prepare(f.order.ID, []salelink.Item{
		{ProductID: f.product9.ID, Quantity: 2},
		{ProductID: f.product11.ID, Quantity: -5},
	})
	sels := ws.Selections()
	require.Len(t, sels, 2)
	assert.Equal(t, -5.0, sels[1].Quantity)

	outcome, err := f.importer.Commit(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.LinesCreated())
	assert.Equal(t, 1, outcome.Skipped)

	lines := f.orderLines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, f.product9.ID, lines[0].ProductID)
	assert.Equal(t, 2.0, lines[0].Quantity)
}

func TestImporter_NegativeQuantityCorrected(t *testing.T) {
	f := newImportFixture(t)

	ws := f.importer.Prepare(f.order.ID, []salelink.Item{{ProductID: f.product11.ID, Quantity: -5}})
	require.NoError(t, ws.SetQuantity(0, 3))

	outcome, err := f.importer.Commit(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.LinesCreated())
	assert.Zero(t, outcome.Skipped)
	assert.Equal(t, 3.0, outcome.Lines[0].Quantity)
}

func TestImporter_SecondCommitRejected(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	ws := f.importer.PrepareProducts(f.order.ID, f.product9.ID)
	_, err := f.importer.Commit(ctx, ws)
	require.NoError(t, err)

	_, err = f.importer.Commit(ctx, ws)
	assert.ErrorIs(t, err, salelink.ErrAlreadyCommitted)
	assert.ErrorIs(t, ws.SetQuantity(0, 2), salelink.ErrAlreadyCommitted)
	assert.ErrorIs(t, ws.Add(salelink.Item{ProductID: f.product11.ID}), salelink.ErrAlreadyCommitted)
	assert.Len(t, f.orderLines(t), 1)
}

func TestImporter_DefaultQuantity(t *testing.T) {
	f := newImportFixture(t)
	importer := salelink.NewImporter(f.store, f.store, salelink.PriceLineDeriver{Prices: f.store},
		salelink.WithDefaultQuantity(12))

	ws := importer.Prepare(f.order.ID, []salelink.Item{{ProductID: f.product9.ID}, {ProductID: f.product11.ID, Quantity: 2}})
	sels := ws.Selections()
	require.Len(t, sels, 2)
	assert.Equal(t, 12.0, sels[0].Quantity)
	assert.Equal(t, 2.0, sels[1].Quantity)
}

func TestWorkingSet_SetQuantityErrors(t *testing.T) {
	f := newImportFixture(t)
	ws := f.importer.PrepareProducts(f.order.ID, f.product9.ID)

	assert.ErrorIs(t, ws.SetQuantity(1, 2), salelink.ErrSelectionIndex)
	assert.ErrorIs(t, ws.SetQuantity(-1, 2), salelink.ErrSelectionIndex)
	assert.ErrorIs(t, ws.SetQuantity(0, -1), salelink.ErrNegativeQuantity)
	assert.ErrorIs(t, ws.Add(salelink.Item{ProductID: f.product11.ID, Quantity: -3}), salelink.ErrNegativeQuantity)
	assert.Equal(t, 1, ws.Len())
}

// mockLineStore lets a test fail the batch write.
type mockLineStore struct {
	mock.Mock
}

func (m *mockLineStore) FindByProduct(ctx context.Context, productIDs []int64) ([]salelink.OrderLine, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]salelink.OrderLine), args.Error(1)
}

func (m *mockLineStore) CreateLines(ctx context.Context, orderID int64, values []salelink.LineValues) ([]salelink.OrderLine, error) {
	args := m.Called(ctx, orderID, values)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]salelink.OrderLine), args.Error(1)
}

func TestImporter_StorageFailureLeavesSetStaged(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()
	boom := errors.New("disk full")

	lines := new(mockLineStore)
	lines.On("CreateLines", mock.Anything, f.order.ID, mock.AnythingOfType("[]salelink.LineValues")).Return(nil, boom).Once()
	importer := salelink.NewImporter(f.store, lines, salelink.PriceLineDeriver{Prices: f.store})

	ws := importer.PrepareProducts(f.order.ID, f.product9.ID, f.product11.ID)
	_, err := importer.Commit(ctx, ws)
	var storageErr *salelink.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ws.IsCommitted())
	assert.Equal(t, salelink.StateStaged, ws.State())

	created := []salelink.OrderLine{{ID: 1, OrderID: f.order.ID}, {ID: 2, OrderID: f.order.ID}}
	lines.On("CreateLines", mock.Anything, f.order.ID, mock.MatchedBy(func(v []salelink.LineValues) bool {
		return len(v) == 2
	})).Return(created, nil).Once()

	outcome, err := importer.Commit(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.LinesCreated())
	lines.AssertExpectations(t)
}

func TestImporter_DeriveFailureAborts(t *testing.T) {
	f := newImportFixture(t)
	boom := errors.New("price service down")
	failing := salelink.LineDeriverFunc(func(_ context.Context, sel salelink.Selection, _ salelink.SaleOrder) (salelink.LineValues, bool, error) {
		if sel.Index == 1 {
			return salelink.LineValues{}, false, boom
		}
		return salelink.LineValues{ProductID: sel.ProductID, Quantity: sel.Quantity}, true, nil
	})
	importer := salelink.NewImporter(f.store, f.store, failing)

	ws := importer.PrepareProducts(f.order.ID, f.product9.ID, f.product11.ID)
	_, err := importer.Commit(context.Background(), ws)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.orderLines(t), "nothing written when the batch aborts")
}
