package service

import (
	"context"
	"testing"

	"inventory-service/internal/models"
	"inventory-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fakeStore) CreateStock(_ context.Context, stock *models.Stock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextStockID++
	stock.ID = f.nextStockID
	pair := [2]int64{stock.ProductID, stock.WarehouseID}
	f.stocks[pair] = stock.Quantity
	f.stockIDs[stock.ID] = pair
	return nil
}

func (f *fakeStore) GetStockByID(_ context.Context, id int64) (*models.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pair, ok := f.stockIDs[id]
	if !ok {
		return nil, store.ErrNoRows
	}
	return &models.Stock{ID: id, ProductID: pair[0], WarehouseID: pair[1], Quantity: f.stocks[pair]}, nil
}

func (f *fakeStore) SetStockQuantity(_ context.Context, id int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pair, ok := f.stockIDs[id]
	if !ok {
		return store.ErrNoRows
	}
	f.stocks[pair] = quantity
	return nil
}

func (f *fakeStore) DeleteStock(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pair, ok := f.stockIDs[id]
	if !ok {
		return store.ErrNoRows
	}
	delete(f.stocks, pair)
	delete(f.stockIDs, id)
	return nil
}

func newTestStockService(f *fakeStore) *StockService {
	return NewStockService(f, f, nil, nil)
}

func TestAddStockRejectsMissingReferences(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestStockService(f)

	_, err := svc.AddStock(context.Background(), &AddStockRequest{ProductID: 99, WarehouseID: 1, Quantity: 5})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.AddStock(context.Background(), &AddStockRequest{ProductID: 1, WarehouseID: 99, Quantity: 5})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestAddStockEnforcesPairUniqueness(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestStockService(f)

	// seedCatalog already created the (1, 1) counter.
	_, err := svc.AddStock(context.Background(), &AddStockRequest{ProductID: 1, WarehouseID: 1, Quantity: 5})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestAddStockCreatesRecord(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	f.products[2] = &models.Product{ID: 2, Name: "Gadget", SKU: "G-1", Price: 20}
	svc := newTestStockService(f)

	stock, err := svc.AddStock(context.Background(), &AddStockRequest{ProductID: 2, WarehouseID: 1, Quantity: 7})
	require.NoError(t, err)
	assert.NotZero(t, stock.ID)
	assert.Equal(t, 7, f.quantity(2, 1))
}

func TestGetStockResolvesReferences(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestStockService(f)

	detail, err := svc.GetStock(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, detail.Quantity)
	require.NotNil(t, detail.Product)
	assert.Equal(t, "Widget", detail.Product.Name)
	require.NotNil(t, detail.Warehouse)
	assert.Equal(t, "Main", detail.Warehouse.Name)

	_, err = svc.GetStock(context.Background(), 1, 99)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUpdateStockOverwritesQuantity(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	f.products[2] = &models.Product{ID: 2, Name: "Gadget", SKU: "G-1", Price: 20}
	svc := newTestStockService(f)

	created, err := svc.AddStock(context.Background(), &AddStockRequest{ProductID: 2, WarehouseID: 1, Quantity: 3})
	require.NoError(t, err)

	updated, err := svc.UpdateStock(context.Background(), created.ID, &UpdateStockRequest{Quantity: 11})
	require.NoError(t, err)
	assert.Equal(t, 11, updated.Quantity)
	assert.Equal(t, 11, f.quantity(2, 1))

	_, err = svc.UpdateStock(context.Background(), created.ID, &UpdateStockRequest{Quantity: -1})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.UpdateStock(context.Background(), 999, &UpdateStockRequest{Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDeleteStock(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	f.products[2] = &models.Product{ID: 2, Name: "Gadget", SKU: "G-1", Price: 20}
	svc := newTestStockService(f)

	created, err := svc.AddStock(context.Background(), &AddStockRequest{ProductID: 2, WarehouseID: 1, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteStock(context.Background(), created.ID))

	err = svc.DeleteStock(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}
