package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"inventory-service/internal/models"
	"inventory-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory double for the workflow's collaborators. Its
// DecrementStock mirrors the SQL transaction: validate every line under
// one lock, then apply all or none.
type fakeStore struct {
	mu sync.Mutex

	products   map[int64]*models.Product
	warehouses map[int64]*models.Warehouse
	stocks     map[[2]int64]int
	orders     map[int64]*models.Order
	items      map[int64][]models.OrderItem
	users      map[int64]*models.User

	stockIDs map[int64][2]int64

	nextOrderID     int64
	nextStockID     int64
	nextProductID   int64
	nextWarehouseID int64
	failCreateOrder bool
	failCancelOnce  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:   make(map[int64]*models.Product),
		warehouses: make(map[int64]*models.Warehouse),
		stocks:     make(map[[2]int64]int),
		orders:     make(map[int64]*models.Order),
		items:      make(map[int64][]models.OrderItem),
		users:      make(map[int64]*models.User),
		stockIDs:   make(map[int64][2]int64),
	}
}

func (f *fakeStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, store.ErrNoRows
}

func (f *fakeStore) GetProductsByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetWarehousesByIDs(_ context.Context, ids []int64) ([]models.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Warehouse
	for _, id := range ids {
		if w, ok := f.warehouses[id]; ok {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeStore) GetStock(_ context.Context, productID, warehouseID int64) (*models.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qty, ok := f.stocks[[2]int64{productID, warehouseID}]
	if !ok {
		return nil, store.ErrNoRows
	}
	return &models.Stock{ProductID: productID, WarehouseID: warehouseID, Quantity: qty}, nil
}

func (f *fakeStore) DecrementStock(_ context.Context, lines []models.StockLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range lines {
		key := [2]int64{line.ProductID, line.WarehouseID}
		if f.stocks[key] < line.Quantity {
			return fmt.Errorf("product %d in warehouse %d: %w",
				line.ProductID, line.WarehouseID, store.ErrInsufficientStock)
		}
	}
	for _, line := range lines {
		f.stocks[[2]int64{line.ProductID, line.WarehouseID}] -= line.Quantity
	}
	return nil
}

func (f *fakeStore) IncrementStock(_ context.Context, lines []models.StockLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range lines {
		f.stocks[[2]int64{line.ProductID, line.WarehouseID}] += line.Quantity
	}
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order *models.Order, items []models.OrderItem) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateOrder {
		return nil, errors.New("connection reset")
	}
	f.nextOrderID++
	order.ID = f.nextOrderID
	cp := *order
	f.orders[order.ID] = &cp

	saved := make([]models.OrderItem, 0, len(items))
	for i, item := range items {
		item.ID = int64(i + 1)
		item.OrderID = order.ID
		saved = append(saved, item)
	}
	f.items[order.ID] = saved
	return saved, nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, store.ErrNoRows
}

func (f *fakeStore) GetOrders(_ context.Context) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeStore) GetOrdersByEmployee(_ context.Context, employeeID int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.PlacedBy == employeeID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrderItems(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderItem(nil), f.items[orderID]...), nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return store.ErrNoRows
	}
	o.Status = status
	return nil
}

func (f *fakeStore) CancelOrder(_ context.Context, orderID int64, lines []models.StockLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCancelOnce {
		f.failCancelOnce = false
		return errors.New("connection reset")
	}
	o, ok := f.orders[orderID]
	if !ok {
		return store.ErrNoRows
	}
	if o.Status != models.OrderStatusPending {
		return store.ErrNotPending
	}
	o.Status = models.OrderStatusCancelled
	for _, line := range lines {
		f.stocks[[2]int64{line.ProductID, line.WarehouseID}] += line.Quantity
	}
	return nil
}

func (f *fakeStore) GetUsersByIDs(_ context.Context, ids []int64) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStore) quantity(productID, warehouseID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stocks[[2]int64{productID, warehouseID}]
}

var (
	staff = models.Identity{ID: 7, Role: models.RoleStaff}
	admin = models.Identity{ID: 1, Role: models.RoleAdmin}
)

func newTestService(f *fakeStore) *OrderService {
	return NewOrderService(f, f, f, f, nil, nil)
}

func seedCatalog(f *fakeStore) {
	f.products[1] = &models.Product{ID: 1, Name: "Widget", SKU: "W-1", Price: 10}
	f.warehouses[1] = &models.Warehouse{ID: 1, Name: "Main", Location: "North"}
	f.stocks[[2]int64{1, 1}] = 5
	f.users[staff.ID] = &models.User{ID: staff.ID, Name: "Sam", Role: models.RoleStaff}
}

func placeRequest(qty int) *PlaceOrderRequest {
	return &PlaceOrderRequest{
		CustomerName:  "John Doe",
		CustomerEmail: "john@example.com",
		Items: []OrderLineRequest{
			{ProductID: 1, WarehouseID: 1, Quantity: qty},
		},
	}
}

func TestPlaceOrderComputesTotalAndDecrementsStock(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(3), staff)
	require.NoError(t, err)

	assert.Equal(t, int64(30), order.TotalPrice)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, staff.ID, order.PlacedBy)
	assert.NotEmpty(t, order.OrderNumber)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(10), order.Items[0].UnitPrice)
	assert.Equal(t, 2, f.quantity(1, 1))
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(3), staff)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), placeRequest(5), staff)
	require.Error(t, err)
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, 2, f.quantity(1, 1), "rejected order must not touch stock")
}

func TestPlaceOrderAllOrNothing(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	f.products[2] = &models.Product{ID: 2, Name: "Gadget", SKU: "G-1", Price: 20}
	f.stocks[[2]int64{2, 1}] = 1
	svc := newTestService(f)

	req := &PlaceOrderRequest{
		CustomerName:  "John Doe",
		CustomerEmail: "john@example.com",
		Items: []OrderLineRequest{
			{ProductID: 1, WarehouseID: 1, Quantity: 2},
			{ProductID: 2, WarehouseID: 1, Quantity: 3},
		},
	}

	_, err := svc.PlaceOrder(context.Background(), req, staff)
	require.Error(t, err)
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, 5, f.quantity(1, 1), "no line of a rejected order may be reserved")
	assert.Equal(t, 1, f.quantity(2, 1))
}

func TestPlaceOrderMissingReferences(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	req := placeRequest(1)
	req.Items[0].ProductID = 99
	_, err := svc.PlaceOrder(context.Background(), req, staff)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))

	req = placeRequest(1)
	req.Items[0].WarehouseID = 99
	_, err = svc.PlaceOrder(context.Background(), req, staff)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, 5, f.quantity(1, 1))
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	cases := []*PlaceOrderRequest{
		{CustomerEmail: "j@e.com", Items: []OrderLineRequest{{ProductID: 1, WarehouseID: 1, Quantity: 1}}},
		{CustomerName: "John", Items: []OrderLineRequest{{ProductID: 1, WarehouseID: 1, Quantity: 1}}},
		{CustomerName: "John", CustomerEmail: "j@e.com"},
		{CustomerName: "John", CustomerEmail: "j@e.com", Items: []OrderLineRequest{{ProductID: 1, WarehouseID: 1, Quantity: 0}}},
	}

	for _, req := range cases {
		_, err := svc.PlaceOrder(context.Background(), req, staff)
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	}
	assert.Equal(t, 5, f.quantity(1, 1))
}

func TestPlaceOrderPersistFailureRollsBackStock(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	f.failCreateOrder = true
	svc := newTestService(f)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(3), staff)
	require.Error(t, err)
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.Equal(t, 5, f.quantity(1, 1), "reservation must be compensated when persistence fails")
}

func TestConcurrentPlacementNeverOverdraws(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PlaceOrder(context.Background(), placeRequest(3), staff)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, KindInsufficientStock, KindOf(err))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of two racing orders for 3 of 5 may win")
	assert.Equal(t, 2, f.quantity(1, 1))
	assert.GreaterOrEqual(t, f.quantity(1, 1), 0)
}

func TestCancelOrderRestoresStockAdditively(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(3), staff)
	require.NoError(t, err)
	require.Equal(t, 2, f.quantity(1, 1))

	// Independent restock during the order's lifetime.
	f.stocks[[2]int64{1, 1}] += 4

	require.NoError(t, svc.CancelOrder(context.Background(), order.ID, staff))

	assert.Equal(t, 9, f.quantity(1, 1), "restoration adds back exactly the reserved amount")

	cancelled, err := f.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
}

func TestCancelOrderScenario(t *testing.T) {
	// Product price 10, stock 5: place 3 (total 30, stock 2), place 5
	// fails, cancel first restores 5.
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	first, err := svc.PlaceOrder(context.Background(), placeRequest(3), staff)
	require.NoError(t, err)
	assert.Equal(t, int64(30), first.TotalPrice)
	assert.Equal(t, 2, f.quantity(1, 1))

	_, err = svc.PlaceOrder(context.Background(), placeRequest(5), staff)
	require.Error(t, err)
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, 2, f.quantity(1, 1))

	require.NoError(t, svc.CancelOrder(context.Background(), first.ID, staff))
	assert.Equal(t, 5, f.quantity(1, 1))
}

func TestConcurrentCancelRestoresOnce(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(3), staff)
	require.NoError(t, err)
	require.Equal(t, 2, f.quantity(1, 1))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.CancelOrder(context.Background(), order.ID, staff)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, KindInvalidState, KindOf(err))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of two racing cancels may win")
	assert.Equal(t, 5, f.quantity(1, 1), "stock must be restored exactly once")
}

func TestCancelRetryAfterFailureRestoresOnce(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(3), staff)
	require.NoError(t, err)

	f.failCancelOnce = true
	err = svc.CancelOrder(context.Background(), order.ID, staff)
	require.Error(t, err)
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.Equal(t, 2, f.quantity(1, 1), "a failed cancellation must not restore stock")

	stored, err := f.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status, "a failed cancellation must leave the order pending")

	require.NoError(t, svc.CancelOrder(context.Background(), order.ID, staff))
	assert.Equal(t, 5, f.quantity(1, 1), "the retry restores exactly the reserved amount")

	err = svc.CancelOrder(context.Background(), order.ID, staff)
	require.Error(t, err)
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Equal(t, 5, f.quantity(1, 1), "a repeated cancel after success must not restore again")
}

func TestCancelOrderForbiddenForOtherEmployee(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(3), staff)
	require.NoError(t, err)

	other := models.Identity{ID: 42, Role: models.RoleStaff}
	err = svc.CancelOrder(context.Background(), order.ID, other)
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, 2, f.quantity(1, 1))
}

func TestCancelNonPendingOrder(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(3), staff)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusShipped, admin)
	require.NoError(t, err)

	err = svc.CancelOrder(context.Background(), order.ID, staff)
	require.Error(t, err)
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Equal(t, 2, f.quantity(1, 1), "failed cancellation must not touch stock")
}

func TestCancelOrderNotFound(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	err := svc.CancelOrder(context.Background(), 999, staff)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUpdateStatusRequiresAdmin(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(1), staff)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusShipped, staff)
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))

	stored, err := f.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status, "rejected update must leave status unchanged")
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(1), staff)
	require.NoError(t, err)

	// Empty status is a no-op.
	same, err := svc.UpdateStatus(context.Background(), order.ID, "", admin)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, same.Status)

	_, err = svc.UpdateStatus(context.Background(), order.ID, "Teleported", admin)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusCancelled, admin)
	require.Error(t, err)
	assert.Equal(t, KindInvalidState, KindOf(err))

	updated, err := svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusDelivered, admin)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, updated.Status)

	// Delivered is terminal.
	_, err = svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusProcessing, admin)
	require.Error(t, err)
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestUpdateStatusNotFound(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	_, err := svc.UpdateStatus(context.Background(), 999, models.OrderStatusShipped, admin)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestListOrdersResolvesEmployee(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(1), staff)
	require.NoError(t, err)

	_, err = svc.ListOrders(context.Background(), staff)
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))

	orders, err := svc.ListOrders(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Sam", orders[0].EmployeeName)
}

func TestListOrdersByEmployeeResolvesLines(t *testing.T) {
	f := newFakeStore()
	seedCatalog(f)
	svc := newTestService(f)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(2), staff)
	require.NoError(t, err)

	orders, err := svc.ListOrdersByEmployee(context.Background(), staff)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "Widget", orders[0].Items[0].ProductName)
	assert.Equal(t, "Main", orders[0].Items[0].WarehouseName)

	// Another employee sees nothing.
	other := models.Identity{ID: 42, Role: models.RoleStaff}
	empty, err := svc.ListOrdersByEmployee(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
