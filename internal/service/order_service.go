package service

import (
	"context"
	"errors"
	"time"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogReader is the catalog collaborator consumed by the workflow.
type CatalogReader interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	GetWarehousesByIDs(ctx context.Context, ids []int64) ([]models.Warehouse, error)
}

// StockLedger holds the per (product, warehouse) counters. Decrement and
// Increment are all-or-nothing across the given lines.
type StockLedger interface {
	GetStock(ctx context.Context, productID, warehouseID int64) (*models.Stock, error)
	DecrementStock(ctx context.Context, lines []models.StockLine) error
	IncrementStock(ctx context.Context, lines []models.StockLine) error
}

// OrderStore persists orders and their line items.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) ([]models.OrderItem, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrders(ctx context.Context) ([]models.Order, error)
	GetOrdersByEmployee(ctx context.Context, employeeID int64) ([]models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	CancelOrder(ctx context.Context, orderID int64, lines []models.StockLine) error
}

// EmployeeDirectory resolves employee identities for display.
type EmployeeDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error)
}

// OrderService owns the order lifecycle: placement with stock reservation,
// privileged status overwrites, and cancellation with stock restoration.
type OrderService struct {
	catalog CatalogReader
	ledger  StockLedger
	orders  OrderStore
	users   EmployeeDirectory
	cache   *redisclient.Client
	events  *broker.EventPublisher
	logger  *zap.Logger
}

// NewOrderService creates a new order service. cache and events may be nil.
func NewOrderService(
	catalog CatalogReader,
	ledger StockLedger,
	orders OrderStore,
	users EmployeeDirectory,
	cache *redisclient.Client,
	events *broker.EventPublisher,
) *OrderService {
	return &OrderService{
		catalog: catalog,
		ledger:  ledger,
		orders:  orders,
		users:   users,
		cache:   cache,
		events:  events,
		logger:  util.GetLogger(),
	}
}

// PlaceOrderRequest represents a request to place an order
type PlaceOrderRequest struct {
	CustomerName  string             `json:"customerName" binding:"required"`
	CustomerEmail string             `json:"customerEmail" binding:"required,email"`
	Items         []OrderLineRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderLineRequest represents one line in an order request
type OrderLineRequest struct {
	ProductID   int64 `json:"product" binding:"required"`
	WarehouseID int64 `json:"warehouse" binding:"required"`
	Quantity    int   `json:"quantity" binding:"required,min=1"`
}

// PlaceOrder validates every line against the catalog and the stock
// ledger, then reserves stock and persists the order in Pending state.
// Validation touches nothing; the commit phase decrements all lines in one
// atomic transaction, so a racing order can still lose there and the whole
// placement is rejected with no partial reservation.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest, caller models.Identity) (*models.OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if req.CustomerName == "" || req.CustomerEmail == "" {
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, validationError("customer name and email are required")
	}
	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, validationError("at least one item is required")
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
			return nil, validationError("item quantity must be positive")
		}
	}

	// Validate-all phase: resolve every line before mutating anything.
	var totalPrice int64
	items := make([]models.OrderItem, 0, len(req.Items))
	lines := make([]models.StockLine, 0, len(req.Items))

	for _, line := range req.Items {
		product, err := s.catalog.GetProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNoRows) {
				util.OrdersFailedTotal.WithLabelValues("not_found").Inc()
				return nil, notFoundError("product %d not found", line.ProductID)
			}
			return nil, unavailableError("failed to load product", err)
		}

		stock, err := s.ledger.GetStock(ctx, line.ProductID, line.WarehouseID)
		if err != nil {
			if errors.Is(err, store.ErrNoRows) {
				util.OrdersFailedTotal.WithLabelValues("not_found").Inc()
				return nil, notFoundError("no stock record for product %d in warehouse %d",
					line.ProductID, line.WarehouseID)
			}
			return nil, unavailableError("failed to load stock", err)
		}

		if stock.Quantity < line.Quantity {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, insufficientStockError("not enough stock for %s in warehouse %d: have %d, want %d",
				product.Name, line.WarehouseID, stock.Quantity, line.Quantity)
		}

		totalPrice += product.Price * int64(line.Quantity)
		items = append(items, models.OrderItem{
			ProductID:   line.ProductID,
			WarehouseID: line.WarehouseID,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
		})
		lines = append(lines, models.StockLine{
			ProductID:   line.ProductID,
			WarehouseID: line.WarehouseID,
			Quantity:    line.Quantity,
		})
	}

	// Commit phase: conditional decrement of all lines, atomically.
	start := time.Now()
	if err := s.ledger.DecrementStock(ctx, lines); err != nil {
		util.StockReserveLatency.Observe(time.Since(start).Seconds())
		if errors.Is(err, store.ErrInsufficientStock) {
			util.StockReservationsFailed.WithLabelValues("insufficient_stock").Inc()
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, insufficientStockError("stock changed while placing the order")
		}
		util.StockReservationsFailed.WithLabelValues("error").Inc()
		util.OrdersFailedTotal.WithLabelValues("reservation_error").Inc()
		return nil, unavailableError("failed to reserve stock", err)
	}
	util.StockReserveLatency.Observe(time.Since(start).Seconds())

	order := &models.Order{
		OrderNumber:   uuid.New().String(),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		PlacedBy:      caller.ID,
		TotalPrice:    totalPrice,
		Status:        models.OrderStatusPending,
	}

	savedItems, err := s.orders.CreateOrder(ctx, order, items)
	if err != nil {
		// Stock is already decremented; roll the reservation back so no
		// partial mutation stays visible.
		if rbErr := s.ledger.IncrementStock(ctx, lines); rbErr != nil {
			s.logger.Error("Failed to roll back stock reservation, reconciliation required",
				zap.String("order_number", order.OrderNumber),
				zap.Error(rbErr))
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, unavailableError("failed to persist order", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("placed_by", caller.ID),
		zap.Int64("total_price", totalPrice))

	s.invalidateStockKeys(ctx, lines)
	s.publishOrderPlaced(ctx, order, savedItems)

	detail := &models.OrderDetail{Order: *order, Items: toItemDetails(savedItems)}
	return detail, nil
}

// UpdateStatus overwrites an order's status. Privileged; Cancelled is
// reserved for CancelOrder since it owns the stock refund, and terminal
// states cannot be left. An empty status is a no-op.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, newStatus string, caller models.Identity) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !caller.IsAdmin() {
		return nil, forbiddenError("admin role required to update order status")
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, notFoundError("order %d not found", orderID)
		}
		return nil, unavailableError("failed to load order", err)
	}

	if newStatus == "" || newStatus == order.Status {
		return order, nil
	}
	if !models.ValidOrderStatus(newStatus) {
		return nil, validationError("unknown order status %q", newStatus)
	}
	if newStatus == models.OrderStatusCancelled {
		return nil, invalidStateError("orders are cancelled through the cancellation endpoint")
	}
	if models.TerminalOrderStatus(order.Status) {
		return nil, invalidStateError("order %d is %s and cannot change status", orderID, order.Status)
	}

	if err := s.orders.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
		return nil, unavailableError("failed to update order status", err)
	}

	util.OrderStatusUpdatesTotal.WithLabelValues(newStatus).Inc()
	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("old_status", order.Status),
		zap.String("new_status", newStatus))

	s.publishStatusChanged(ctx, order, newStatus, caller)

	order.Status = newStatus
	return order, nil
}

// CancelOrder cancels a Pending order placed by the caller, restoring
// every line's reserved quantity additively. The soft-cancel and the
// restoration commit in one transaction guarded by a status=Pending
// predicate, so concurrent cancels and retries restore at most once. The
// record survives for audit.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64, caller models.Identity) error {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return notFoundError("order %d not found", orderID)
		}
		return unavailableError("failed to load order", err)
	}

	if order.PlacedBy != caller.ID {
		return forbiddenError("only the employee who placed order %d may cancel it", orderID)
	}
	if order.Status != models.OrderStatusPending {
		return invalidStateError("only pending orders can be cancelled, order %d is %s",
			orderID, order.Status)
	}

	items, err := s.orders.GetOrderItems(ctx, orderID)
	if err != nil {
		return unavailableError("failed to load order items", err)
	}

	lines := make([]models.StockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.StockLine{
			ProductID:   item.ProductID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
		})
	}

	if err := s.orders.CancelOrder(ctx, orderID, lines); err != nil {
		if errors.Is(err, store.ErrNotPending) {
			return invalidStateError("only pending orders can be cancelled, order %d is no longer pending", orderID)
		}
		return unavailableError("failed to cancel order", err)
	}

	util.OrdersCancelledTotal.Inc()
	util.StockRestoredTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.Int64("cancelled_by", caller.ID))

	s.invalidateStockKeys(ctx, lines)
	s.publishOrderCancelled(ctx, order, items, caller)

	return nil
}

// ListOrders returns every order with the placing employee resolved.
// Privileged.
func (s *OrderService) ListOrders(ctx context.Context, caller models.Identity) ([]models.OrderDetail, error) {
	if !caller.IsAdmin() {
		return nil, forbiddenError("admin role required to list all orders")
	}

	orders, err := s.orders.GetOrders(ctx)
	if err != nil {
		return nil, unavailableError("failed to list orders", err)
	}

	employeeIDs := make([]int64, 0, len(orders))
	seen := make(map[int64]bool)
	for _, order := range orders {
		if !seen[order.PlacedBy] {
			seen[order.PlacedBy] = true
			employeeIDs = append(employeeIDs, order.PlacedBy)
		}
	}

	users, err := s.users.GetUsersByIDs(ctx, employeeIDs)
	if err != nil {
		return nil, unavailableError("failed to resolve employees", err)
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	details := make([]models.OrderDetail, 0, len(orders))
	for _, order := range orders {
		details = append(details, models.OrderDetail{
			Order:        order,
			EmployeeName: names[order.PlacedBy],
		})
	}
	return details, nil
}

// ListOrdersByEmployee returns the caller's orders with product and
// warehouse names resolved per line.
func (s *OrderService) ListOrdersByEmployee(ctx context.Context, caller models.Identity) ([]models.OrderDetail, error) {
	orders, err := s.orders.GetOrdersByEmployee(ctx, caller.ID)
	if err != nil {
		return nil, unavailableError("failed to list orders", err)
	}

	details := make([]models.OrderDetail, 0, len(orders))
	for _, order := range orders {
		items, err := s.orders.GetOrderItems(ctx, order.ID)
		if err != nil {
			return nil, unavailableError("failed to load order items", err)
		}

		resolved, err := s.resolveItems(ctx, items)
		if err != nil {
			return nil, err
		}
		details = append(details, models.OrderDetail{Order: order, Items: resolved})
	}
	return details, nil
}

func (s *OrderService) resolveItems(ctx context.Context, items []models.OrderItem) ([]models.OrderItemDetail, error) {
	productIDs := make([]int64, 0, len(items))
	warehouseIDs := make([]int64, 0, len(items))
	seenP := make(map[int64]bool)
	seenW := make(map[int64]bool)
	for _, item := range items {
		if !seenP[item.ProductID] {
			seenP[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
		if !seenW[item.WarehouseID] {
			seenW[item.WarehouseID] = true
			warehouseIDs = append(warehouseIDs, item.WarehouseID)
		}
	}

	products, err := s.catalog.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, unavailableError("failed to resolve products", err)
	}
	warehouses, err := s.catalog.GetWarehousesByIDs(ctx, warehouseIDs)
	if err != nil {
		return nil, unavailableError("failed to resolve warehouses", err)
	}

	productNames := make(map[int64]string, len(products))
	for _, p := range products {
		productNames[p.ID] = p.Name
	}
	warehouseNames := make(map[int64]string, len(warehouses))
	for _, w := range warehouses {
		warehouseNames[w.ID] = w.Name
	}

	resolved := make([]models.OrderItemDetail, 0, len(items))
	for _, item := range items {
		resolved = append(resolved, models.OrderItemDetail{
			OrderItem:     item,
			ProductName:   productNames[item.ProductID],
			WarehouseName: warehouseNames[item.WarehouseID],
		})
	}
	return resolved, nil
}

func (s *OrderService) invalidateStockKeys(ctx context.Context, lines []models.StockLine) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(lines))
	for _, line := range lines {
		keys = append(keys, redisclient.StockKey(line.ProductID, line.WarehouseID))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("Failed to invalidate stock cache", zap.Error(err))
	}
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItem) {
	if s.events == nil {
		return
	}
	event := &models.OrderPlacedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderPlaced),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		PlacedBy:    order.PlacedBy,
		TotalPrice:  order.TotalPrice,
		Items:       toLineData(items),
	}
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

func (s *OrderService) publishStatusChanged(ctx context.Context, order *models.Order, newStatus string, caller models.Identity) {
	if s.events == nil {
		return
	}
	event := &models.OrderStatusChangedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:   order.ID,
		OldStatus: order.Status,
		NewStatus: newStatus,
		ChangedBy: caller.ID,
	}
	if err := s.events.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}
}

func (s *OrderService) publishOrderCancelled(ctx context.Context, order *models.Order, items []models.OrderItem, caller models.Identity) {
	if s.events == nil {
		return
	}
	event := &models.OrderCancelledEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderCancelled),
		OrderID:     order.ID,
		CancelledBy: caller.ID,
		Items:       toLineData(items),
	}
	if err := s.events.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func toLineData(items []models.OrderItem) []models.OrderLineData {
	data := make([]models.OrderLineData, 0, len(items))
	for _, item := range items {
		data = append(data, models.OrderLineData{
			ProductID:   item.ProductID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return data
}

func toItemDetails(items []models.OrderItem) []models.OrderItemDetail {
	details := make([]models.OrderItemDetail, 0, len(items))
	for _, item := range items {
		details = append(details, models.OrderItemDetail{OrderItem: item})
	}
	return details
}
