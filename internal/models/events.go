package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeOrderCancelled     = "ORDER_CANCELLED"
	EventTypeStockAdjusted      = "STOCK_ADJUSTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderLineData represents line data in events
type OrderLineData struct {
	ProductID   int64 `json:"product_id"`
	WarehouseID int64 `json:"warehouse_id"`
	Quantity    int   `json:"quantity"`
	UnitPrice   int64 `json:"unit_price"`
}

// OrderPlacedEvent published after stock is reserved and the order persisted
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	PlacedBy    int64           `json:"placed_by"`
	TotalPrice  int64           `json:"total_price"`
	Items       []OrderLineData `json:"items"`
}

// OrderStatusChangedEvent published on a privileged status overwrite
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ChangedBy int64  `json:"changed_by"`
}

// OrderCancelledEvent published after stock restoration
type OrderCancelledEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	CancelledBy int64           `json:"cancelled_by"`
	Items       []OrderLineData `json:"items"`
}

// StockAdjustedEvent published when admin CRUD or the workflow moves a counter.
// Consumers use it to drop cached stock reads.
type StockAdjustedEvent struct {
	BaseEvent
	ProductID   int64 `json:"product_id"`
	WarehouseID int64 `json:"warehouse_id"`
}
