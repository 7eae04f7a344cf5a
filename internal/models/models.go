package models

import "time"

// User roles
const (
	RoleAdmin            = "admin"
	RoleWarehouseManager = "warehouse-manager"
	RoleStaff            = "staff"
)

// User represents an employee account
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Identity is the authenticated caller attributed to a workflow operation.
// It is resolved once by the auth middleware and passed explicitly into
// every service call.
type Identity struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role marker.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// Product represents a product in the catalog
type Product struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Category    string    `db:"category" json:"category,omitempty"`
	SKU         string    `db:"sku" json:"sku"`
	Price       int64     `db:"price" json:"price"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Warehouse represents a physical storage location
type Warehouse struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Stock is the quantity-on-hand counter for one product in one warehouse.
// At most one record exists per (product, warehouse) pair.
type Stock struct {
	ID          int64     `db:"id" json:"id"`
	ProductID   int64     `db:"product_id" json:"product_id"`
	WarehouseID int64     `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StockLine addresses one ledger counter and an amount to move.
type StockLine struct {
	ProductID   int64 `json:"product_id"`
	WarehouseID int64 `json:"warehouse_id"`
	Quantity    int   `json:"quantity"`
}

// StockDetail is a stock record with its references resolved for display.
type StockDetail struct {
	Stock
	Product   *Product   `json:"product,omitempty"`
	Warehouse *Warehouse `json:"warehouse,omitempty"`
}

// Order statuses
const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// TerminalOrderStatus reports whether no further transitions may leave s.
func TerminalOrderStatus(s string) bool {
	return s == OrderStatusCancelled || s == OrderStatusDelivered
}

// Order represents a customer order placed by an employee
type Order struct {
	ID            int64     `db:"id" json:"id"`
	OrderNumber   string    `db:"order_number" json:"order_number"`
	CustomerName  string    `db:"customer_name" json:"customer_name"`
	CustomerEmail string    `db:"customer_email" json:"customer_email"`
	PlacedBy      int64     `db:"placed_by" json:"placed_by"`
	TotalPrice    int64     `db:"total_price" json:"total_price"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is one (product, warehouse, quantity) line within an order.
// The unit price is captured at placement so later catalog price changes
// do not alter historical orders.
type OrderItem struct {
	ID          int64 `db:"id" json:"id"`
	OrderID     int64 `db:"order_id" json:"order_id"`
	ProductID   int64 `db:"product_id" json:"product_id"`
	WarehouseID int64 `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int   `db:"quantity" json:"quantity"`
	UnitPrice   int64 `db:"unit_price" json:"unit_price"`
}

// OrderItemDetail is an order line with catalog references resolved.
type OrderItemDetail struct {
	OrderItem
	ProductName   string `json:"product_name,omitempty"`
	WarehouseName string `json:"warehouse_name,omitempty"`
}

// OrderDetail is an order with its lines and employee resolved for display.
type OrderDetail struct {
	Order
	EmployeeName string            `json:"employee_name,omitempty"`
	Items        []OrderItemDetail `json:"items"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
