package store

import (
	"context"
	"errors"
	"fmt"

	"inventory-service/internal/models"
)

// ErrNotPending is returned by CancelOrder when the conditional status
// update matches no row, i.e. the order was already cancelled or has
// moved past Pending.
var ErrNotPending = errors.New("order is not pending")

// CreateOrder persists an order and its line items in one transaction.
// Either the order and every line land together or nothing does.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) ([]models.OrderItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (order_number, customer_name, customer_email, placed_by, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, order, query,
		order.OrderNumber, order.CustomerName, order.CustomerEmail,
		order.PlacedBy, order.TotalPrice, order.Status); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	saved := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		item.OrderID = order.ID
		if err := tx.GetContext(ctx, &item.ID,
			`INSERT INTO order_items (order_id, product_id, warehouse_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			item.OrderID, item.ProductID, item.WarehouseID, item.Quantity, item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
		saved = append(saved, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return saved, nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrders retrieves all orders, newest first
func (s *Store) GetOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY created_at DESC")
	return orders, err
}

// GetOrdersByEmployee retrieves orders placed by one employee
func (s *Store) GetOrdersByEmployee(ctx context.Context, employeeID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE placed_by = $1 ORDER BY created_at DESC", employeeID)
	return orders, err
}

// GetOrderItems retrieves all line items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// CancelOrder marks a Pending order Cancelled and restores every line's
// counter in one transaction. The status update carries a status='Pending'
// predicate, so of two racing cancels exactly one restores stock; the
// loser sees ErrNotPending with the quantities untouched. A failed
// restore rolls the status change back, so a retry runs the whole step
// again without double-restoring.
func (s *Store) CancelOrder(ctx context.Context, orderID int64, lines []models.StockLine) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.OrderStatusCancelled, orderID, models.OrderStatusPending)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotPending
	}

	for _, line := range lines {
		if _, err := tx.ExecContext(ctx,
			`UPDATE stocks
			 SET quantity = quantity + $1, updated_at = NOW()
			 WHERE product_id = $2 AND warehouse_id = $3`,
			line.Quantity, line.ProductID, line.WarehouseID); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateOrderStatus overwrites an order's status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNoRows
	}
	return nil
}
