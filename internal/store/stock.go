package store

import (
	"context"
	"errors"
	"fmt"

	"inventory-service/internal/models"
)

// ErrInsufficientStock is returned by DecrementStock when any line's
// conditional update matches no row, i.e. the counter is missing or below
// the requested amount at commit time.
var ErrInsufficientStock = errors.New("insufficient stock")

// CreateStock creates a new stock record
func (s *Store) CreateStock(ctx context.Context, stock *models.Stock) error {
	query := `
		INSERT INTO stocks (product_id, warehouse_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id, updated_at`

	return s.db.GetContext(ctx, stock, query,
		stock.ProductID, stock.WarehouseID, stock.Quantity)
}

// GetStockByID retrieves a stock record by ID
func (s *Store) GetStockByID(ctx context.Context, id int64) (*models.Stock, error) {
	var stock models.Stock
	err := s.db.GetContext(ctx, &stock, "SELECT * FROM stocks WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// GetStock retrieves the stock record for a (product, warehouse) pair
func (s *Store) GetStock(ctx context.Context, productID, warehouseID int64) (*models.Stock, error) {
	var stock models.Stock
	err := s.db.GetContext(ctx, &stock,
		"SELECT * FROM stocks WHERE product_id = $1 AND warehouse_id = $2",
		productID, warehouseID)
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// SetStockQuantity overwrites a stock record's quantity
func (s *Store) SetStockQuantity(ctx context.Context, id int64, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE stocks SET quantity = $1, updated_at = NOW() WHERE id = $2",
		quantity, id)
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

// DeleteStock deletes a stock record by ID
func (s *Store) DeleteStock(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM stocks WHERE id = $1", id)
	return err
}

// DecrementStock decrements every line's counter in one transaction.
// Each update carries a quantity >= n predicate, so a racing order that
// would overdraw a counter sees zero rows affected and the whole batch
// rolls back with ErrInsufficientStock. All lines commit or none do.
func (s *Store) DecrementStock(ctx context.Context, lines []models.StockLine) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, line := range lines {
		res, err := tx.ExecContext(ctx,
			`UPDATE stocks
			 SET quantity = quantity - $1, updated_at = NOW()
			 WHERE product_id = $2 AND warehouse_id = $3 AND quantity >= $1`,
			line.Quantity, line.ProductID, line.WarehouseID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("product %d in warehouse %d: %w",
				line.ProductID, line.WarehouseID, ErrInsufficientStock)
		}
	}

	return tx.Commit()
}

// IncrementStock restores every line's counter in one transaction.
// Restoration is additive: it adds back exactly the reserved amounts,
// independent of interim changes made elsewhere.
func (s *Store) IncrementStock(ctx context.Context, lines []models.StockLine) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, line := range lines {
		_, err := tx.ExecContext(ctx,
			`UPDATE stocks
			 SET quantity = quantity + $1, updated_at = NOW()
			 WHERE product_id = $2 AND warehouse_id = $3`,
			line.Quantity, line.ProductID, line.WarehouseID)
		if err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	return tx.Commit()
}
