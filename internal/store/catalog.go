package store

import (
	"context"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateProduct creates a new product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, description, category, sku, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, product, query,
		product.Name, product.Description, product.Category, product.SKU, product.Price)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE sku = $1", sku)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// UpdateProduct persists changed product fields
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, category = $3, sku = $4, price = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	return s.db.GetContext(ctx, &product.UpdatedAt, query,
		product.Name, product.Description, product.Category, product.SKU, product.Price, product.ID)
}

// DeleteProduct deletes a product by ID
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	return err
}

// CreateWarehouse creates a new warehouse
func (s *Store) CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) error {
	query := `
		INSERT INTO warehouses (name, location)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, warehouse, query, warehouse.Name, warehouse.Location)
}

// GetWarehouseByID retrieves a warehouse by ID
func (s *Store) GetWarehouseByID(ctx context.Context, id int64) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	err := s.db.GetContext(ctx, &warehouse, "SELECT * FROM warehouses WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &warehouse, nil
}

// GetWarehouseByNameLocation retrieves a warehouse by its name+location pair
func (s *Store) GetWarehouseByNameLocation(ctx context.Context, name, location string) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	err := s.db.GetContext(ctx, &warehouse,
		"SELECT * FROM warehouses WHERE name = $1 AND location = $2", name, location)
	if err != nil {
		return nil, err
	}
	return &warehouse, nil
}

// GetWarehouses retrieves all warehouses
func (s *Store) GetWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	err := s.db.SelectContext(ctx, &warehouses, "SELECT * FROM warehouses ORDER BY id")
	return warehouses, err
}

// GetWarehousesByIDs retrieves multiple warehouses by IDs
func (s *Store) GetWarehousesByIDs(ctx context.Context, ids []int64) ([]models.Warehouse, error) {
	if len(ids) == 0 {
		return []models.Warehouse{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM warehouses WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var warehouses []models.Warehouse
	err = s.db.SelectContext(ctx, &warehouses, query, args...)
	return warehouses, err
}

// UpdateWarehouse persists changed warehouse fields
func (s *Store) UpdateWarehouse(ctx context.Context, warehouse *models.Warehouse) error {
	query := `
		UPDATE warehouses
		SET name = $1, location = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	return s.db.GetContext(ctx, &warehouse.UpdatedAt, query,
		warehouse.Name, warehouse.Location, warehouse.ID)
}

// DeleteWarehouse deletes a warehouse by ID
func (s *Store) DeleteWarehouse(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM warehouses WHERE id = $1", id)
	return err
}
