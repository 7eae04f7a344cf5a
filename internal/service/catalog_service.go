package service

import (
	"context"
	"errors"

	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// CatalogStore persists products and warehouses.
type CatalogStore interface {
	CatalogReader
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) error
	GetWarehouseByID(ctx context.Context, id int64) (*models.Warehouse, error)
	GetWarehouseByNameLocation(ctx context.Context, name, location string) (*models.Warehouse, error)
	GetWarehouses(ctx context.Context) ([]models.Warehouse, error)
	UpdateWarehouse(ctx context.Context, warehouse *models.Warehouse) error
	DeleteWarehouse(ctx context.Context, id int64) error
}

// CatalogService owns product and warehouse CRUD. Reads go through the
// cache when one is configured.
type CatalogService struct {
	store  CatalogStore
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(store CatalogStore, cache *redisclient.Client) *CatalogService {
	return &CatalogService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SKU         string `json:"sku" binding:"required"`
	Price       int64  `json:"price" binding:"required,min=1"`
}

// UpdateProductRequest carries partial product updates; empty fields keep
// their previous values.
type UpdateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SKU         string `json:"sku"`
	Price       int64  `json:"price"`
}

// CreateProduct creates a product with a unique SKU
func (s *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if req.Name == "" || req.SKU == "" || req.Price <= 0 {
		return nil, validationError("name, sku and a positive price are required")
	}

	existing, err := s.store.GetProductBySKU(ctx, req.SKU)
	if err != nil && !errors.Is(err, store.ErrNoRows) {
		return nil, unavailableError("failed to check sku uniqueness", err)
	}
	if existing != nil {
		return nil, validationError("product with sku %q already exists", req.SKU)
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		SKU:         req.SKU,
		Price:       req.Price,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, unavailableError("failed to create product", err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("sku", product.SKU))
	return product, nil
}

// GetProduct retrieves a product by ID, cache-aside
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if s.cache != nil {
		var cached models.Product
		hit, err := s.cache.Get(ctx, redisclient.ProductKey(id), &cached)
		if err != nil {
			s.logger.Warn("Product cache read failed", zap.Error(err))
		}
		if hit {
			util.CacheHitsTotal.WithLabelValues("product").Inc()
			return &cached, nil
		}
		util.CacheMissesTotal.WithLabelValues("product").Inc()
	}

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, notFoundError("product %d not found", id)
		}
		return nil, unavailableError("failed to load product", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, redisclient.ProductKey(id), product); err != nil {
			s.logger.Warn("Product cache write failed", zap.Error(err))
		}
	}
	return product, nil
}

// ListProducts retrieves all products
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return nil, unavailableError("failed to list products", err)
	}
	return products, nil
}

// UpdateProduct applies a partial update to a product
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *UpdateProductRequest) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, notFoundError("product %d not found", id)
		}
		return nil, unavailableError("failed to load product", err)
	}

	if req.SKU != "" && req.SKU != product.SKU {
		existing, err := s.store.GetProductBySKU(ctx, req.SKU)
		if err != nil && !errors.Is(err, store.ErrNoRows) {
			return nil, unavailableError("failed to check sku uniqueness", err)
		}
		if existing != nil {
			return nil, validationError("product with sku %q already exists", req.SKU)
		}
		product.SKU = req.SKU
	}
	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Category != "" {
		product.Category = req.Category
	}
	if req.Price > 0 {
		product.Price = req.Price
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, unavailableError("failed to update product", err)
	}

	s.invalidate(ctx, redisclient.ProductKey(id))
	return product, nil
}

// DeleteProduct deletes a product by ID
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.store.GetProductByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return notFoundError("product %d not found", id)
		}
		return unavailableError("failed to load product", err)
	}

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return unavailableError("failed to delete product", err)
	}
	s.invalidate(ctx, redisclient.ProductKey(id))
	return nil
}

// CreateWarehouseRequest represents a request to create a warehouse
type CreateWarehouseRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location" binding:"required"`
}

// UpdateWarehouseRequest carries partial warehouse updates
type UpdateWarehouseRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// CreateWarehouse creates a warehouse, rejecting a duplicate name+location
// pair at create time.
func (s *CatalogService) CreateWarehouse(ctx context.Context, req *CreateWarehouseRequest) (*models.Warehouse, error) {
	if req.Name == "" || req.Location == "" {
		return nil, validationError("name and location are required")
	}

	existing, err := s.store.GetWarehouseByNameLocation(ctx, req.Name, req.Location)
	if err != nil && !errors.Is(err, store.ErrNoRows) {
		return nil, unavailableError("failed to check warehouse uniqueness", err)
	}
	if existing != nil {
		return nil, validationError("warehouse %q at %q already exists", req.Name, req.Location)
	}

	warehouse := &models.Warehouse{Name: req.Name, Location: req.Location}
	if err := s.store.CreateWarehouse(ctx, warehouse); err != nil {
		return nil, unavailableError("failed to create warehouse", err)
	}

	s.logger.Info("Warehouse created", zap.Int64("warehouse_id", warehouse.ID))
	return warehouse, nil
}

// GetWarehouse retrieves a warehouse by ID, cache-aside
func (s *CatalogService) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	if s.cache != nil {
		var cached models.Warehouse
		hit, err := s.cache.Get(ctx, redisclient.WarehouseKey(id), &cached)
		if err != nil {
			s.logger.Warn("Warehouse cache read failed", zap.Error(err))
		}
		if hit {
			util.CacheHitsTotal.WithLabelValues("warehouse").Inc()
			return &cached, nil
		}
		util.CacheMissesTotal.WithLabelValues("warehouse").Inc()
	}

	warehouse, err := s.store.GetWarehouseByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, notFoundError("warehouse %d not found", id)
		}
		return nil, unavailableError("failed to load warehouse", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, redisclient.WarehouseKey(id), warehouse); err != nil {
			s.logger.Warn("Warehouse cache write failed", zap.Error(err))
		}
	}
	return warehouse, nil
}

// ListWarehouses retrieves all warehouses
func (s *CatalogService) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	warehouses, err := s.store.GetWarehouses(ctx)
	if err != nil {
		return nil, unavailableError("failed to list warehouses", err)
	}
	return warehouses, nil
}

// UpdateWarehouse applies a partial update to a warehouse
func (s *CatalogService) UpdateWarehouse(ctx context.Context, id int64, req *UpdateWarehouseRequest) (*models.Warehouse, error) {
	warehouse, err := s.store.GetWarehouseByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, notFoundError("warehouse %d not found", id)
		}
		return nil, unavailableError("failed to load warehouse", err)
	}

	if req.Name != "" {
		warehouse.Name = req.Name
	}
	if req.Location != "" {
		warehouse.Location = req.Location
	}

	if err := s.store.UpdateWarehouse(ctx, warehouse); err != nil {
		return nil, unavailableError("failed to update warehouse", err)
	}

	s.invalidate(ctx, redisclient.WarehouseKey(id))
	return warehouse, nil
}

// DeleteWarehouse deletes a warehouse by ID
func (s *CatalogService) DeleteWarehouse(ctx context.Context, id int64) error {
	if _, err := s.store.GetWarehouseByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return notFoundError("warehouse %d not found", id)
		}
		return unavailableError("failed to load warehouse", err)
	}

	if err := s.store.DeleteWarehouse(ctx, id); err != nil {
		return unavailableError("failed to delete warehouse", err)
	}
	s.invalidate(ctx, redisclient.WarehouseKey(id))
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("Cache invalidation failed", zap.Error(err))
	}
}
