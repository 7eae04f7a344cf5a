package service

import (
	"context"
	"errors"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// StockStore persists stock records alongside the ledger primitives.
type StockStore interface {
	StockLedger
	CreateStock(ctx context.Context, stock *models.Stock) error
	GetStockByID(ctx context.Context, id int64) (*models.Stock, error)
	SetStockQuantity(ctx context.Context, id int64, quantity int) error
	DeleteStock(ctx context.Context, id int64) error
}

// StockService owns admin stock CRUD. The counters it manages are shared
// with the order workflow; every mutation here goes through the store's
// guarded updates so quantity never drops below zero.
type StockService struct {
	store   StockStore
	catalog CatalogReader
	cache   *redisclient.Client
	events  *broker.EventPublisher
	logger  *zap.Logger
}

// NewStockService creates a new stock service. cache and events may be nil.
func NewStockService(store StockStore, catalog CatalogReader, cache *redisclient.Client, events *broker.EventPublisher) *StockService {
	return &StockService{
		store:   store,
		catalog: catalog,
		cache:   cache,
		events:  events,
		logger:  util.GetLogger(),
	}
}

// AddStockRequest represents a request to create a stock record
type AddStockRequest struct {
	ProductID   int64 `json:"product" binding:"required"`
	WarehouseID int64 `json:"warehouse" binding:"required"`
	Quantity    int   `json:"quantity" binding:"required,min=0"`
}

// UpdateStockRequest overwrites a stock record's quantity
type UpdateStockRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// AddStock creates the stock record for a (product, warehouse) pair.
// Exactly zero or one record may exist per pair, so an existing record
// rejects the request.
func (s *StockService) AddStock(ctx context.Context, req *AddStockRequest) (*models.Stock, error) {
	if req.Quantity < 0 {
		return nil, validationError("quantity must not be negative")
	}

	if _, err := s.catalog.GetProductByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, validationError("product %d does not exist", req.ProductID)
		}
		return nil, unavailableError("failed to load product", err)
	}

	warehouses, err := s.catalog.GetWarehousesByIDs(ctx, []int64{req.WarehouseID})
	if err != nil {
		return nil, unavailableError("failed to load warehouse", err)
	}
	if len(warehouses) == 0 {
		return nil, validationError("warehouse %d does not exist", req.WarehouseID)
	}

	existing, err := s.store.GetStock(ctx, req.ProductID, req.WarehouseID)
	if err != nil && !errors.Is(err, store.ErrNoRows) {
		return nil, unavailableError("failed to check stock uniqueness", err)
	}
	if existing != nil {
		return nil, validationError("stock record for product %d in warehouse %d already exists",
			req.ProductID, req.WarehouseID)
	}

	stock := &models.Stock{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
	}
	if err := s.store.CreateStock(ctx, stock); err != nil {
		return nil, unavailableError("failed to create stock record", err)
	}

	s.logger.Info("Stock record created",
		zap.Int64("product_id", stock.ProductID),
		zap.Int64("warehouse_id", stock.WarehouseID),
		zap.Int("quantity", stock.Quantity))

	s.afterMutation(ctx, stock.ProductID, stock.WarehouseID)
	return stock, nil
}

// GetStock retrieves the stock record for a pair with its references
// resolved for display, cache-aside on the counter itself.
func (s *StockService) GetStock(ctx context.Context, productID, warehouseID int64) (*models.StockDetail, error) {
	var stock *models.Stock

	if s.cache != nil {
		var cached models.Stock
		hit, err := s.cache.Get(ctx, redisclient.StockKey(productID, warehouseID), &cached)
		if err != nil {
			s.logger.Warn("Stock cache read failed", zap.Error(err))
		}
		if hit {
			util.CacheHitsTotal.WithLabelValues("stock").Inc()
			stock = &cached
		} else {
			util.CacheMissesTotal.WithLabelValues("stock").Inc()
		}
	}

	if stock == nil {
		loaded, err := s.store.GetStock(ctx, productID, warehouseID)
		if err != nil {
			if errors.Is(err, store.ErrNoRows) {
				return nil, notFoundError("no stock record for product %d in warehouse %d",
					productID, warehouseID)
			}
			return nil, unavailableError("failed to load stock", err)
		}
		stock = loaded

		if s.cache != nil {
			if err := s.cache.Set(ctx, redisclient.StockKey(productID, warehouseID), stock); err != nil {
				s.logger.Warn("Stock cache write failed", zap.Error(err))
			}
		}
	}

	detail := &models.StockDetail{Stock: *stock}

	product, err := s.catalog.GetProductByID(ctx, productID)
	if err == nil {
		detail.Product = product
	}
	warehouses, err := s.catalog.GetWarehousesByIDs(ctx, []int64{warehouseID})
	if err == nil && len(warehouses) > 0 {
		detail.Warehouse = &warehouses[0]
	}

	return detail, nil
}

// UpdateStock overwrites a stock record's quantity
func (s *StockService) UpdateStock(ctx context.Context, id int64, req *UpdateStockRequest) (*models.Stock, error) {
	if req.Quantity < 0 {
		return nil, validationError("quantity must not be negative")
	}

	stock, err := s.store.GetStockByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, notFoundError("stock record %d not found", id)
		}
		return nil, unavailableError("failed to load stock", err)
	}

	if err := s.store.SetStockQuantity(ctx, id, req.Quantity); err != nil {
		return nil, unavailableError("failed to update stock", err)
	}
	stock.Quantity = req.Quantity

	s.afterMutation(ctx, stock.ProductID, stock.WarehouseID)
	return stock, nil
}

// DeleteStock deletes a stock record by ID
func (s *StockService) DeleteStock(ctx context.Context, id int64) error {
	stock, err := s.store.GetStockByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return notFoundError("stock record %d not found", id)
		}
		return unavailableError("failed to load stock", err)
	}

	if err := s.store.DeleteStock(ctx, id); err != nil {
		return unavailableError("failed to delete stock", err)
	}

	s.afterMutation(ctx, stock.ProductID, stock.WarehouseID)
	return nil
}

// afterMutation drops the local cache entry and tells peer instances to
// do the same.
func (s *StockService) afterMutation(ctx context.Context, productID, warehouseID int64) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, redisclient.StockKey(productID, warehouseID)); err != nil {
			s.logger.Warn("Failed to invalidate stock cache", zap.Error(err))
		}
	}

	if s.events != nil {
		event := &models.StockAdjustedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeStockAdjusted),
			ProductID:   productID,
			WarehouseID: warehouseID,
		}
		if err := s.events.PublishStockAdjusted(ctx, event); err != nil {
			s.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
		}
	}
}
