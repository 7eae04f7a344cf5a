package worker

import (
	"context"
	"log"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// CacheWorker consumes inventory events and drops the cache entries they
// invalidate, so instances that did not serve the write stop returning
// stale catalog/stock reads. Events are deduplicated through the
// processed_events table.
type CacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	cache        *redisclient.Client
	logger       *zap.Logger
}

// NewCacheWorker creates a new cache invalidation worker
func NewCacheWorker(consumer *broker.Consumer, st *store.Store, cache *redisclient.Client) *CacheWorker {
	w := &CacheWorker{
		consumer: consumer,
		store:    st,
		cache:    cache,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	eventHandler.OnOrderCancelled(w.handleOrderCancelled)
	eventHandler.OnStockAdjusted(w.handleStockAdjusted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CacheWorker) Start(ctx context.Context) error {
	log.Println("Starting cache invalidation worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CacheWorker) Stop() error {
	log.Println("Stopping cache invalidation worker...")
	return w.consumer.Close()
}

func (w *CacheWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return w.processOnce(ctx, event.EventID, event.EventType, func() error {
		return w.invalidateLines(ctx, event.Items)
	})
}

func (w *CacheWorker) handleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	return w.processOnce(ctx, event.EventID, event.EventType, func() error {
		return w.invalidateLines(ctx, event.Items)
	})
}

func (w *CacheWorker) handleStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	return w.processOnce(ctx, event.EventID, event.EventType, func() error {
		return w.cache.Invalidate(ctx, redisclient.StockKey(event.ProductID, event.WarehouseID))
	})
}

func (w *CacheWorker) invalidateLines(ctx context.Context, items []models.OrderLineData) error {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, redisclient.StockKey(item.ProductID, item.WarehouseID))
	}
	return w.cache.Invalidate(ctx, keys...)
}

func (w *CacheWorker) processOnce(ctx context.Context, eventID, eventType string, fn func() error) error {
	processed, err := w.store.IsEventProcessed(ctx, eventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	if err := fn(); err != nil {
		w.logger.Error("Failed to process event",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(err))
		return err
	}

	return w.store.MarkEventProcessed(ctx, eventID, eventType)
}
