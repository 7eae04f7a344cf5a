package api

import (
	"net/http"

	"inventory-service/internal/service"

	"github.com/gin-gonic/gin"
)

// addStock handles creating a stock record
func (h *Handler) addStock(c *gin.Context) {
	var req service.AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	stock, err := h.stockService.AddStock(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Stock added successfully",
		"stock":   stock,
	})
}

// getStock handles retrieving the stock record for a (product, warehouse)
// pair. The :id segment carries the product ID here.
func (h *Handler) getStock(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	warehouseID, ok := pathID(c, "warehouseId")
	if !ok {
		return
	}

	stock, err := h.stockService.GetStock(c.Request.Context(), productID, warehouseID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

// updateStock handles overwriting a stock record's quantity
func (h *Handler) updateStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	stock, err := h.stockService.UpdateStock(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock updated successfully",
		"stock":   stock,
	})
}

// deleteStock handles deleting a stock record
func (h *Handler) deleteStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.stockService.DeleteStock(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock deleted successfully"})
}
