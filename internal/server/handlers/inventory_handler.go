package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/repository"
	"github.com/mamadbah2/inventory/internal/service/inventory"
)

// InventoryHandler adapts the inventory store to HTTP.
type InventoryHandler struct {
	store  inventory.Store
	logger *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(store inventory.Store, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{store: store, logger: logger}
}

// FindAll lists every inventory record.
func (h *InventoryHandler) FindAll(c *gin.Context) {
	items, err := h.store.FindAll(c.Request.Context())
	if err != nil {
		h.fail(c, "failed to list inventory", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// FindSorted lists every record ordered by the sortVariable query parameter.
func (h *InventoryHandler) FindSorted(c *gin.Context) {
	field := c.Query("sortVariable")
	direction := c.Query("direction")

	items, err := h.store.FindSorted(c.Request.Context(), field, direction)
	if errors.Is(err, inventory.ErrUnknownField) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.fail(c, "failed to sort inventory", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Filter applies the optional unitOfMeasure, quantity and bestBefore parameters.
func (h *InventoryHandler) Filter(c *gin.Context) {
	var params models.FilterParams

	if raw := c.Query("unitOfMeasure"); raw != "" {
		unit, err := models.ParseUnit(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		params.Unit = &unit
	}

	if raw := c.Query("quantity"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a number"})
			return
		}
		params.Amount = &amount
	}

	if raw := c.Query("bestBefore"); raw != "" {
		bestBefore, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bestBefore must be an RFC 3339 timestamp"})
			return
		}
		params.BestBefore = &bestBefore
	}

	items, err := h.store.Filter(c.Request.Context(), params)
	if err != nil {
		h.fail(c, "failed to filter inventory", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// FilterByTerm applies a single term/operator/value filter.
func (h *InventoryHandler) FilterByTerm(c *gin.Context) {
	items, err := h.store.FilterRetrieve(c.Request.Context(), c.Query("term"), c.Query("operator"), c.Query("value"))
	if errors.Is(err, inventory.ErrInvalidFilter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.fail(c, "failed to filter inventory", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Create stores a new record. Any id in the body is ignored.
func (h *InventoryHandler) Create(c *gin.Context) {
	var record models.Inventory
	if err := c.ShouldBindJSON(&record); err != nil {
		h.logger.Warn("invalid inventory payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := record.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.store.Create(c.Request.Context(), record)
	if err != nil {
		h.fail(c, "failed to create inventory", err)
		return
	}
	c.JSON(http.StatusOK, created)
}

// Update replaces the record whose id is carried in the body, creating it if needed.
func (h *InventoryHandler) Update(c *gin.Context) {
	var record models.Inventory
	if err := c.ShouldBindJSON(&record); err != nil {
		h.logger.Warn("invalid inventory payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if record.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be provided"})
		return
	}
	if err := record.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.store.Update(c.Request.Context(), record.ID, record)
	if err != nil {
		h.fail(c, "failed to update inventory", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Retrieve returns the record for the id query parameter, or null.
func (h *InventoryHandler) Retrieve(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be provided"})
		return
	}

	item, err := h.store.Retrieve(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "failed to retrieve inventory", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete removes every id listed in the JSON array body.
func (h *InventoryHandler) Delete(c *gin.Context) {
	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil {
		h.logger.Warn("invalid delete payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON array of ids"})
		return
	}

	results, err := h.store.Delete(c.Request.Context(), ids)
	if err != nil {
		h.logger.Error("batch delete failed", zap.Error(err), zap.Int("completed", len(results)))
		c.JSON(statusFor(err), gin.H{"error": "delete interrupted", "results": results})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *InventoryHandler) fail(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	c.JSON(statusFor(err), gin.H{"error": msg})
}

func statusFor(err error) int {
	if errors.Is(err, repository.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
