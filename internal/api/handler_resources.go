package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"training-planner-backend/internal/parse"
	"training-planner-backend/internal/reservation"
)

// CreateResource handles POST /api/catalog/:category.
func (h *Handler) CreateResource(c *gin.Context) {
	var attrs map[string]any
	if err := c.ShouldBindJSON(&attrs); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	respond(c, h.planner.CreateResource(c.Request.Context(), c.Param("category"), attrs))
}

// UpdateResource handles PUT /api/resources/:id/status.
func (h *Handler) UpdateResource(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req reservation.ResourceUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.ResourceID = id
	respond(c, h.planner.UpdateResource(c.Request.Context(), req, user(c)))
}

// DisableResource handles POST /api/resources/:id/disable.
func (h *Handler) DisableResource(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	respond(c, h.planner.DisableResource(c.Request.Context(), id))
}

// GetActiveResources handles GET /api/catalog/:category/active.
func (h *Handler) GetActiveResources(c *gin.Context) {
	rows, err := h.catalog.ListActive(c.Request.Context(), c.Param("category"))
	if err != nil {
		if isUnknownCategory(err) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetCatalog handles GET /api/catalog/:category?date=.
func (h *Handler) GetCatalog(c *gin.Context) {
	asOf, err := parse.OptionalDate(c.Query("date"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	rows, err := h.catalog.ListWithStatus(c.Request.Context(), c.Param("category"), asOf)
	if err != nil {
		if isUnknownCategory(err) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetResources handles GET /api/resources?category_id=.
func (h *Handler) GetResources(c *gin.Context) {
	raw := c.Query("category_id")
	if raw == "" {
		categories, err := h.catalog.Categories(c.Request.Context())
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, categories)
		return
	}
	categoryID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(c, "Invalid category_id")
		return
	}
	resources, err := h.catalog.ByCategory(c.Request.Context(), categoryID)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, resources)
}

// GetReservedResources handles GET /api/resources/reserved?start&end.
func (h *Handler) GetReservedResources(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}
	ids, err := h.ledger.ReservedResourceIDs(c.Request.Context(), start, end)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource_ids": ids})
}
