package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"training-planner-backend/internal/reservation"
)

// CreateEvent handles POST /api/events.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req reservation.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	respond(c, h.planner.CreateEvent(c.Request.Context(), req, user(c)))
}

// ConfirmEvent handles POST /api/events/:id/confirm.
func (h *Handler) ConfirmEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	respond(c, h.planner.ConfirmEvent(c.Request.Context(), id))
}

// CancelEvent handles DELETE /api/events/:id.
func (h *Handler) CancelEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	respond(c, h.planner.CancelEvent(c.Request.Context(), id))
}

type participantsRequest struct {
	Inscribed *int `json:"inscribed_participants" binding:"required"`
}

// UpdateParticipants handles PUT /api/events/:id/participants.
func (h *Handler) UpdateParticipants(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req participantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "inscribed_participants is required")
		return
	}
	respond(c, h.planner.UpdateParticipants(c.Request.Context(), id, *req.Inscribed))
}

type closeRequest struct {
	Total *int `json:"total_part" binding:"required"`
}

// EndEvent handles POST /api/events/:id/close.
func (h *Handler) EndEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req closeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "total_part is required")
		return
	}
	respond(c, h.planner.EndEvent(c.Request.Context(), id, *req.Total))
}

// ReplaceEventResources handles PUT /api/events/:id/resources.
func (h *Handler) ReplaceEventResources(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req reservation.ReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	respond(c, h.planner.ReplaceEventResources(c.Request.Context(), id, req, user(c)))
}

// GetEvents handles GET /api/events?start&end.
func (h *Handler) GetEvents(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}
	events, err := h.store.EventsInRange(c.Request.Context(), start, end)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetOpenEvents handles GET /api/events/open.
func (h *Handler) GetOpenEvents(c *gin.Context) {
	events, err := h.store.OpenEvents(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetEventResources handles GET /api/events/:id/resources.
func (h *Handler) GetEventResources(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	resources, err := h.store.EventResources(c.Request.Context(), id)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, resources)
}
