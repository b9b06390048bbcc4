package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetMessages handles GET /api/messages?type&status.
func (h *Handler) GetMessages(c *gin.Context) {
	messages, total, err := h.messages.List(c.Request.Context(), c.Query("type"), c.Query("status"))
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": total})
}

// MarkMessageRead handles PUT /api/messages/:id/read.
func (h *Handler) MarkMessageRead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.messages.MarkRead(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "message not found"})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
