package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"training-planner-backend/internal/parse"
	"training-planner-backend/internal/report"
)

// GetKPI handles GET /api/kpi.
func (h *Handler) GetKPI(c *gin.Context) {
	kpi, err := h.store.KPI(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, kpi)
}

// GetDeadlineWarnings handles GET /api/warnings/deadlines.
func (h *Handler) GetDeadlineWarnings(c *gin.Context) {
	warnings, err := h.store.DeadlineWarnings(c.Request.Context(), h.today(), h.warningDays)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, warnings)
}

// GetParticipantWarnings handles GET /api/warnings/participants.
func (h *Handler) GetParticipantWarnings(c *gin.Context) {
	warnings, err := h.store.ParticipantWarnings(c.Request.Context(), h.today(), h.trainingTypes)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, warnings)
}

// GetSchedule handles GET /api/schedule?start&end.
func (h *Handler) GetSchedule(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}
	entries, err := h.store.Schedule(c.Request.Context(), start, end)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetStatusTable handles GET /api/status-table?start&end.
func (h *Handler) GetStatusTable(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}
	rows, err := h.store.StatusTable(c.Request.Context(), start, end)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type holidayRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Holiday   string `json:"holiday" binding:"required,max=256"`
}

// AddHoliday handles POST /api/holidays.
func (h *Handler) AddHoliday(c *gin.Context) {
	var req holidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "start_date, end_date and holiday are required")
		return
	}
	start, end, err := parse.Range(req.StartDate, req.EndDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	holiday, err := h.store.AddHoliday(c.Request.Context(), start, end, req.Holiday)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, holiday)
}

// GetHolidays handles GET /api/holidays?start&end.
func (h *Handler) GetHolidays(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}
	holidays, err := h.store.Holidays(c.Request.Context(), start, end)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, holidays)
}

// GetTrainings handles GET /api/trainings.
func (h *Handler) GetTrainings(c *gin.Context) {
	trainings, err := h.store.Trainings(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, trainings)
}

// GetUser handles GET /api/users/:code.
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.store.UserByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "user not found"})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GetEventsReport handles GET /api/reports/events?start&end&format.
func (h *Handler) GetEventsReport(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}
	events, err := h.store.EventsInRange(c.Request.Context(), start, end)
	if err != nil {
		serverError(c, err)
		return
	}
	data, filename, contentType, err := report.Export(c.DefaultQuery("format", report.FormatCSV), events, h.now())
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
