package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"training-planner-backend/internal/catalog"
	"training-planner-backend/internal/ledger"
	"training-planner-backend/internal/messagelog"
	"training-planner-backend/internal/parse"
	"training-planner-backend/internal/reservation"
	"training-planner-backend/internal/store"
)

// UserHeader names the operator issuing a command.
const UserHeader = "X-User-Code"

// Deps are the collaborators of a Handler.
type Deps struct {
	Store       store.Store
	Planner     *reservation.Coordinator
	Catalog     *catalog.Catalog
	Ledger      *ledger.Ledger
	Messages    *messagelog.Log
	WebPush     *webpush.Options
	WarningDays int
	// TrainingTypes are the event types listed in participant warnings.
	TrainingTypes []string
	Location      *time.Location
	Now           func() time.Time
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store         store.Store
	planner       *reservation.Coordinator
	catalog       *catalog.Catalog
	ledger        *ledger.Ledger
	messages      *messagelog.Log
	webpush       *webpush.Options
	warningDays   int
	trainingTypes []string
	loc           *time.Location
	now           func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &Handler{
		store:         d.Store,
		planner:       d.Planner,
		catalog:       d.Catalog,
		ledger:        d.Ledger,
		messages:      d.Messages,
		webpush:       d.WebPush,
		warningDays:   d.WarningDays,
		trainingTypes: d.TrainingTypes,
		loc:           d.Location,
		now:           d.Now,
	}
}

func (h *Handler) today() time.Time {
	return parse.Today(h.now(), h.loc)
}

func user(c *gin.Context) string {
	if u := c.GetHeader(UserHeader); u != "" {
		return u
	}
	return "system"
}

// respond writes a command result with the status matching its code.
func respond(c *gin.Context, res reservation.Result) {
	status := http.StatusOK
	switch res.Code {
	case reservation.CodeNotFound:
		status = http.StatusNotFound
	case reservation.CodeConflict:
		status = http.StatusConflict
	case reservation.CodePrecondition:
		status = http.StatusUnprocessableEntity
	case reservation.CodeUnexpected:
		status = http.StatusInternalServerError
	}
	c.JSON(status, res)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
}

func serverError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "An unexpected error occurred. Please try again.",
	})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// dateRange reads the start and end query parameters.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, end, err := parse.Range(c.Query("start"), c.Query("end"))
	if err != nil {
		badRequest(c, err.Error())
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func isUnknownCategory(err error) bool {
	return errors.Is(err, catalog.ErrUnknownKind) || errors.Is(err, catalog.ErrUnknownCategory)
}
