package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"training-planner-backend/config"
	"training-planner-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Observe())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Every successful command flushes the cache. The sweeper writes messages
	// outside the API, so the routes that read them are never cached.
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl,
		"/api/messages",
		"/api/kpi",
		"/api/warnings/deadlines",
		"/api/warnings/participants",
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter, caching)
	{
		api.POST("/events", handler.CreateEvent)
		api.GET("/events", handler.GetEvents)
		api.GET("/events/open", handler.GetOpenEvents)
		api.DELETE("/events/:id", handler.CancelEvent)
		api.POST("/events/:id/confirm", handler.ConfirmEvent)
		api.POST("/events/:id/close", handler.EndEvent)
		api.PUT("/events/:id/participants", handler.UpdateParticipants)
		api.GET("/events/:id/resources", handler.GetEventResources)
		api.PUT("/events/:id/resources", handler.ReplaceEventResources)

		api.POST("/catalog/:category", handler.CreateResource)
		api.GET("/catalog/:category", handler.GetCatalog)
		api.GET("/catalog/:category/active", handler.GetActiveResources)

		api.GET("/resources", handler.GetResources)
		api.GET("/resources/reserved", handler.GetReservedResources)
		api.PUT("/resources/:id/status", handler.UpdateResource)
		api.POST("/resources/:id/disable", handler.DisableResource)

		api.GET("/kpi", handler.GetKPI)
		api.GET("/warnings/deadlines", handler.GetDeadlineWarnings)
		api.GET("/warnings/participants", handler.GetParticipantWarnings)
		api.GET("/schedule", handler.GetSchedule)
		api.GET("/status-table", handler.GetStatusTable)
		api.GET("/holidays", handler.GetHolidays)
		api.POST("/holidays", handler.AddHoliday)
		api.GET("/trainings", handler.GetTrainings)
		api.GET("/users/:code", handler.GetUser)
		api.GET("/reports/events", handler.GetEventsReport)

		api.GET("/messages", handler.GetMessages)
		api.PUT("/messages/:id/read", handler.MarkMessageRead)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
