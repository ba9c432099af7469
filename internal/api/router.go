package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"machine-report-backend/config"
	"machine-report-backend/internal/mw"
	"machine-report-backend/internal/notification"
	"machine-report-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, webpushOptions *webpush.Options, cfg *config.Config, pool *notification.WorkerPool) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	handler := NewHandler(s, webpushOptions, cfg, pool)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Fleet and per-machine views
		api.GET("/machines", caching, handler.GetMachines)
		api.GET("/machines/:gfrid/events", caching, handler.GetMachineEvents)
		api.GET("/machines/:gfrid/report", caching, handler.GetMachineReport)

		// Report queries
		api.GET("/machine-status", caching, handler.GetMachineStatus)
		api.GET("/movement-duration", caching, handler.GetMovementDuration)
		api.GET("/cumulative-analysis", caching, handler.GetCumulativeAnalysis)
		api.GET("/priority-usage", caching, handler.GetPriorityUsage)

		// Ingest path, never cached
		api.POST("/events", handler.PostEvent)

		// Push subscription management
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
