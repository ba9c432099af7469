package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"machine-report-backend/config"
	"machine-report-backend/internal/notification"
	"machine-report-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	webpush *webpush.Options
	cfg     *config.Config
	pool    *notification.WorkerPool
}

// NewHandler creates a new API handler. The worker pool may be nil when push
// notifications are not configured.
func NewHandler(s store.Store, webpushOptions *webpush.Options, cfg *config.Config, pool *notification.WorkerPool) *Handler {
	return &Handler{
		store:   s,
		webpush: webpushOptions,
		cfg:     cfg,
		pool:    pool,
	}
}
