package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-report-backend/internal/notification"
	"machine-report-backend/internal/parse"
	"machine-report-backend/internal/store"
	"machine-report-backend/internal/timeline"
)

type ingestEventRequest struct {
	GFRID         *int64         `json:"gfrid" binding:"required"`
	Alert         string         `json:"alert" binding:"required"`
	Status        *int           `json:"status" binding:"required"`
	StartTime     string         `json:"start_time" binding:"required"`
	EndTime       *string        `json:"end_time"`
	AlertNotifyID *int           `json:"alert_notify_id"`
	Telemetry     map[string]any `json:"telemetry"`
}

// PostEvent handles POST /api/events: the push ingest path. The alert code is
// canonicalized, timestamps parsed like query parameters, and a status flip
// hands the machine to the notification pool.
func (h *Handler) PostEvent(c *gin.Context) {
	var req ingestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if *req.Status != timeline.StatusOff && *req.Status != timeline.StatusOn {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status must be 0 or 1"})
		return
	}

	alert, err := parse.NormalizeAlert(req.Alert)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startedAt, err := h.parseTime(req.StartTime)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := store.IngestRecord{
		GFRID:         *req.GFRID,
		Alert:         alert,
		Status:        *req.Status,
		StartedAt:     startedAt,
		AlertNotifyID: req.AlertNotifyID,
		Telemetry:     req.Telemetry,
	}
	if req.EndTime != nil && *req.EndTime != "" {
		endedAt, err := h.parseTime(*req.EndTime)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !endedAt.After(startedAt) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "end_time must be after start_time"})
			return
		}
		rec.EndedAt = &endedAt
	}

	event, statusChanged, err := h.store.InsertEvent(c.Request.Context(), rec)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if statusChanged && h.pool != nil {
		h.pool.Dispatch(notification.StatusChange{
			GFRID:  rec.GFRID,
			Status: rec.Status,
			Alert:  rec.Alert,
		})
	}

	c.JSON(http.StatusCreated, gin.H{"id": event.ID, "status_changed": statusChanged})
}
