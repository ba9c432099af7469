package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-report-backend/internal/store"
	"machine-report-backend/internal/timeline"
)

// GetMachineStatus handles GET /api/machine-status: the reconciled ON/OFF
// timeline for one machine over the query window, with totals, percentages,
// and the machine's telemetry for the same range. With bucket_minutes set,
// the response also carries a fixed-size ON/OFF series.
func (h *Handler) GetMachineStatus(c *gin.Context) {
	gfrid, err := gfridQuery(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.queryWindow(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	size, err := bucketSize(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.store.EventsOverlapping(c.Request.Context(), gfrid, w)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	events := store.TimelineEvents(rows)
	intervals := timeline.Reconcile(events, w)
	summary := timeline.Summarize(intervals)

	telemetryRows, err := h.store.EventsStartedBetween(c.Request.Context(), gfrid, w)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"gfrid":            gfrid,
		"from_date":        w.From,
		"to_date":          w.To,
		"on_time_sec":      summary.OnSeconds,
		"off_time_sec":     summary.OffSeconds,
		"on_percent":       summary.OnPercent,
		"off_percent":      summary.OffPercent,
		"status_records":   intervals,
		"telemetry_keys":   telemetryKeys(telemetryRows),
		"latest_telemetry": latestTelemetry(telemetryRows),
	}
	if size > 0 {
		resp["buckets"] = timeline.SliceBuckets(events, w, size)
	}

	c.JSON(http.StatusOK, resp)
}
