package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-report-backend/internal/store"
	"machine-report-backend/internal/timeline"
)

// GetCumulativeAnalysis handles GET /api/cumulative-analysis: ON/OFF hours
// over the window, the reconciled interval list, and the per-group movement
// duration breakdown.
func (h *Handler) GetCumulativeAnalysis(c *gin.Context) {
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

	rows, err := h.store.EventsOverlapping(c.Request.Context(), gfrid, w)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	events := store.TimelineEvents(rows)
	intervals := timeline.Reconcile(events, w)
	summary := timeline.Summarize(intervals)
	groups := timeline.GroupDurations(events, w, h.cfg.Report.MovementCodes)

	c.JSON(http.StatusOK, gin.H{
		"gfrid":              gfrid,
		"from_date":          w.From,
		"to_date":            w.To,
		"on_time_hr":         roundHours(summary.OnSeconds),
		"off_time_hr":        roundHours(summary.OffSeconds),
		"on_percent":         summary.OnPercent,
		"off_percent":        summary.OffPercent,
		"on_off_records":     intervals,
		"movements_by_group": groups,
	})
}

func roundHours(seconds float64) float64 {
	return math.Round(seconds/3600*100) / 100
}
