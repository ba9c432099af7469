package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"machine-report-backend/internal/store"
	"machine-report-backend/internal/timeline"
)

// Report is the complete structured usage report for one machine. Rendering
// (PDF, charts) happens downstream; this is the data contract.
type Report struct {
	GFRID          int64                    `json:"gfrid"`
	FromDate       time.Time                `json:"from_date"`
	ToDate         time.Time                `json:"to_date"`
	Summary        timeline.Summary         `json:"summary"`
	StatusRecords  []timeline.Interval      `json:"status_records"`
	GroupDurations []timeline.GroupDuration `json:"movements_by_group"`
	TelemetryKeys  []string                 `json:"telemetry_keys"`
	GeneratedAt    time.Time                `json:"generated_at"`
}

// GetMachineReport handles GET /api/machines/:gfrid/report: the full report
// for one machine over the window, combining the reconciled timeline, the
// usage summary, and the per-group movement breakdown.
func (h *Handler) GetMachineReport(c *gin.Context) {
	gfrid, err := gfridParam(c)
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

	telemetryRows, err := h.store.EventsStartedBetween(c.Request.Context(), gfrid, w)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	events := store.TimelineEvents(rows)
	intervals := timeline.Reconcile(events, w)

	c.JSON(http.StatusOK, Report{
		GFRID:          gfrid,
		FromDate:       w.From,
		ToDate:         w.To,
		Summary:        timeline.Summarize(intervals),
		StatusRecords:  intervals,
		GroupDurations: timeline.GroupDurations(events, w, h.cfg.Report.MovementCodes),
		TelemetryKeys:  telemetryKeys(telemetryRows),
		GeneratedAt:    time.Now().UTC(),
	})
}
