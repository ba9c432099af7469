package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"machine-report-backend/internal/store"
	"machine-report-backend/internal/timeline"
)

// movementRecord is one event's clipped contribution to the movement report.
type movementRecord struct {
	Alert           string    `json:"alert"`
	Movement        string    `json:"movement"`
	Status          int       `json:"status"`
	Start           time.Time `json:"start_time"`
	End             time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_sec"`
}

// GetMovementDuration handles GET /api/movement-duration: every event
// touching the window as a labeled movement record, with open-ended events
// treated as running to the window end and all ranges clipped to the window.
func (h *Handler) GetMovementDuration(c *gin.Context) {
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
	records := make([]movementRecord, 0, len(events))
	var totalSeconds float64
	for _, ev := range events {
		end := w.To
		if ev.End != nil && ev.End.Before(end) {
			end = *ev.End
		}
		start := ev.Start
		if start.Before(w.From) {
			start = w.From
		}
		if !start.Before(end) {
			continue
		}

		seconds := end.Sub(start).Seconds()
		totalSeconds += seconds
		records = append(records, movementRecord{
			Alert:           ev.Alert,
			Movement:        timeline.MovementLabel(ev, h.cfg.Report.MovementCodes),
			Status:          ev.Status,
			Start:           start,
			End:             end,
			DurationSeconds: seconds,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"gfrid":          gfrid,
		"from_date":      w.From,
		"to_date":        w.To,
		"movements":      records,
		"total_duration": totalSeconds,
	})
}
