package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-report-backend/internal/store"
	"machine-report-backend/internal/timeline"
)

// GetPriorityUsage handles GET /api/priority-usage: every machine's usage
// over the window, ranked by ON time with percentages relative to the fleet
// total. With bucket_minutes set, each machine carries its bucket series and
// the response includes the fleet-level rollup.
func (h *Handler) GetPriorityUsage(c *gin.Context) {
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

	ids, err := h.store.MachineIDs(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	machines := make([]timeline.MachineEvents, 0, len(ids))
	for _, gfrid := range ids {
		rows, err := h.store.EventsOverlapping(c.Request.Context(), gfrid, w)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		machines = append(machines, timeline.MachineEvents{
			GFRID:  gfrid,
			Events: store.TimelineEvents(rows),
		})
	}

	usages, fleet := timeline.Rank(machines, w, size)

	resp := gin.H{
		"from_date": w.From,
		"to_date":   w.To,
		"machines":  usages,
	}
	if size > 0 {
		resp["fleet_buckets"] = fleet
	}

	c.JSON(http.StatusOK, resp)
}
