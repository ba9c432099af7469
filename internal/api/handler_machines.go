package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"machine-report-backend/internal/model"
)

// machineOverview is one row of the fleet overview.
type machineOverview struct {
	GFRID     int64          `json:"gfrid"`
	Status    int            `json:"status"`
	LastAlert string         `json:"last_alert"`
	LastSeen  time.Time      `json:"last_seen"`
	Telemetry map[string]any `json:"telemetry,omitempty"`
}

// GetMachines handles GET /api/machines: every known machine with its latest
// reported event.
func (h *Handler) GetMachines(c *gin.Context) {
	ids, err := h.store.MachineIDs(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	machines := make([]machineOverview, 0, len(ids))
	for _, gfrid := range ids {
		latest, err := h.store.LatestEvent(c.Request.Context(), gfrid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if latest == nil {
			continue
		}
		machines = append(machines, machineOverview{
			GFRID:     gfrid,
			Status:    latest.Status,
			LastAlert: latest.Alert,
			LastSeen:  latest.StartedAt,
			Telemetry: latest.Telemetry,
		})
	}

	c.JSON(http.StatusOK, gin.H{"machines": machines, "count": len(machines)})
}

// GetMachineEvents handles GET /api/machines/:gfrid/events: the raw event
// rows that started inside the window, newest first, plus the union of
// telemetry keys seen across them.
func (h *Handler) GetMachineEvents(c *gin.Context) {
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

	events, err := h.store.EventsStartedBetween(c.Request.Context(), gfrid, w)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gfrid":          gfrid,
		"from_date":      w.From,
		"to_date":        w.To,
		"count":          len(events),
		"events":         events,
		"telemetry_keys": telemetryKeys(events),
	})
}

// telemetryKeys collects the sorted union of telemetry keys across events.
func telemetryKeys(events []model.MachineEvent) []string {
	seen := make(map[string]struct{})
	for _, e := range events {
		for k := range e.Telemetry {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// latestTelemetry returns the telemetry blob of the newest event carrying
// one. Events are expected newest first.
func latestTelemetry(events []model.MachineEvent) map[string]any {
	for _, e := range events {
		if len(e.Telemetry) > 0 {
			return e.Telemetry
		}
	}
	return nil
}
