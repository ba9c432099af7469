package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"machine-report-backend/internal/timeline"
)

// fallbackTimeLayout accepts the plain local-time format machine dashboards
// have historically sent alongside RFC3339.
const fallbackTimeLayout = "2006-01-02 15:04:05"

// location resolves the configured reporting timezone, falling back to UTC if
// the config names an unknown zone.
func (h *Handler) location() *time.Location {
	loc, err := time.LoadLocation(h.cfg.Report.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseTime accepts RFC3339 or the fallback layout in the reporting timezone.
func (h *Handler) parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(fallbackTimeLayout, value, h.location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q, use RFC3339 or %q", value, fallbackTimeLayout)
	}
	return t, nil
}

// queryWindow builds the query window from from_date/to_date parameters.
// Omitted bounds default to the configured trailing window ending now, and a
// degenerate window is widened before use.
func (h *Handler) queryWindow(c *gin.Context) (timeline.Window, error) {
	now := time.Now().In(h.location())
	w := timeline.DefaultWindow(now, h.cfg.Report.DefaultWindow)

	if v := c.Query("from_date"); v != "" {
		t, err := h.parseTime(v)
		if err != nil {
			return timeline.Window{}, err
		}
		w.From = t
	}
	if v := c.Query("to_date"); v != "" {
		t, err := h.parseTime(v)
		if err != nil {
			return timeline.Window{}, err
		}
		w.To = t
	}

	return w.Normalize(), nil
}

// gfridQuery reads the mandatory gfrid query parameter.
func gfridQuery(c *gin.Context) (int64, error) {
	raw := c.Query("gfrid")
	if raw == "" {
		return 0, fmt.Errorf("gfrid is required")
	}
	gfrid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gfrid %q", raw)
	}
	return gfrid, nil
}

// gfridParam reads the gfrid path parameter.
func gfridParam(c *gin.Context) (int64, error) {
	gfrid, err := strconv.ParseInt(c.Param("gfrid"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gfrid %q", c.Param("gfrid"))
	}
	return gfrid, nil
}

// bucketSize reads the optional bucket_minutes parameter. Zero means no
// bucket series was requested.
func bucketSize(c *gin.Context) (time.Duration, error) {
	raw := c.Query("bucket_minutes")
	if raw == "" {
		return 0, nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("invalid bucket_minutes %q", raw)
	}
	return time.Duration(minutes) * time.Minute, nil
}
