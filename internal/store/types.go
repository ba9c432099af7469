package store

import "time"

// IngestRecord is a single machine event as accepted by the write path,
// after alert-code normalization.
type IngestRecord struct {
	GFRID         int64          `json:"gfrid"`
	Alert         string         `json:"alert"`
	Status        int            `json:"status"`
	StartedAt     time.Time      `json:"start_time"`
	EndedAt       *time.Time     `json:"end_time"`
	AlertNotifyID *int           `json:"alert_notify_id"`
	Telemetry     map[string]any `json:"telemetry"`
}
