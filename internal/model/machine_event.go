package model

import "time"

// MachineEvent is one reported status/alert occurrence for a machine.
// EndedAt stays NULL while the machine has not reported a closing event;
// the write path closes it when a follow-up event for the same
// (gfrid, alert) pair arrives.
type MachineEvent struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	GFRID         int64      `gorm:"column:gfrid;index:idx_machine_events_gfrid_started,priority:1;not null" json:"gfrid"`
	Alert         string     `gorm:"size:20;not null" json:"alert"`
	Status        int        `gorm:"not null" json:"status"`
	StartedAt     time.Time  `gorm:"index:idx_machine_events_gfrid_started,priority:2;not null" json:"start_time"`
	EndedAt       *time.Time `json:"end_time"`
	AlertNotifyID *int       `gorm:"index" json:"alert_notify_id"`
	// Telemetry is an opaque sensor blob; the backend only ever exposes its
	// key set and passes the values through unchanged.
	Telemetry    map[string]any `gorm:"serializer:json" json:"telemetry"`
	LastModified time.Time      `gorm:"autoUpdateTime" json:"last_modified"`
}

// OpenAlert indexes the latest still-open event per (gfrid, alert) pair so
// the write path can close it without scanning history. Maintained
// transactionally by the store on every insert.
type OpenAlert struct {
	GFRID     int64     `gorm:"column:gfrid;primaryKey;autoIncrement:false"`
	Alert     string    `gorm:"primaryKey;size:20"`
	EventID   int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
