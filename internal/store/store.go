package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"machine-report-backend/internal/model"
	"machine-report-backend/internal/timeline"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB
	InsertEvent(ctx context.Context, rec IngestRecord) (model.MachineEvent, bool, error)
	EventsOverlapping(ctx context.Context, gfrid int64, w timeline.Window) ([]model.MachineEvent, error)
	EventsStartedBetween(ctx context.Context, gfrid int64, w timeline.Window) ([]model.MachineEvent, error)
	MachineIDs(ctx context.Context) ([]int64, error)
	LatestEvent(ctx context.Context, gfrid int64) (*model.MachineEvent, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for components that need raw access.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// InsertEvent persists one event and maintains the open-alert index: any
// previous still-open event for the same (gfrid, alert) pair is closed at the
// new event's start. The second return value reports whether the machine's
// ON/OFF status flipped relative to its latest earlier event, which drives
// notifications.
func (s *gormStore) InsertEvent(ctx context.Context, rec IngestRecord) (model.MachineEvent, bool, error) {
	event := model.MachineEvent{
		GFRID:         rec.GFRID,
		Alert:         rec.Alert,
		Status:        rec.Status,
		StartedAt:     rec.StartedAt,
		EndedAt:       rec.EndedAt,
		AlertNotifyID: rec.AlertNotifyID,
		Telemetry:     rec.Telemetry,
	}

	var statusChanged bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev model.MachineEvent
		err := tx.Where("gfrid = ?", rec.GFRID).
			Order("started_at DESC, id DESC").
			First(&prev).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			statusChanged = true
		case err != nil:
			return fmt.Errorf("failed to load latest event for machine %d: %w", rec.GFRID, err)
		default:
			statusChanged = prev.Status != rec.Status
		}

		if err := s.closeOpenEvent(tx, rec); err != nil {
			return err
		}

		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to insert event for machine %d: %w", rec.GFRID, err)
		}

		if rec.EndedAt == nil {
			index := model.OpenAlert{GFRID: rec.GFRID, Alert: rec.Alert, EventID: event.ID}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "gfrid"}, {Name: "alert"}},
				DoUpdates: clause.AssignmentColumns([]string{"event_id", "updated_at"}),
			}).Create(&index).Error; err != nil {
				return fmt.Errorf("failed to update open-alert index for machine %d: %w", rec.GFRID, err)
			}
		}
		return nil
	})
	if err != nil {
		return model.MachineEvent{}, false, err
	}
	return event, statusChanged, nil
}

// closeOpenEvent finishes the previous open event for the record's
// (gfrid, alert) pair, if one exists, and retires its index entry.
func (s *gormStore) closeOpenEvent(tx *gorm.DB, rec IngestRecord) error {
	var index model.OpenAlert
	err := tx.Where("gfrid = ? AND alert = ?", rec.GFRID, rec.Alert).First(&index).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read open-alert index for machine %d: %w", rec.GFRID, err)
	}

	if err := tx.Model(&model.MachineEvent{}).
		Where("id = ? AND ended_at IS NULL", index.EventID).
		Update("ended_at", rec.StartedAt).Error; err != nil {
		return fmt.Errorf("failed to close open event %d: %w", index.EventID, err)
	}

	if err := tx.Where("gfrid = ? AND alert = ?", rec.GFRID, rec.Alert).
		Delete(&model.OpenAlert{}).Error; err != nil {
		return fmt.Errorf("failed to clear open-alert index for machine %d: %w", rec.GFRID, err)
	}
	return nil
}

// EventsOverlapping returns the machine's events whose effective range
// touches the window, open-ended events included, ordered by start. This is
// the read contract the reconciler consumes.
func (s *gormStore) EventsOverlapping(ctx context.Context, gfrid int64, w timeline.Window) ([]model.MachineEvent, error) {
	var events []model.MachineEvent
	err := s.db.WithContext(ctx).
		Where("gfrid = ?", gfrid).
		Where("started_at < ?", w.To).
		Where("ended_at IS NULL OR ended_at > ?", w.From).
		Order("started_at, id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load events for machine %d: %w", gfrid, err)
	}
	return events, nil
}

// EventsStartedBetween returns events that began inside the window, newest
// first. Used for telemetry key-set and latest-blob extraction.
func (s *gormStore) EventsStartedBetween(ctx context.Context, gfrid int64, w timeline.Window) ([]model.MachineEvent, error) {
	var events []model.MachineEvent
	err := s.db.WithContext(ctx).
		Where("gfrid = ?", gfrid).
		Where("started_at BETWEEN ? AND ?", w.From, w.To).
		Order("started_at DESC, id DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load telemetry events for machine %d: %w", gfrid, err)
	}
	return events, nil
}

// MachineIDs lists every machine that has ever reported an event.
func (s *gormStore) MachineIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&model.MachineEvent{}).
		Distinct("gfrid").
		Order("gfrid").
		Pluck("gfrid", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list machine ids: %w", err)
	}
	return ids, nil
}

// LatestEvent returns the machine's newest event, or nil when the machine
// has never reported.
func (s *gormStore) LatestEvent(ctx context.Context, gfrid int64) (*model.MachineEvent, error) {
	var event model.MachineEvent
	err := s.db.WithContext(ctx).
		Where("gfrid = ?", gfrid).
		Order("started_at DESC, id DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest event for machine %d: %w", gfrid, err)
	}
	return &event, nil
}

// TimelineEvents converts stored rows into the core's event type. Rows with a
// zero start timestamp are dropped here, mirroring the reconciler's
// malformed-record policy.
func TimelineEvents(rows []model.MachineEvent) []timeline.Event {
	events := make([]timeline.Event, 0, len(rows))
	for i := range rows {
		row := rows[i]
		if row.StartedAt.IsZero() {
			continue
		}
		id := row.ID
		events = append(events, timeline.Event{
			ID:      &id,
			GFRID:   row.GFRID,
			Alert:   row.Alert,
			GroupID: row.AlertNotifyID,
			Status:  row.Status,
			Start:   row.StartedAt,
			End:     row.EndedAt,
		})
	}
	return events
}
