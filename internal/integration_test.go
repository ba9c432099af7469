package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"machine-report-backend/config"
	"machine-report-backend/internal/api"
	"machine-report-backend/internal/model"
	"machine-report-backend/internal/store"
)

// TestEventLifecycle walks one machine through an ON/OFF cycle and verifies
// the open-alert index, the stored rows, and the report API at each step.
func TestEventLifecycle(t *testing.T) {
	// --- Test Setup ---

	// 1. Setup an in-memory SQLite database for testing.
	testDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to the in-memory database: %v", err)
	}
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	// Run database migrations.
	err = testDB.AutoMigrate(
		&model.MachineEvent{},
		&model.OpenAlert{},
		&model.PushSubscription{},
		&model.SubscriptionTarget{},
	)
	require.NoError(t, err)

	// 2. Build the store and router the way main does.
	cfg := &config.Config{}
	cfg.ApplyDefaults()

	gormStore := store.NewGormStore(testDB)
	router := api.NewRouter(gormStore, nil, cfg, nil)

	ctx := context.Background()
	onStart := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	offStart := onStart.Add(30 * time.Minute)

	// --- Cycle 1: Machine switches ON with an open-ended event ---
	t.Run("Cycle 1: Open ON Event", func(t *testing.T) {
		event, statusChanged, err := gormStore.InsertEvent(ctx, store.IngestRecord{
			GFRID:     101,
			Alert:     "0x00020000",
			Status:    1,
			StartedAt: onStart,
			Telemetry: map[string]any{"temp": 41.5},
		})
		require.NoError(t, err)
		assert.True(t, statusChanged, "first event for a machine counts as a status change")
		assert.Nil(t, event.EndedAt)

		var index model.OpenAlert
		err = testDB.Where("gfrid = ? AND alert = ?", int64(101), "0x00020000").First(&index).Error
		require.NoError(t, err, "expected an open-alert index entry")
		assert.Equal(t, event.ID, index.EventID)
	})

	// --- Cycle 2: Machine switches OFF, closing the open event ---
	t.Run("Cycle 2: OFF Event Closes Predecessor", func(t *testing.T) {
		event, statusChanged, err := gormStore.InsertEvent(ctx, store.IngestRecord{
			GFRID:     101,
			Alert:     "0x00020000",
			Status:    0,
			StartedAt: offStart,
		})
		require.NoError(t, err)
		assert.True(t, statusChanged, "ON to OFF must register as a status change")

		// The previous event's end is the new event's start.
		var closed model.MachineEvent
		err = testDB.Where("gfrid = ? AND status = ?", int64(101), 1).First(&closed).Error
		require.NoError(t, err)
		require.NotNil(t, closed.EndedAt)
		assert.True(t, closed.EndedAt.Equal(offStart))

		// The index now points at the new open event.
		var index model.OpenAlert
		err = testDB.Where("gfrid = ? AND alert = ?", int64(101), "0x00020000").First(&index).Error
		require.NoError(t, err)
		assert.Equal(t, event.ID, index.EventID)
	})

	// --- Report path over the same data ---
	t.Run("Machine Status Report", func(t *testing.T) {
		w := httptest.NewRecorder()
		url := "/api/machine-status?gfrid=101&from_date=2024-03-01T10:00:00Z&to_date=2024-03-01T11:00:00Z"
		req, _ := http.NewRequest("GET", url, nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			OnTimeSec     float64  `json:"on_time_sec"`
			OffTimeSec    float64  `json:"off_time_sec"`
			OnPercent     float64  `json:"on_percent"`
			TelemetryKeys []string `json:"telemetry_keys"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		// 30 minutes ON, then the open OFF event runs to the window end.
		assert.Equal(t, 1800.0, resp.OnTimeSec)
		assert.Equal(t, 1800.0, resp.OffTimeSec)
		assert.Equal(t, 50.0, resp.OnPercent)
		assert.Equal(t, []string{"temp"}, resp.TelemetryKeys)
	})

	t.Run("Priority Usage Report", func(t *testing.T) {
		w := httptest.NewRecorder()
		url := "/api/priority-usage?from_date=2024-03-01T10:00:00Z&to_date=2024-03-01T11:00:00Z"
		req, _ := http.NewRequest("GET", url, nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Machines []struct {
				GFRID     int64   `json:"gfrid"`
				OnPercent float64 `json:"on_percent"`
			} `json:"machines"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		require.Len(t, resp.Machines, 1)
		assert.Equal(t, int64(101), resp.Machines[0].GFRID)
		assert.Equal(t, 100.0, resp.Machines[0].OnPercent, "a fleet of one owns all the usage")
	})

	// --- Subscription round trip through the same router ---
	t.Run("Subscription Round Trip", func(t *testing.T) {
		body := `{"endpoint":"https://example.com/push","p256dh":"key","auth":"secret","subscribed_machines":[101]}`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/api/subscriptions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/api/subscriptions?endpoint=https://example.com/push", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"subscribed_machines":[101]}`, w.Body.String())
	})
}
