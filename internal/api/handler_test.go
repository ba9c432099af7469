package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"machine-report-backend/config"
	"machine-report-backend/internal/model"
	"machine-report-backend/internal/store"
	"machine-report-backend/internal/timeline"
)

// mockStore is a mock implementation of the store.Store interface.
type mockStore struct {
	InsertEventFunc          func(ctx context.Context, rec store.IngestRecord) (model.MachineEvent, bool, error)
	EventsOverlappingFunc    func(ctx context.Context, gfrid int64, w timeline.Window) ([]model.MachineEvent, error)
	EventsStartedBetweenFunc func(ctx context.Context, gfrid int64, w timeline.Window) ([]model.MachineEvent, error)
	MachineIDsFunc           func(ctx context.Context) ([]int64, error)
	LatestEventFunc          func(ctx context.Context, gfrid int64) (*model.MachineEvent, error)
}

func (m *mockStore) DB() *gorm.DB { return nil }

func (m *mockStore) InsertEvent(ctx context.Context, rec store.IngestRecord) (model.MachineEvent, bool, error) {
	return m.InsertEventFunc(ctx, rec)
}

func (m *mockStore) EventsOverlapping(ctx context.Context, gfrid int64, w timeline.Window) ([]model.MachineEvent, error) {
	return m.EventsOverlappingFunc(ctx, gfrid, w)
}

func (m *mockStore) EventsStartedBetween(ctx context.Context, gfrid int64, w timeline.Window) ([]model.MachineEvent, error) {
	if m.EventsStartedBetweenFunc == nil {
		return nil, nil
	}
	return m.EventsStartedBetweenFunc(ctx, gfrid, w)
}

func (m *mockStore) MachineIDs(ctx context.Context) ([]int64, error) {
	return m.MachineIDsFunc(ctx)
}

func (m *mockStore) LatestEvent(ctx context.Context, gfrid int64) (*model.MachineEvent, error) {
	return m.LatestEventFunc(ctx, gfrid)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

func setupRouter(s store.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(s, nil, testConfig(), nil)

	r.GET("/api/machine-status", handler.GetMachineStatus)
	r.GET("/api/priority-usage", handler.GetPriorityUsage)
	r.GET("/api/machines/:gfrid/report", handler.GetMachineReport)
	r.POST("/api/events", handler.PostEvent)
	r.GET("/api/vapid_public_key", handler.GetVAPIDPublicKey)
	return r
}

func TestGetMachineStatus_Validation(t *testing.T) {
	router := setupRouter(&mockStore{})

	t.Run("missing gfrid", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/machine-status", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "gfrid is required")
	})

	t.Run("malformed from_date", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/machine-status?gfrid=7&from_date=yesterday", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid timestamp")
	})

	t.Run("malformed bucket_minutes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/machine-status?gfrid=7&bucket_minutes=-5", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid bucket_minutes")
	})
}

func TestGetMachineStatus_ReconciledTimeline(t *testing.T) {
	from := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ended := from.Add(30 * time.Minute)

	s := &mockStore{
		EventsOverlappingFunc: func(ctx context.Context, gfrid int64, w timeline.Window) ([]model.MachineEvent, error) {
			return []model.MachineEvent{
				{ID: 1, GFRID: 7, Alert: "0x00020000", Status: 1, StartedAt: from, EndedAt: &ended},
			}, nil
		},
	}
	router := setupRouter(s)

	w := httptest.NewRecorder()
	url := "/api/machine-status?gfrid=7&from_date=2024-03-01T10:00:00Z&to_date=2024-03-01T11:00:00Z"
	req, _ := http.NewRequest("GET", url, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		GFRID         int64               `json:"gfrid"`
		OnTimeSec     float64             `json:"on_time_sec"`
		OffTimeSec    float64             `json:"off_time_sec"`
		OnPercent     float64             `json:"on_percent"`
		StatusRecords []timeline.Interval `json:"status_records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, int64(7), resp.GFRID)
	assert.Equal(t, 1800.0, resp.OnTimeSec)
	assert.Equal(t, 1800.0, resp.OffTimeSec)
	assert.Equal(t, 50.0, resp.OnPercent)
	// One ON interval plus the trailing synthetic OFF gap.
	require.Len(t, resp.StatusRecords, 2)
	assert.Equal(t, timeline.StatusOn, resp.StatusRecords[0].Status)
	assert.Equal(t, timeline.StatusOff, resp.StatusRecords[1].Status)
}

func TestGetPriorityUsage_RanksMachines(t *testing.T) {
	from := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	s := &mockStore{
		MachineIDsFunc: func(ctx context.Context) ([]int64, error) {
			return []int64{1, 2}, nil
		},
		EventsOverlappingFunc: func(ctx context.Context, gfrid int64, w timeline.Window) ([]model.MachineEvent, error) {
			// Machine 2 is busier than machine 1.
			minutes := 10 * time.Minute
			if gfrid == 2 {
				minutes = 30 * time.Minute
			}
			ended := from.Add(minutes)
			return []model.MachineEvent{
				{ID: gfrid, GFRID: gfrid, Alert: "0x00020000", Status: 1, StartedAt: from, EndedAt: &ended},
			}, nil
		},
	}
	router := setupRouter(s)

	w := httptest.NewRecorder()
	url := "/api/priority-usage?from_date=2024-03-01T10:00:00Z&to_date=2024-03-01T11:00:00Z"
	req, _ := http.NewRequest("GET", url, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Machines []timeline.MachineUsage `json:"machines"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Machines, 2)
	assert.Equal(t, int64(2), resp.Machines[0].GFRID, "busier machine ranks first")
	assert.Equal(t, 75.0, resp.Machines[0].OnPercent)
	assert.Equal(t, 25.0, resp.Machines[1].OnPercent)
}

func TestPostEvent(t *testing.T) {
	t.Run("rejects empty body", func(t *testing.T) {
		router := setupRouter(&mockStore{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/events", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed alert code", func(t *testing.T) {
		router := setupRouter(&mockStore{})

		body := `{"gfrid":7,"alert":"sideways","status":1,"start_time":"2024-03-01T10:00:00Z"}`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/events", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects end before start", func(t *testing.T) {
		router := setupRouter(&mockStore{})

		body := `{"gfrid":7,"alert":"0x00020000","status":1,"start_time":"2024-03-01T10:00:00Z","end_time":"2024-03-01T09:00:00Z"}`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/events", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "end_time must be after start_time")
	})

	t.Run("persists a normalized record", func(t *testing.T) {
		var got store.IngestRecord
		s := &mockStore{
			InsertEventFunc: func(ctx context.Context, rec store.IngestRecord) (model.MachineEvent, bool, error) {
				got = rec
				return model.MachineEvent{ID: 99}, true, nil
			},
		}
		router := setupRouter(s)

		body := `{"gfrid":7,"alert":"0X20000","status":1,"start_time":"2024-03-01T10:00:00Z"}`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/events", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"id":99`)
		assert.Equal(t, "0x00020000", got.Alert)
		assert.Nil(t, got.EndedAt)
	})
}

func TestGetVAPIDPublicKey_Unconfigured(t *testing.T) {
	router := setupRouter(&mockStore{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/vapid_public_key", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
