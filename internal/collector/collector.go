package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"machine-report-backend/config"
	"machine-report-backend/internal/notification"
	"machine-report-backend/internal/parse"
	"machine-report-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
)

// Service polls the machine gateway for new events and persists them through
// the store. Status flips discovered during ingest are handed to the worker
// pool for push notifications.
type Service struct {
	cfg        *config.Config
	store      store.Store
	client     *http.Client
	workerPool *notification.WorkerPool
}

// NewService creates and initializes a new collector service.
func NewService(cfg *config.Config, store store.Store) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.Collector.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.Collector.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Collector will not use a proxy.", cfg.Collector.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, store.DB(), &webpushOptions)

	return &Service{
		cfg:   cfg,
		store: store,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		workerPool: workerPool,
	}
}

// Run starts the collection process in a loop.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Collector.Enabled {
		log.Println("Collector is disabled. Not starting.")
		return
	}
	log.Println("Starting collector service...")

	s.workerPool.Start(ctx)

	s.CollectOnce(ctx)

	timer := time.NewTimer(s.cfg.Collector.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Collector service shutting down.")
			return
		case <-timer.C:
			s.CollectOnce(ctx)
			timer.Reset(s.cfg.Collector.Interval)
		}
	}
}

// CollectOnce performs a single round of event collection and persistence.
func (s *Service) CollectOnce(ctx context.Context) {
	log.Println("Executing collection cycle...")

	// Step 1: Fetch all pages from the upstream gateway
	var allItems []CollectedEvent
	total := 1
	pageSize := s.cfg.Collector.Request.PageSize
	var fetchErr error
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			log.Printf("Error fetching page %d: %v", page, err)
			fetchErr = err
			break
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		allItems = append(allItems, resp.Data.Items...)
		log.Printf("Fetched page %d/%d, total items so far: %d", page, (total/pageSize)+1, len(allItems))
	}

	if fetchErr != nil && len(allItems) == 0 {
		log.Println("Collection cycle aborted due to fetch error with no items retrieved.")
		return
	}

	// Step 2: Normalize and persist each event
	inserted := 0
	for i := range allItems {
		rec, err := s.toIngestRecord(allItems[i])
		if err != nil {
			log.Printf("Warning: skipping event for machine %d: %v", allItems[i].GFRID, err)
			continue
		}

		_, statusChanged, err := s.store.InsertEvent(ctx, rec)
		if err != nil {
			log.Printf("Error inserting event for machine %d: %v", rec.GFRID, err)
			continue
		}
		inserted++

		if statusChanged {
			s.workerPool.Dispatch(notification.StatusChange{
				GFRID:  rec.GFRID,
				Status: rec.Status,
				Alert:  rec.Alert,
			})
		}
	}

	log.Printf("Collection cycle finished: %d/%d events persisted.", inserted, len(allItems))
}

// toIngestRecord validates a collected event and converts it into the store's
// write format. Alert codes are canonicalized and timestamps parsed in the
// configured reporting timezone.
func (s *Service) toIngestRecord(item CollectedEvent) (store.IngestRecord, error) {
	alert, err := parse.NormalizeAlert(item.Alert)
	if err != nil {
		return store.IngestRecord{}, fmt.Errorf("invalid alert code %q: %w", item.Alert, err)
	}

	startedAt, err := s.parseTimestamp(&item.StartTime)
	if err != nil {
		return store.IngestRecord{}, err
	}
	if startedAt == nil {
		return store.IngestRecord{}, fmt.Errorf("missing start_time")
	}

	endedAt, err := s.parseTimestamp(item.EndTime)
	if err != nil {
		return store.IngestRecord{}, err
	}

	return store.IngestRecord{
		GFRID:         item.GFRID,
		Alert:         alert,
		Status:        item.Status,
		StartedAt:     *startedAt,
		EndedAt:       endedAt,
		AlertNotifyID: item.AlertNotifyID,
		Telemetry:     item.Telemetry,
	}, nil
}

// parseTimestamp converts the gateway's timestamp string into a time.Time,
// respecting the configured timezone.
func (s *Service) parseTimestamp(tsStr *string) (*time.Time, error) {
	if tsStr == nil || *tsStr == "" {
		return nil, nil
	}

	loc, err := time.LoadLocation(s.cfg.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", s.cfg.Report.Timezone, err)
	}

	layout := "2006-01-02 15:04:05" // The layout of the timestamp from the gateway
	parsedTime, err := time.ParseInLocation(layout, *tsStr, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp %q: %w", *tsStr, err)
	}

	return &parsedTime, nil
}

// fetchPage fetches a single page of event data from the upstream gateway.
func (s *Service) fetchPage(ctx context.Context, page int) (*ApiResponse, error) {
	payload := make(map[string]any)
	for k, v := range s.cfg.Collector.Request.Payload {
		payload[k] = v
	}
	payload["page"] = page

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Collector.Request.URL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range s.cfg.Collector.Request.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp ApiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}

	if apiResp.Code != 0 {
		return nil, fmt.Errorf("API returned non-zero application code: %d", apiResp.Code)
	}

	return &apiResp, nil
}
