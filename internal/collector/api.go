package collector

// CollectedEvent is one machine event as reported by the upstream telemetry
// API. Timestamps arrive as local-time strings and alert codes arrive in
// whatever casing the firmware emits, so both need normalization before the
// record can be persisted.
type CollectedEvent struct {
	GFRID         int64          `json:"gfrid"`
	Alert         string         `json:"alert"`
	Status        int            `json:"status"`
	StartTime     string         `json:"start_time"`
	EndTime       *string        `json:"end_time"`
	AlertNotifyID *int           `json:"alert_notify_id"`
	Telemetry     map[string]any `json:"telemetry"`
}

// ApiResponse models the top-level structure of the upstream API's response.
type ApiResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int              `json:"page"`
		PageSize int              `json:"pageSize"`
		Total    int              `json:"total"`
		Items    []CollectedEvent `json:"items"`
	} `json:"data"`
}
