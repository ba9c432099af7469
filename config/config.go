package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Report     ReportConfig     `yaml:"report"`
	Collector  CollectorConfig  `yaml:"collector"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
}

// ReportConfig controls query defaults and the movement code table.
type ReportConfig struct {
	Timezone             string            `yaml:"timezone"`
	DefaultWindowMinutes int               `yaml:"default_window_minutes"`
	DefaultWindow        time.Duration     `yaml:"-"` // Ignored by YAML parser
	MovementCodes        map[string]string `yaml:"movement_codes"`
}

// CollectorConfig holds the upstream gateway polling settings.
type CollectorConfig struct {
	Enabled         bool             `yaml:"enabled"`
	IntervalSeconds int              `yaml:"interval_seconds"`
	Interval        time.Duration    `yaml:"-"` // Ignored by YAML parser
	HTTPProxy       string           `yaml:"http_proxy"`
	Request         CollectorRequest `yaml:"request"`
}

// CollectorRequest defines the HTTP request for the collector.
type CollectorRequest struct {
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers"`
	PageSize int               `yaml:"pageSize"`
	Payload  map[string]any    `yaml:"payload"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// defaultMovementCodes is the fixed alert-to-movement lookup table shipped
// with the machines' firmware.
func defaultMovementCodes() map[string]string {
	return map[string]string{
		"0x00010000": "down",
		"0x00020000": "up",
		"0x00040000": "forward",
		"0x00080000": "reverse",
	}
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in unset values. Split out of Load so tests can build
// configs without a file.
func (cfg *Config) ApplyDefaults() {
	if cfg.Report.Timezone == "" {
		cfg.Report.Timezone = "Asia/Kolkata"
	}
	if cfg.Report.DefaultWindowMinutes <= 0 {
		cfg.Report.DefaultWindowMinutes = 60
	}
	cfg.Report.DefaultWindow = time.Duration(cfg.Report.DefaultWindowMinutes) * time.Minute
	if len(cfg.Report.MovementCodes) == 0 {
		cfg.Report.MovementCodes = defaultMovementCodes()
	}

	if cfg.Collector.IntervalSeconds <= 0 {
		cfg.Collector.IntervalSeconds = 60
	}
	cfg.Collector.Interval = time.Duration(cfg.Collector.IntervalSeconds) * time.Second
	if cfg.Collector.Request.PageSize <= 0 {
		cfg.Collector.Request.PageSize = 100
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
