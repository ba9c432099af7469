package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"machine-report-backend/config"
	"machine-report-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.MachineEvent{},
		&model.OpenAlert{},
		&model.PushSubscription{},
		&model.SubscriptionTarget{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableTimescale {
		log.Println("TimescaleDB is enabled, applying TimescaleDB-specific DDL...")
		if err := applyTimescaleDDL(db); err != nil {
			log.Printf("Warning: failed to apply some TimescaleDB DDL: %v. Continuing without them.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

func applyTimescaleDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS timescaledb;",
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		// machine_events is append-heavy and time-keyed; partition it on the
		// event start.
		"SELECT create_hypertable('machine_events', 'started_at', if_not_exists => TRUE);",

		// Closed events must have a valid range.
		"ALTER TABLE machine_events " +
			"ADD CONSTRAINT machine_events_range_valid CHECK (ended_at IS NULL OR started_at < ended_at);",

		// Expression GIST index so overlap queries (&&, @>) against the query
		// window can use the range directly (lower bound closed, upper open).
		"CREATE INDEX idx_machine_events_range_expr ON machine_events " +
			"USING GIST (gfrid, tstzrange(started_at, COALESCE(ended_at, 'infinity'), '[)'));",

		"CREATE INDEX idx_machine_events_gfrid_started_desc ON machine_events (gfrid, started_at DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
