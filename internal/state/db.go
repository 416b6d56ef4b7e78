// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool. It stays nil when persistence is disabled.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// DSN renders the lib/pq connection string.
func (c DBConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	var err error
	DB, err = sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("dbname", cfg.DBName).Msg("Connected to the PostgreSQL database")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
		DB = nil
	}
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS amm_parameters (
		params_id SERIAL PRIMARY KEY,
		config_name VARCHAR(255) NOT NULL DEFAULT 'default',
		version INTEGER NOT NULL DEFAULT 1,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		amm_params JSONB NOT NULL,
		risk_params JSONB NOT NULL,
		CONSTRAINT uq_amm_parameters_config_version UNIQUE (config_name, version)
	);
	CREATE INDEX IF NOT EXISTS idx_amm_parameters_config_active ON amm_parameters(config_name, is_active, activated_at DESC);

	CREATE TABLE IF NOT EXISTS simulation_reports (
		report_id SERIAL PRIMARY KEY,
		run_id UUID NOT NULL UNIQUE,
		scenario VARCHAR(100) NOT NULL,
		volatility DECIMAL(10, 6) NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		step_count INTEGER NOT NULL,
		failed_steps INTEGER NOT NULL,
		total_volume DECIMAL(30, 10) NOT NULL,
		total_fees DECIMAL(30, 10) NOT NULL,
		tokens TEXT[],
		final_metrics JSONB,
		realized_volatility JSONB,
		steps JSONB
	);
	CREATE INDEX IF NOT EXISTS idx_simulation_reports_finished ON simulation_reports(finished_at DESC);
	CREATE INDEX IF NOT EXISTS idx_simulation_reports_scenario ON simulation_reports(scenario);
`

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured")
	return nil
}

// ResetSchema drops every table owned by the service and recreates them empty.
func ResetSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	dropSQL := `
		DROP TABLE IF EXISTS simulation_reports CASCADE;
		DROP TABLE IF EXISTS amm_parameters CASCADE;
	`
	if _, err := DB.Exec(dropSQL); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	log.Warn().Msg("Dropped simulation_reports and amm_parameters")
	return EnsureSchema()
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
