package config

import (
	"github.com/rs/zerolog/log"

	"github.com/elys-network/amm/internal/state"
)

// loadDatabaseConfig reads the DB_* variables. Persistence is optional: without
// DB_HOST it returns nil.
func loadDatabaseConfig() (*state.DBConfig, error) {
	host, ok := lookupEnv("DB_HOST")
	if !ok {
		log.Info().Msg("DB_HOST not set, running without persistence")
		return nil, nil
	}

	port, err := getEnvAsIntOrDefault("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	user, err := getEnv("DB_USER")
	if err != nil {
		return nil, err
	}
	name, err := getEnv("DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg := &state.DBConfig{
		Host:     host,
		Port:     port,
		User:     user,
		Password: getEnvOrDefault("DB_PASSWORD", ""),
		DBName:   name,
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
	}

	log.Debug().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("dbname", cfg.DBName).
		Msg("Database configuration loaded")
	return cfg, nil
}
