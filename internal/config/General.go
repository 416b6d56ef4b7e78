package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/amm/internal/state"
	"github.com/elys-network/amm/internal/types"
)

// Volume oracle kinds accepted by AMM_VOLUME_ORACLE.
const (
	VolumeOracleSynthetic = "synthetic"
	VolumeOracleTrades    = "trades"
)

// AppConfig holds all application configuration loaded from environment variables.
type AppConfig struct {
	// WebPort is the port the HTTP API listens on.
	WebPort string
	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string
	// LogFile optionally mirrors logs to a file.
	LogFile string

	AMM  types.AMMParameters
	Risk types.RiskParameters

	// VolumeOracle selects the recent-volume estimator used by fee adjustment.
	VolumeOracle string
	// HistoryLimit caps the in-memory transaction log per pool (0 = unbounded).
	HistoryLimit int

	// PriceSource, when enabled, fits the risk return model to hourly prices.
	PriceSource PriceSourceConfig

	// Database is nil when persistence is disabled.
	Database *state.DBConfig
	// ParamsConfigName names the stored parameter set to load.
	ParamsConfigName string
}

// PriceSourceConfig names the token whose hourly price history feeds the
// return model. Both Token and APIKey must be set.
type PriceSourceConfig struct {
	Token  string
	APIKey string
	Hours  int
}

// Enabled reports whether a price source is configured.
func (p PriceSourceConfig) Enabled() bool {
	return p.Token != "" && p.APIKey != ""
}

// LoadConfig loads configuration from environment variables. Every variable is
// optional and falls back to the defaults in Parameters.go.
func LoadConfig() (*AppConfig, error) {
	log.Info().Msg("Loading application configuration from environment variables...")

	cfg := &AppConfig{
		WebPort:          getEnvOrDefault("WEB_PORT", "8080"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:          getEnvOrDefault("LOG_FILE", ""),
		AMM:              DefaultAMMParameters,
		Risk:             DefaultRiskParameters,
		VolumeOracle:     strings.ToLower(getEnvOrDefault("AMM_VOLUME_ORACLE", VolumeOracleSynthetic)),
		ParamsConfigName: getEnvOrDefault("AMM_PARAMS_CONFIG_NAME", DefaultParamsConfigName),
		PriceSource: PriceSourceConfig{
			Token:  getEnvOrDefault("RISK_PRICE_TOKEN", ""),
			APIKey: getEnvOrDefault("CRYPTOCOMPARE_API", ""),
		},
	}

	var errs []error
	floatVars := []struct {
		key string
		dst *float64
	}{
		{"AMM_DEFAULT_FEE", &cfg.AMM.DefaultFee},
		{"AMM_VOLUME_THRESHOLD", &cfg.AMM.VolumeThreshold},
		{"AMM_MAX_IMBALANCE", &cfg.AMM.MaxImbalance},
		{"AMM_MAX_FEE", &cfg.AMM.MaxFee},
		{"AMM_BALANCE_MAX_INCENTIVE", &cfg.AMM.BalanceMaxIncentive},
		{"AMM_DEPOSIT_TOLERANCE", &cfg.AMM.DepositTolerance},
		{"RISK_MEAN_RETURN", &cfg.Risk.MeanReturn},
		{"RISK_STD_RETURN", &cfg.Risk.StdReturn},
		{"RISK_CONFIDENCE_LEVEL", &cfg.Risk.ConfidenceLevel},
	}
	for _, v := range floatVars {
		value, err := getEnvAsFloat64OrDefault(v.key, *v.dst)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*v.dst = value
	}

	var err error
	if cfg.AMM.FeeVolumeWindow, err = getEnvAsDurationOrDefault("AMM_FEE_VOLUME_WINDOW", cfg.AMM.FeeVolumeWindow); err != nil {
		errs = append(errs, err)
	}
	if cfg.Risk.NumSimulations, err = getEnvAsIntOrDefault("RISK_NUM_SIMULATIONS", cfg.Risk.NumSimulations); err != nil {
		errs = append(errs, err)
	}
	if cfg.Risk.Seed, err = getEnvAsUint64OrDefault("RISK_SEED", cfg.Risk.Seed); err != nil {
		errs = append(errs, err)
	}
	if cfg.HistoryLimit, err = getEnvAsIntOrDefault("AMM_HISTORY_LIMIT", 10_000); err != nil {
		errs = append(errs, err)
	}
	if cfg.PriceSource.Hours, err = getEnvAsIntOrDefault("RISK_PRICE_HOURS", 720); err != nil {
		errs = append(errs, err)
	}
	if cfg.Database, err = loadDatabaseConfig(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("webPort", cfg.WebPort).
		Str("volumeOracle", cfg.VolumeOracle).
		Float64("defaultFee", cfg.AMM.DefaultFee).
		Float64("maxFee", cfg.AMM.MaxFee).
		Bool("persistence", cfg.Database != nil).
		Bool("priceSource", cfg.PriceSource.Enabled()).
		Msg("Configuration loaded successfully.")

	return cfg, nil
}

// Validate checks the loaded configuration.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.AMM.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("amm parameters: %w", err))
	}
	if err := c.Risk.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("risk parameters: %w", err))
	}
	if c.VolumeOracle != VolumeOracleSynthetic && c.VolumeOracle != VolumeOracleTrades {
		errs = append(errs, fmt.Errorf("AMM_VOLUME_ORACLE must be %q or %q, got %q", VolumeOracleSynthetic, VolumeOracleTrades, c.VolumeOracle))
	}
	if c.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("AMM_HISTORY_LIMIT must be non-negative, got %d", c.HistoryLimit))
	}
	if c.PriceSource.Enabled() && c.PriceSource.Hours < 2 {
		errs = append(errs, fmt.Errorf("RISK_PRICE_HOURS must be at least 2, got %d", c.PriceSource.Hours))
	}
	return errors.Join(errs...)
}

// lookupEnv returns the variable's value when it is set and non-empty.
func lookupEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, ok := lookupEnv(key); ok {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, falling back to def.
func getEnvOrDefault(key, def string) string {
	if value, ok := lookupEnv(key); ok {
		return value
	}
	return def
}

// getEnvAsFloat64OrDefault retrieves an environment variable as a float64. Returns error if invalid.
func getEnvAsFloat64OrDefault(key string, def float64) (float64, error) {
	valueStr, ok := lookupEnv(key)
	if !ok {
		return def, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsIntOrDefault retrieves an environment variable as an int. Returns error if invalid.
func getEnvAsIntOrDefault(key string, def int) (int, error) {
	valueStr, ok := lookupEnv(key)
	if !ok {
		return def, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsUint64OrDefault retrieves an environment variable as a uint64. Returns error if invalid.
func getEnvAsUint64OrDefault(key string, def uint64) (uint64, error) {
	valueStr, ok := lookupEnv(key)
	if !ok {
		return def, nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDurationOrDefault retrieves an environment variable as a time.Duration (e.g. "1h", "30m").
func getEnvAsDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	valueStr, ok := lookupEnv(key)
	if !ok {
		return def, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}
