package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.WebPort)
	assert.Equal(t, DefaultAMMParameters, cfg.AMM)
	assert.Equal(t, DefaultRiskParameters, cfg.Risk)
	assert.Equal(t, VolumeOracleSynthetic, cfg.VolumeOracle)
	assert.Nil(t, cfg.Database)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("AMM_DEFAULT_FEE", "0.002")
	t.Setenv("AMM_FEE_VOLUME_WINDOW", "30m")
	t.Setenv("AMM_VOLUME_ORACLE", "Trades")
	t.Setenv("RISK_NUM_SIMULATIONS", "500")
	t.Setenv("RISK_SEED", "42")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "amm")
	t.Setenv("DB_NAME", "amm")
	t.Setenv("DB_PORT", "6543")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.WebPort)
	assert.Equal(t, 0.002, cfg.AMM.DefaultFee)
	assert.Equal(t, 30*time.Minute, cfg.AMM.FeeVolumeWindow)
	assert.Equal(t, VolumeOracleTrades, cfg.VolumeOracle)
	assert.Equal(t, 500, cfg.Risk.NumSimulations)
	assert.Equal(t, uint64(42), cfg.Risk.Seed)
	require.NotNil(t, cfg.Database)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("AMM_MAX_FEE", "lots")
	t.Setenv("RISK_NUM_SIMULATIONS", "many")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMM_MAX_FEE")
	assert.Contains(t, err.Error(), "RISK_NUM_SIMULATIONS")
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("AMM_MAX_FEE", "0.001")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "max_fee")

	t.Setenv("AMM_MAX_FEE", "")
	t.Setenv("AMM_VOLUME_ORACLE", "magic")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "AMM_VOLUME_ORACLE")
}

func TestDatabaseConfigRequiresUser(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "amm")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "DB_USER")
}

func TestPriceSourceConfig(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("RISK_PRICE_TOKEN", "ETH")
	t.Setenv("CRYPTOCOMPARE_API", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.PriceSource.Enabled())

	t.Setenv("CRYPTOCOMPARE_API", "key")
	t.Setenv("RISK_PRICE_HOURS", "48")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.PriceSource.Enabled())
	assert.Equal(t, 48, cfg.PriceSource.Hours)

	t.Setenv("RISK_PRICE_HOURS", "1")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "RISK_PRICE_HOURS")
}
