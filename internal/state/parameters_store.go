// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/amm/internal/types"
)

// ErrNoActiveParameters is returned when no active parameter set exists for a config name.
var ErrNoActiveParameters = errors.New("no active parameters found")

// SaveParameters saves a new version of the AMM and risk parameters. With makeActive
// every other version of configName is deactivated in the same transaction.
func SaveParameters(ammParams types.AMMParameters, riskParams types.RiskParameters, configName string, version int, makeActive bool) (id int64, err error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	ammJSON, err := json.Marshal(ammParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal amm parameters: %w", err)
	}
	riskJSON, err := json.Marshal(riskParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal risk parameters: %w", err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		_, err = tx.Exec(`UPDATE amm_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	now := time.Now().UTC()
	err = tx.QueryRow(`
		INSERT INTO amm_parameters (config_name, version, is_active, activated_at, created_at, amm_params, risk_params)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING params_id;`,
		configName, version, makeActive, now, now, ammJSON, riskJSON,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert parameters: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit parameters: %w", err)
	}

	log.Info().
		Int64("params_id", id).
		Str("config_name", configName).
		Int("version", version).
		Bool("active", makeActive).
		Msg("Parameters saved")
	return id, nil
}

// LoadActiveParameters loads the active parameter set of configName.
func LoadActiveParameters(configName string) (*types.AMMParameters, *types.RiskParameters, error) {
	if DB == nil {
		return nil, nil, fmt.Errorf("database not initialized")
	}

	var ammJSON, riskJSON []byte
	err := DB.QueryRow(`
		SELECT amm_params, risk_params
		FROM amm_parameters
		WHERE config_name = $1 AND is_active = TRUE
		ORDER BY activated_at DESC
		LIMIT 1;`, configName).Scan(&ammJSON, &riskJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w for %s", ErrNoActiveParameters, configName)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load active parameters for %s: %w", configName, err)
	}

	var ammParams types.AMMParameters
	if err := json.Unmarshal(ammJSON, &ammParams); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal amm parameters: %w", err)
	}
	var riskParams types.RiskParameters
	if err := json.Unmarshal(riskJSON, &riskParams); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal risk parameters: %w", err)
	}
	return &ammParams, &riskParams, nil
}
