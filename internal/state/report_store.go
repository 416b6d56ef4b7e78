// ./internal/state/report_store.go
package state

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/elys-network/amm/internal/types"
)

// SaveSimulationReport saves a complete simulation report to the database.
func SaveSimulationReport(report types.SimulationReport) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	// Marshal all JSONB fields
	finalMetricsJSON, err := json.Marshal(report.FinalMetrics)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal final_metrics: %w", err)
	}
	realizedJSON, err := json.Marshal(report.Realized)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal realized_volatility: %w", err)
	}
	stepsJSON, err := json.Marshal(report.Steps)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal steps: %w", err)
	}

	failed := 0
	for _, step := range report.Steps {
		if step.Error != "" {
			failed++
		}
	}
	tokens := make([]string, 0, len(report.Realized))
	for token := range report.Realized {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	query := `
		INSERT INTO simulation_reports (
			run_id, scenario, volatility, started_at, finished_at,
			step_count, failed_steps, total_volume, total_fees,
			tokens, final_metrics, realized_volatility, steps
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING report_id;
	`

	var reportID int64
	err = DB.QueryRow(
		query,
		report.RunID.String(), report.Scenario, report.Volatility, report.StartedAt, report.FinishedAt,
		len(report.Steps), failed, report.FinalMetrics.TotalVolume, report.FinalMetrics.TotalFees,
		pq.Array(tokens), finalMetricsJSON, realizedJSON, stepsJSON,
	).Scan(&reportID)
	if err != nil {
		return 0, fmt.Errorf("failed to save simulation report: %w", err)
	}

	log.Info().
		Int64("report_id", reportID).
		Str("scenario", report.Scenario).
		Int("steps", len(report.Steps)).
		Int("failed_steps", failed).
		Msg("Simulation report saved to database")

	return reportID, nil
}
