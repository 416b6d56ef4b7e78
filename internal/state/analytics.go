package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ReportSummary is a stored simulation report without its step log.
type ReportSummary struct {
	ReportID     int64              `json:"report_id"`
	RunID        string             `json:"run_id"`
	Scenario     string             `json:"scenario"`
	Volatility   float64            `json:"volatility"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	StepCount    int                `json:"step_count"`
	FailedSteps  int                `json:"failed_steps"`
	TotalVolume  float64            `json:"total_volume"`
	TotalFees    float64            `json:"total_fees"`
	Tokens       []string           `json:"tokens"`
	Realized     map[string]float64 `json:"realized_volatility"`
	FinalMetrics json.RawMessage    `json:"final_metrics"`
}

// ScenarioStats aggregates every stored run of one scenario.
type ScenarioStats struct {
	Scenario       string  `json:"scenario"`
	Runs           int     `json:"runs"`
	AvgTotalFees   float64 `json:"avg_total_fees"`
	AvgTotalVolume float64 `json:"avg_total_volume"`
	AvgFailureRate float64 `json:"avg_failure_rate"` // failed_steps / step_count
}

// GetRecentReports retrieves the most recent simulation reports, newest first.
func GetRecentReports(limit int) ([]ReportSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT
			report_id, run_id, scenario, volatility, started_at, finished_at,
			step_count, failed_steps, total_volume, total_fees,
			tokens, realized_volatility, final_metrics
		FROM simulation_reports
		ORDER BY finished_at DESC
		LIMIT $1
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent reports")
		return nil, fmt.Errorf("failed to query recent reports: %w", err)
	}
	defer rows.Close()

	var reports []ReportSummary
	for rows.Next() {
		var r ReportSummary
		var realizedJSON, finalMetricsJSON []byte

		err := rows.Scan(
			&r.ReportID, &r.RunID, &r.Scenario, &r.Volatility, &r.StartedAt, &r.FinishedAt,
			&r.StepCount, &r.FailedSteps, &r.TotalVolume, &r.TotalFees,
			pq.Array(&r.Tokens), &realizedJSON, &finalMetricsJSON,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan report row")
			continue // Skip this row and continue with others
		}
		if len(realizedJSON) > 0 {
			if err := json.Unmarshal(realizedJSON, &r.Realized); err != nil {
				log.Error().Err(err).Int64("report_id", r.ReportID).Msg("Failed to unmarshal realized volatility")
				continue
			}
		}
		r.FinalMetrics = finalMetricsJSON
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}
	return reports, nil
}

// GetScenarioStats aggregates stored reports per scenario.
func GetScenarioStats() ([]ScenarioStats, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			scenario,
			COUNT(*),
			COALESCE(AVG(total_fees), 0),
			COALESCE(AVG(total_volume), 0),
			COALESCE(AVG(failed_steps::DECIMAL / NULLIF(step_count, 0)), 0)
		FROM simulation_reports
		GROUP BY scenario
		ORDER BY scenario
	`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenario stats: %w", err)
	}
	defer rows.Close()

	var stats []ScenarioStats
	for rows.Next() {
		var s ScenarioStats
		if err := rows.Scan(&s.Scenario, &s.Runs, &s.AvgTotalFees, &s.AvgTotalVolume, &s.AvgFailureRate); err != nil {
			return nil, fmt.Errorf("failed to scan scenario stats: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scenario stats: %w", err)
	}
	return stats, nil
}
