package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"profitlift/domain/core"
	"profitlift/domain/uplift"
	apperrors "profitlift/internal/errors"
	"profitlift/ports"

	"github.com/jmoiron/sqlx"
)

// UpliftStoreImpl implements UpliftStore for PostgreSQL
type UpliftStoreImpl struct {
	db *sqlx.DB
}

// NewUpliftStore creates a new PostgreSQL uplift store
func NewUpliftStore(db *sqlx.DB) ports.UpliftStore {
	return &UpliftStoreImpl{db: db}
}

const estimateColumns = `
	rule_id, run_id, state,
	incremental_attach_rate, incremental_revenue, incremental_margin,
	control_rate, treatment_rate,
	confidence_low, confidence_high, p_value,
	control_size, treatment_size, actionable, seed, estimated_at`

// PutEstimate inserts or replaces the estimate for its rule
func (s *UpliftStoreImpl) PutEstimate(ctx context.Context, e uplift.Estimate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uplift_results (
			rule_id, run_id, state,
			incremental_attach_rate, incremental_revenue, incremental_margin,
			control_rate, treatment_rate,
			confidence_low, confidence_high, p_value,
			control_size, treatment_size, actionable, seed, estimated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (rule_id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			state = EXCLUDED.state,
			incremental_attach_rate = EXCLUDED.incremental_attach_rate,
			incremental_revenue = EXCLUDED.incremental_revenue,
			incremental_margin = EXCLUDED.incremental_margin,
			control_rate = EXCLUDED.control_rate,
			treatment_rate = EXCLUDED.treatment_rate,
			confidence_low = EXCLUDED.confidence_low,
			confidence_high = EXCLUDED.confidence_high,
			p_value = EXCLUDED.p_value,
			control_size = EXCLUDED.control_size,
			treatment_size = EXCLUDED.treatment_size,
			actionable = EXCLUDED.actionable,
			seed = EXCLUDED.seed,
			estimated_at = EXCLUDED.estimated_at`,
		e.RuleID.String(), e.RunID.String(), string(e.State),
		e.IncrementalAttachRate, e.IncrementalRevenue, e.IncrementalMargin,
		e.ControlRate, e.TreatmentRate,
		e.ConfidenceLow, e.ConfidenceHigh, e.PValue,
		e.ControlSize, e.TreatmentSize, e.Actionable, e.Seed, e.EstimatedAt.Time())

	if err != nil {
		return apperrors.Wrap(err, fmt.Sprintf("put estimate for rule %s", e.RuleID))
	}
	return nil
}

// GetEstimate fetches by rule id
func (s *UpliftStoreImpl) GetEstimate(ctx context.Context, ruleID core.RuleID) (*uplift.Estimate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+estimateColumns+` FROM uplift_results WHERE rule_id = $1`, ruleID.String())

	e, err := scanEstimate(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: rule %s", core.ErrUpliftNotFound, ruleID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "get estimate")
	}
	return &e, nil
}

// ListEstimates returns all estimates produced by one run
func (s *UpliftStoreImpl) ListEstimates(ctx context.Context, runID core.RunID) ([]uplift.Estimate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+estimateColumns+` FROM uplift_results WHERE run_id = $1 ORDER BY rule_id`, runID.String())
	if err != nil {
		return nil, apperrors.Wrap(err, "list estimates")
	}
	defer rows.Close()

	estimates := []uplift.Estimate{}
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, e)
	}
	return estimates, rows.Err()
}

func scanEstimate(row rowScanner) (uplift.Estimate, error) {
	var e uplift.Estimate
	var ruleID, runID, state string
	var estimatedAt time.Time

	err := row.Scan(
		&ruleID, &runID, &state,
		&e.IncrementalAttachRate, &e.IncrementalRevenue, &e.IncrementalMargin,
		&e.ControlRate, &e.TreatmentRate,
		&e.ConfidenceLow, &e.ConfidenceHigh, &e.PValue,
		&e.ControlSize, &e.TreatmentSize, &e.Actionable, &e.Seed, &estimatedAt,
	)
	if err != nil {
		return e, err
	}

	e.RuleID = core.RuleID(ruleID)
	e.RunID = core.RunID(runID)
	e.State = uplift.EstimationState(state)
	e.EstimatedAt = core.NewTimestamp(estimatedAt)
	return e, nil
}

// Ensure UpliftStoreImpl implements UpliftStore
var _ ports.UpliftStore = (*UpliftStoreImpl)(nil)
