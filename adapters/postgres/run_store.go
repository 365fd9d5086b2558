package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"profitlift/domain/core"
	"profitlift/domain/run"
	apperrors "profitlift/internal/errors"
	"profitlift/ports"

	"github.com/jmoiron/sqlx"
)

// RunStoreImpl implements RunStore for PostgreSQL
type RunStoreImpl struct {
	db *sqlx.DB
}

// NewRunStore creates a new PostgreSQL run store
func NewRunStore(db *sqlx.DB) ports.RunStore {
	return &RunStoreImpl{db: db}
}

const manifestColumns = `
	run_id, data_hash, params, seed, code_version, fingerprint,
	transaction_count, context_count, rule_count, skipped_contexts,
	started_at, completed_at`

// PutManifest stores a completed manifest
func (s *RunStoreImpl) PutManifest(ctx context.Context, m *run.Manifest) error {
	if m == nil {
		return fmt.Errorf("%w: nil manifest", core.ErrInvalidInput)
	}
	paramsJSON, _ := json.Marshal(m.Params)

	var completedAt *time.Time
	if !m.CompletedAt.IsZero() {
		t := m.CompletedAt.Time()
		completedAt = &t
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mining_runs (
			run_id, data_hash, params, seed, code_version, fingerprint,
			transaction_count, context_count, rule_count, skipped_contexts,
			started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id) DO UPDATE SET
			transaction_count = EXCLUDED.transaction_count,
			context_count = EXCLUDED.context_count,
			rule_count = EXCLUDED.rule_count,
			skipped_contexts = EXCLUDED.skipped_contexts,
			completed_at = EXCLUDED.completed_at`,
		m.RunID.String(), m.DataHash.String(), paramsJSON, m.Seed, m.CodeVersion,
		core.Hash(m.Fingerprint).String(),
		m.TransactionCount, m.ContextCount, m.RuleCount, m.SkippedContexts,
		m.StartedAt.Time(), completedAt)

	if err != nil {
		return apperrors.Wrap(err, fmt.Sprintf("put manifest for run %s", m.RunID))
	}
	return nil
}

// GetManifest fetches by run id
func (s *RunStoreImpl) GetManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+manifestColumns+` FROM mining_runs WHERE run_id = $1`, runID.String())

	m, err := scanManifest(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "get manifest")
	}
	return &m, nil
}

// ListManifests returns the most recent manifests, newest first
func (s *RunStoreImpl) ListManifests(ctx context.Context, limit int) ([]run.Manifest, error) {
	query := `SELECT ` + manifestColumns + ` FROM mining_runs ORDER BY started_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "list manifests")
	}
	defer rows.Close()

	var manifests []run.Manifest
	for rows.Next() {
		m, err := scanManifest(rows)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, rows.Err()
}

func scanManifest(row rowScanner) (run.Manifest, error) {
	var m run.Manifest
	var runID, dataHash, fingerprint string
	var paramsJSON []byte
	var startedAt time.Time
	var completedAt sql.NullTime

	err := row.Scan(
		&runID, &dataHash, &paramsJSON, &m.Seed, &m.CodeVersion, &fingerprint,
		&m.TransactionCount, &m.ContextCount, &m.RuleCount, &m.SkippedContexts,
		&startedAt, &completedAt,
	)
	if err != nil {
		return m, err
	}

	m.RunID = core.RunID(runID)
	m.DataHash = core.Hash(dataHash)
	m.Fingerprint = core.ParamsFingerprint(fingerprint)
	m.StartedAt = core.NewTimestamp(startedAt)
	if completedAt.Valid {
		m.CompletedAt = core.NewTimestamp(completedAt.Time)
	}
	if err := json.Unmarshal(paramsJSON, &m.Params); err != nil {
		return m, fmt.Errorf("failed to unmarshal run params: %w", err)
	}
	return m, nil
}

// Ensure RunStoreImpl implements RunStore
var _ ports.RunStore = (*RunStoreImpl)(nil)
