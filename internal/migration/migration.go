package migration

import (
	"context"

	"profitlift/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createItemsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create items table")
	}

	if err := r.createTransactionsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create transactions table")
	}

	if err := r.createTransactionItemsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create transaction_items table")
	}

	if err := r.createMiningRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create mining_runs table")
	}

	if err := r.createAssociationRulesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create association_rules table")
	}

	if err := r.createUpliftResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create uplift_results table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createItemsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL DEFAULT '',
			last_unit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			margin_pct DOUBLE PRECISION,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createTransactionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			ts TIMESTAMP WITH TIME ZONE NOT NULL,
			store_id TEXT NOT NULL,
			customer_hash TEXT NOT NULL DEFAULT '',
			discount_flag BOOLEAN NOT NULL DEFAULT false,
			time_bin TEXT NOT NULL DEFAULT '',
			day_type TEXT NOT NULL DEFAULT '',
			quarter TEXT NOT NULL DEFAULT '',
			festival TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createTransactionItemsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transaction_items (
			transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
			item_id TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			unit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			margin_pct DOUBLE PRECISION,
			PRIMARY KEY (transaction_id, item_id)
		)
	`)
	return err
}

func (r *MigrationRunner) createMiningRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS mining_runs (
			run_id UUID PRIMARY KEY,
			data_hash TEXT NOT NULL,
			params JSONB NOT NULL,
			seed BIGINT NOT NULL DEFAULT 0,
			code_version TEXT NOT NULL DEFAULT '',
			fingerprint TEXT NOT NULL DEFAULT '',
			transaction_count INTEGER NOT NULL DEFAULT 0,
			context_count INTEGER NOT NULL DEFAULT 0,
			rule_count INTEGER NOT NULL DEFAULT 0,
			skipped_contexts INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMP WITH TIME ZONE
		)
	`)
	return err
}

func (r *MigrationRunner) createAssociationRulesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS association_rules (
			id UUID PRIMARY KEY,
			run_id UUID NOT NULL,
			context_key TEXT NOT NULL,
			store_id TEXT NOT NULL DEFAULT '',
			time_bin TEXT NOT NULL DEFAULT '',
			day_type TEXT NOT NULL DEFAULT '',
			quarter TEXT NOT NULL DEFAULT '',
			festival TEXT NOT NULL DEFAULT '',
			antecedent JSONB NOT NULL,
			consequent JSONB NOT NULL,
			support DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			lift DOUBLE PRECISION NOT NULL,
			profit_score DOUBLE PRECISION,
			diversity_score DOUBLE PRECISION,
			overall_score DOUBLE PRECISION,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createUpliftResultsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS uplift_results (
			rule_id UUID PRIMARY KEY,
			run_id UUID NOT NULL,
			state TEXT NOT NULL,
			incremental_attach_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			incremental_revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
			incremental_margin DOUBLE PRECISION NOT NULL DEFAULT 0,
			control_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			treatment_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			confidence_low DOUBLE PRECISION NOT NULL DEFAULT 0,
			confidence_high DOUBLE PRECISION NOT NULL DEFAULT 0,
			p_value DOUBLE PRECISION NOT NULL DEFAULT 1,
			control_size INTEGER NOT NULL DEFAULT 0,
			treatment_size INTEGER NOT NULL DEFAULT 0,
			actionable BOOLEAN NOT NULL DEFAULT false,
			seed BIGINT NOT NULL DEFAULT 0,
			estimated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_transactions_store ON transactions(store_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_ts ON transactions(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_items_item ON transaction_items(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_context ON association_rules(context_key)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_run ON association_rules(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_score ON association_rules(overall_score DESC NULLS LAST)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_dimensions ON association_rules(store_id, time_bin, day_type)`,
		`CREATE INDEX IF NOT EXISTS idx_uplift_run ON uplift_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_uplift_actionable ON uplift_results(actionable) WHERE actionable`,
		`CREATE INDEX IF NOT EXISTS idx_mining_runs_started ON mining_runs(started_at DESC)`,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return err
		}
	}
	return nil
}
