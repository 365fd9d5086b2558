package ports

import (
	"context"

	"profitlift/domain/core"
	"profitlift/domain/run"
	"profitlift/domain/uplift"
)

// UpliftStore persists causal estimates keyed one-to-one by rule. Estimates
// are upserted, never deleted by the pipeline: auditability requires that a
// computed estimate survives even when flagged non-actionable.
type UpliftStore interface {
	// PutEstimate inserts or replaces the estimate for its rule
	PutEstimate(ctx context.Context, e uplift.Estimate) error

	// GetEstimate fetches by rule id; core.ErrUpliftNotFound when absent
	GetEstimate(ctx context.Context, ruleID core.RuleID) (*uplift.Estimate, error)

	// ListEstimates returns all estimates produced by one run
	ListEstimates(ctx context.Context, runID core.RunID) ([]uplift.Estimate, error)
}

// RunStore persists run manifests for replay and audit
type RunStore interface {
	// PutManifest stores a completed manifest
	PutManifest(ctx context.Context, m *run.Manifest) error

	// GetManifest fetches by run id; core.ErrRunNotFound when absent
	GetManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error)

	// ListManifests returns the most recent manifests, newest first
	ListManifests(ctx context.Context, limit int) ([]run.Manifest, error)
}
