package app

import (
	"context"
	"log"
	"time"

	"profitlift/adapters/causal"
	"profitlift/domain/core"
	"profitlift/domain/rules"
	"profitlift/domain/run"
	"profitlift/domain/uplift"
	apperrors "profitlift/internal/errors"
	"profitlift/ports"

	"golang.org/x/sync/semaphore"
)

// maxConcurrentEstimates bounds parallel T-learner training. Estimation is
// CPU-bound; more workers than this just thrash the scheduler.
const maxConcurrentEstimates = 5

// UpliftService estimates causal uplift for the top-ranked rules of a run
type UpliftService struct {
	source      ports.TransactionSource
	ruleStore   ports.RuleStore
	upliftStore ports.UpliftStore
	rng         ports.RNGPort
}

// UpliftRequest defines the inputs for a top-K estimation pass
type UpliftRequest struct {
	RunID  core.RunID
	Params run.Params
	Seed   int64

	// TopK overrides Params.TopK when positive
	TopK int

	// MaxParallel caps concurrent estimations; zero applies the default
	MaxParallel int64
}

// UpliftResult contains the estimates of one pass
type UpliftResult struct {
	RunID     core.RunID        `json:"run_id"`
	Estimates []uplift.Estimate `json:"estimates"`

	ActionableCount   int   `json:"actionable_count"`
	InsufficientCount int   `json:"insufficient_count"`
	FailedCount       int   `json:"failed_count"`
	RuntimeMs         int64 `json:"runtime_ms"`
}

// NewUpliftService creates an uplift service
func NewUpliftService(source ports.TransactionSource, ruleStore ports.RuleStore, upliftStore ports.UpliftStore, rng ports.RNGPort) *UpliftService {
	return &UpliftService{
		source:      source,
		ruleStore:   ruleStore,
		upliftStore: upliftStore,
		rng:         rng,
	}
}

// estimateOutcome is one rule's private estimation arena
type estimateOutcome struct {
	index    int
	estimate uplift.Estimate
	err      error
}

// EstimateTopK picks the K best-scored rules, estimates uplift for each in
// parallel, and persists every computed estimate, actionable or not.
func (s *UpliftService) EstimateTopK(ctx context.Context, req UpliftRequest) (*UpliftResult, error) {
	startTime := time.Now()

	topK := req.TopK
	if topK <= 0 {
		topK = req.Params.TopK
	}

	candidates, err := s.ruleStore.QueryRules(ctx, ports.RuleFilter{Limit: topK})
	if err != nil {
		return nil, apperrors.Wrap(err, "query top rules")
	}
	if len(candidates) == 0 {
		log.Printf("[Uplift] No rules to estimate for run %s", req.RunID)
		return &UpliftResult{RunID: req.RunID, Estimates: []uplift.Estimate{}}, nil
	}

	txs, err := s.source.Transactions(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "load transactions")
	}

	estimator := causal.NewCausalEstimator(causal.NewLogisticFactory(), s.rng, req.Params)

	parallel := req.MaxParallel
	if parallel <= 0 {
		parallel = maxConcurrentEstimates
	}
	sem := semaphore.NewWeighted(parallel)
	resultChan := make(chan estimateOutcome, len(candidates))
	for i, rule := range candidates {
		go func(rule rules.ContextualRule, idx int) {
			if err := sem.Acquire(ctx, 1); err != nil {
				resultChan <- estimateOutcome{index: idx, err: err}
				return
			}
			defer sem.Release(1)

			estimate, err := estimator.EstimateRule(ctx, rule, txs, req.RunID, req.Seed)
			resultChan <- estimateOutcome{index: idx, estimate: estimate, err: err}
		}(rule, i)
	}

	outcomes := make([]estimateOutcome, len(candidates))
	for range candidates {
		outcome := <-resultChan
		outcomes[outcome.index] = outcome
	}

	result := &UpliftResult{RunID: req.RunID, Estimates: make([]uplift.Estimate, 0, len(candidates))}
	for i, outcome := range outcomes {
		if outcome.err != nil {
			log.Printf("[Uplift] Estimation failed for rule %s: %v", candidates[i].ID, outcome.err)
			result.FailedCount++
			continue
		}
		if err := s.upliftStore.PutEstimate(ctx, outcome.estimate); err != nil {
			return nil, apperrors.PersistenceFailed("put uplift estimate", err)
		}
		result.Estimates = append(result.Estimates, outcome.estimate)
		switch outcome.estimate.State {
		case uplift.StateInsufficientData:
			result.InsufficientCount++
		case uplift.StateEstimated:
			if outcome.estimate.Actionable {
				result.ActionableCount++
			}
		}
	}

	result.RuntimeMs = time.Since(startTime).Milliseconds()
	log.Printf("[Uplift] Run %s: %d estimated (%d actionable, %d insufficient, %d failed) in %dms",
		req.RunID, len(result.Estimates), result.ActionableCount, result.InsufficientCount,
		result.FailedCount, result.RuntimeMs)
	return result, nil
}
