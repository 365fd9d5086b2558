package app

import (
	"context"
	"errors"
	"log"
	"time"

	"profitlift/adapters/ingest"
	"profitlift/adapters/mining"
	"profitlift/adapters/scoring"
	"profitlift/domain/core"
	"profitlift/domain/rules"
	"profitlift/domain/run"
	"profitlift/internal"
	apperrors "profitlift/internal/errors"
	"profitlift/ports"
)

// PipelineService runs the full mining pipeline: segment the transaction
// history into contexts, mine and score each context in parallel, persist
// the merged rule set and the run manifest.
type PipelineService struct {
	source      ports.TransactionSource
	ruleStore   ports.RuleStore
	runStore    ports.RunStore
	codeVersion string
	logger      *internal.Logger
}

// PipelineRequest defines the inputs for one deterministic mining run
type PipelineRequest struct {
	Params run.Params
	Seed   int64

	// AutoDataMode rescales thresholds from the dataset size before mining
	AutoDataMode bool

	// RunID is optional; a fresh id is generated when empty
	RunID core.RunID
}

// PipelineResult contains the complete output of a mining run
type PipelineResult struct {
	RunID    core.RunID            `json:"run_id"`
	Manifest *run.Manifest         `json:"manifest"`
	Rules    []rules.ContextualRule `json:"rules"`

	ContextCount    int   `json:"context_count"`
	SkippedContexts int   `json:"skipped_contexts"`
	RuleCount       int   `json:"rule_count"`
	RuntimeMs       int64 `json:"runtime_ms"`
}

// NewPipelineService creates a pipeline service
func NewPipelineService(source ports.TransactionSource, ruleStore ports.RuleStore, runStore ports.RunStore, codeVersion string) *PipelineService {
	return &PipelineService{
		source:      source,
		ruleStore:   ruleStore,
		runStore:    runStore,
		codeVersion: codeVersion,
		logger:      internal.NewDefaultLogger(),
	}
}

// contextOutcome is one context's private mining arena. Workers never share
// rule collections; merging happens only after every context has finished.
type contextOutcome struct {
	index   int
	segment mining.Segment
	rules   []rules.ContextualRule
	skipped bool
	err     error
}

// Run executes the pipeline end to end
func (s *PipelineService) Run(ctx context.Context, req PipelineRequest) (*PipelineResult, error) {
	startTime := time.Now()

	runID := req.RunID
	if core.ID(runID).IsEmpty() {
		runID = core.NewRunID()
	}

	txs, err := s.source.Transactions(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "load transactions")
	}
	if len(txs) == 0 {
		return nil, apperrors.DataInsufficient("transaction history", 0, 1)
	}

	params := req.Params
	if req.AutoDataMode {
		mode := ingest.DetectDataMode(len(txs))
		params = mode.Apply(params)
		log.Printf("[Pipeline] Data mode %s for %d transactions: min_support=%.4f min_context_rows=%d",
			mode.Mode, len(txs), params.MinSupport, params.MinContextRows)
	}

	scorer, err := scoring.NewMultiObjectiveScorer(params.Weights, params.DefaultMarginPct)
	if err != nil {
		return nil, err
	}
	miner := mining.NewContextMiner(params)

	ids := make([]core.TransactionID, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	manifest := run.NewManifest(runID, run.ComputeDataHash(ids), params, req.Seed, s.codeVersion)
	manifest.TransactionCount = len(txs)

	segments := mining.NewSegmenter(params.MinContextRows, params.ContextDepth).Segment(txs)
	log.Printf("[Pipeline] Run %s: %d transactions, %d contexts", runID, len(txs), len(segments))

	resultChan := make(chan contextOutcome, len(segments))
	for i, seg := range segments {
		go func(seg mining.Segment, idx int) {
			resultChan <- s.mineContext(ctx, miner, scorer, seg, idx)
		}(seg, i)
	}

	outcomes := make([]contextOutcome, len(segments))
	for range segments {
		outcome := <-resultChan
		outcomes[outcome.index] = outcome
	}

	var merged []rules.ContextualRule
	skipped := 0
	for _, outcome := range outcomes {
		if outcome.err != nil || outcome.skipped {
			skipped++
			continue
		}
		merged = append(merged, outcome.rules...)
	}
	rules.SortByOverallScore(merged)

	for _, outcome := range outcomes {
		if outcome.err != nil || outcome.skipped {
			continue
		}
		if err := s.ruleStore.ReplaceContextRules(ctx, runID, outcome.segment.Context, outcome.rules); err != nil {
			return nil, apperrors.PersistenceFailed("replace context rules", err)
		}
	}

	manifest.ContextCount = len(segments) - skipped
	manifest.SkippedContexts = skipped
	manifest.RuleCount = len(merged)
	manifest.CompletedAt = core.Now()
	if err := s.runStore.PutManifest(ctx, manifest); err != nil {
		return nil, apperrors.PersistenceFailed("put run manifest", err)
	}

	log.Printf("[Pipeline] Run %s complete: %d rules across %d contexts (%d skipped) in %dms",
		runID, len(merged), manifest.ContextCount, skipped, time.Since(startTime).Milliseconds())

	return &PipelineResult{
		RunID:           runID,
		Manifest:        manifest,
		Rules:           merged,
		ContextCount:    manifest.ContextCount,
		SkippedContexts: skipped,
		RuleCount:       len(merged),
		RuntimeMs:       time.Since(startTime).Milliseconds(),
	}, nil
}

// mineContext mines and scores one context. Transient failures are retried
// wholesale once; a context that fails twice is dropped from the run, it is
// never resumed from partial state.
func (s *PipelineService) mineContext(ctx context.Context, miner *mining.ContextMiner, scorer *scoring.MultiObjectiveScorer, seg mining.Segment, idx int) contextOutcome {
	outcome := contextOutcome{index: idx, segment: seg}

	mined, err := miner.Mine(seg.Context, seg.Transactions)
	if err != nil && !errors.Is(err, core.ErrInsufficientData) && apperrors.GetCode(err) != apperrors.CodeDataInsufficient {
		log.Printf("[Pipeline] Context %s failed, retrying once: %v", seg.Context.Key(), err)
		mined, err = miner.Mine(seg.Context, seg.Transactions)
	}
	if err != nil {
		if apperrors.GetCode(err) == apperrors.CodeDataInsufficient || errors.Is(err, core.ErrInsufficientData) {
			log.Printf("[Pipeline] Skipping context %s: %v", seg.Context.Key(), err)
			outcome.skipped = true
			return outcome
		}
		log.Printf("[Pipeline] Context %s failed twice, dropping: %v", seg.Context.Key(), err)
		outcome.err = apperrors.MiningFailed(seg.Context.Key(), err)
		return outcome
	}

	outcome.rules = scorer.ScoreContext(mined, seg.Transactions)
	s.logger.Debug("Context %s: %d rules from %d transactions", seg.Context.Key(), len(outcome.rules), len(seg.Transactions))
	return outcome
}
