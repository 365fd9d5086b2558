package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/rules"
	"profitlift/domain/run"
	"profitlift/domain/uplift"
	"profitlift/ports"
)

// Store is the in-memory implementation of every persistence port. It
// backs tests and the zero-configuration demo mode; the postgres adapters
// replace it in production wiring. One lock guards all maps - the pipeline
// writes in bulk after computation, so contention is not a concern.
type Store struct {
	mu sync.RWMutex

	rulesByContext map[rules.Context][]rules.ContextualRule
	rulesByID      map[core.RuleID]rules.ContextualRule
	estimates      map[core.RuleID]uplift.Estimate
	manifests      map[core.RunID]run.Manifest
	transactions   map[core.TransactionID]basket.Transaction
}

var (
	_ ports.RuleStore        = (*Store)(nil)
	_ ports.UpliftStore      = (*Store)(nil)
	_ ports.RunStore         = (*Store)(nil)
	_ ports.TransactionStore = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		rulesByContext: make(map[rules.Context][]rules.ContextualRule),
		rulesByID:      make(map[core.RuleID]rules.ContextualRule),
		estimates:      make(map[core.RuleID]uplift.Estimate),
		manifests:      make(map[core.RunID]run.Manifest),
		transactions:   make(map[core.TransactionID]basket.Transaction),
	}
}

// ReplaceContextRules swaps the context's rule set atomically
func (s *Store) ReplaceContextRules(_ context.Context, _ core.RunID, ruleCtx rules.Context, rs []rules.ContextualRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, old := range s.rulesByContext[ruleCtx] {
		delete(s.rulesByID, old.ID)
	}

	replacement := make([]rules.ContextualRule, len(rs))
	copy(replacement, rs)
	s.rulesByContext[ruleCtx] = replacement
	for _, rule := range replacement {
		s.rulesByID[rule.ID] = rule
	}
	return nil
}

// QueryRules filters the current rule set and orders by overall score
// descending
func (s *Store) QueryRules(_ context.Context, filter ports.RuleFilter) ([]rules.ContextualRule, error) {
	filter = filter.Clamp()

	s.mu.RLock()
	var matched []rules.ContextualRule
	for _, ctxRules := range s.rulesByContext {
		for _, rule := range ctxRules {
			if !s.matches(rule, filter) {
				continue
			}
			matched = append(matched, rule)
		}
	}
	s.mu.RUnlock()

	rules.SortByOverallScore(matched)
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	if matched == nil {
		matched = []rules.ContextualRule{}
	}
	return matched, nil
}

// matches applies the filter; caller holds at least the read lock
func (s *Store) matches(rule rules.ContextualRule, filter ports.RuleFilter) bool {
	if filter.StoreID != nil && rule.Context.StoreID != *filter.StoreID {
		return false
	}
	if filter.TimeBin != nil && rule.Context.TimeBin != *filter.TimeBin {
		return false
	}
	if filter.DayType != nil && rule.Context.DayType != *filter.DayType {
		return false
	}
	if filter.Quarter != nil && rule.Context.Quarter != *filter.Quarter {
		return false
	}
	if filter.Festival != nil && rule.Context.Festival != *filter.Festival {
		return false
	}
	if filter.MinLift != nil && rule.Lift < *filter.MinLift {
		return false
	}
	if filter.MinScore != nil {
		if rule.OverallScore == nil || *rule.OverallScore < *filter.MinScore {
			return false
		}
	}
	if filter.ActionableOnly {
		estimate, ok := s.estimates[rule.ID]
		if !ok || estimate.State != uplift.StateEstimated || !estimate.Actionable {
			return false
		}
	}
	return true
}

func (s *Store) GetRule(_ context.Context, id core.RuleID) (*rules.ContextualRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rulesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRuleNotFound, id)
	}
	return &rule, nil
}

func (s *Store) ListContexts(_ context.Context) ([]rules.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contexts := make([]rules.Context, 0, len(s.rulesByContext))
	for ctx, ctxRules := range s.rulesByContext {
		if len(ctxRules) == 0 {
			continue
		}
		contexts = append(contexts, ctx)
	}
	sort.Slice(contexts, func(i, j int) bool { return contexts[i].Key() < contexts[j].Key() })
	return contexts, nil
}

func (s *Store) PutEstimate(_ context.Context, e uplift.Estimate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimates[e.RuleID] = e
	return nil
}

func (s *Store) GetEstimate(_ context.Context, ruleID core.RuleID) (*uplift.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	estimate, ok := s.estimates[ruleID]
	if !ok {
		return nil, fmt.Errorf("%w: rule %s", core.ErrUpliftNotFound, ruleID)
	}
	return &estimate, nil
}

func (s *Store) ListEstimates(_ context.Context, runID core.RunID) ([]uplift.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	estimates := make([]uplift.Estimate, 0)
	for _, estimate := range s.estimates {
		if estimate.RunID == runID {
			estimates = append(estimates, estimate)
		}
	}
	sort.Slice(estimates, func(i, j int) bool { return estimates[i].RuleID < estimates[j].RuleID })
	return estimates, nil
}

func (s *Store) PutManifest(_ context.Context, m *run.Manifest) error {
	if m == nil {
		return fmt.Errorf("%w: nil manifest", core.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[m.RunID] = *m
	return nil
}

func (s *Store) GetManifest(_ context.Context, runID core.RunID) (*run.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	manifest, ok := s.manifests[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	return &manifest, nil
}

func (s *Store) ListManifests(_ context.Context, limit int) ([]run.Manifest, error) {
	s.mu.RLock()
	manifests := make([]run.Manifest, 0, len(s.manifests))
	for _, m := range s.manifests {
		manifests = append(manifests, m)
	}
	s.mu.RUnlock()

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].StartedAt.After(manifests[j].StartedAt) })
	if limit > 0 && len(manifests) > limit {
		manifests = manifests[:limit]
	}
	return manifests, nil
}

func (s *Store) SaveTransactions(_ context.Context, txs []basket.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		s.transactions[tx.ID] = tx
	}
	return nil
}

func (s *Store) Transactions(_ context.Context) ([]basket.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]basket.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		txs = append(txs, tx)
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID < txs[j].ID })
	return txs, nil
}

func (s *Store) CountTransactions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transactions), nil
}
