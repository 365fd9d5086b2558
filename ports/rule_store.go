package ports

import (
	"context"

	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/rules"
)

// RuleFilter narrows rule queries. Nil fields are unconstrained. Results
// are always ordered by overall score descending.
type RuleFilter struct {
	StoreID  *core.StoreID
	TimeBin  *basket.TimeBin
	DayType  *basket.DayType
	Quarter  *basket.Quarter
	Festival *basket.FestivalPeriod

	MinLift  *float64
	MinScore *float64

	// ActionableOnly keeps rules whose uplift estimate exists and is
	// flagged actionable.
	ActionableOnly bool

	// Limit caps the result set; stores clamp it to [1, MaxRuleQueryLimit]
	// and apply DefaultRuleQueryLimit when zero.
	Limit int
}

// Query limit bounds shared by all store implementations
const (
	DefaultRuleQueryLimit = 50
	MaxRuleQueryLimit     = 500
)

// Clamp normalizes the limit into the allowed range
func (f RuleFilter) Clamp() RuleFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultRuleQueryLimit
	}
	if f.Limit > MaxRuleQueryLimit {
		f.Limit = MaxRuleQueryLimit
	}
	return f
}

// RuleStore persists mined rules. Each run replaces a context's rule set
// atomically; the store always answers queries from the current set.
type RuleStore interface {
	// ReplaceContextRules swaps the context's rule set for the given run's
	// output in one atomic operation (delete then insert).
	ReplaceContextRules(ctx context.Context, runID core.RunID, context rules.Context, rs []rules.ContextualRule) error

	// QueryRules returns current rules matching the filter, ordered by
	// overall score descending. An empty result is an empty slice.
	QueryRules(ctx context.Context, filter RuleFilter) ([]rules.ContextualRule, error)

	// GetRule fetches one rule by id; core.ErrRuleNotFound when absent
	GetRule(ctx context.Context, id core.RuleID) (*rules.ContextualRule, error)

	// ListContexts returns the distinct contexts currently holding rules,
	// in canonical key order.
	ListContexts(ctx context.Context) ([]rules.Context, error)
}
