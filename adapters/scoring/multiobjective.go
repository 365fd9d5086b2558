package scoring

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"profitlift/domain/basket"
	"profitlift/domain/rules"
	"profitlift/domain/run"
	apperrors "profitlift/internal/errors"
)

// normalizationEpsilon replaces a zero min-max range so degenerate metric
// groups normalize to 0 instead of NaN
const normalizationEpsilon = 1e-9

// weightTolerance bounds how far the weight vector may drift from 1.0
const weightTolerance = 1e-6

// MultiObjectiveScorer combines lift, profit, diversity and confidence
// into one overall score. Lift and profit are min-max normalized within
// each context group only; normalizing across contexts would starve
// contexts whose rules run to intrinsically lower magnitudes. Diversity
// and confidence are already bounded and enter as-is.
type MultiObjectiveScorer struct {
	weights   run.Weights
	profit    *ProfitCalculator
	diversity *DiversityScorer
}

// NewMultiObjectiveScorer validates the weight vector and builds the
// scorer. Weights not summing to 1 are a fatal configuration error,
// never silently renormalized.
func NewMultiObjectiveScorer(weights run.Weights, defaultMarginPct float64) (*MultiObjectiveScorer, error) {
	if math.Abs(weights.Sum()-1.0) > weightTolerance {
		return nil, apperrors.ConfigInvalid(fmt.Sprintf("scoring weights must sum to 1.0, got %.6f", weights.Sum()))
	}
	return &MultiObjectiveScorer{
		weights:   weights,
		profit:    NewProfitCalculator(defaultMarginPct),
		diversity: NewDiversityScorer(),
	}, nil
}

// ScoreContext scores one context's rules against that context's
// transactions and returns them with profit, diversity and overall scores
// populated. All rules passed in must share one context.
func (s *MultiObjectiveScorer) ScoreContext(ctxRules []rules.ContextualRule, txs []basket.Transaction) []rules.ContextualRule {
	if len(ctxRules) == 0 {
		return ctxRules
	}

	for i := range ctxRules {
		ctxRules[i].ProfitScore = rules.Float64Ptr(s.profit.RuleProfit(ctxRules[i], txs))
	}
	for i := range ctxRules {
		ctxRules[i].DiversityScore = rules.Float64Ptr(s.diversity.RuleDiversity(ctxRules[i], ctxRules))
	}

	liftMin, liftMax := metricRange(collect(ctxRules, func(r rules.ContextualRule) float64 { return r.Lift }))
	profitMin, profitMax := metricRange(collect(ctxRules, func(r rules.ContextualRule) float64 { return *r.ProfitScore }))

	for i := range ctxRules {
		normLift := normalize(ctxRules[i].Lift, liftMin, liftMax)
		normProfit := normalize(*ctxRules[i].ProfitScore, profitMin, profitMax)
		overall := s.weights.Lift*normLift +
			s.weights.Profit*normProfit +
			s.weights.Diversity**ctxRules[i].DiversityScore +
			s.weights.Confidence*ctxRules[i].Confidence
		ctxRules[i].OverallScore = rules.Float64Ptr(overall)
	}

	return ctxRules
}

// ScoreAll groups rules by context, scores each group against the
// transactions matching its context, and returns everything sorted by
// overall score descending. The score itself is always relative to
// same-context peers even though the final ordering is global.
func (s *MultiObjectiveScorer) ScoreAll(all []rules.ContextualRule, txs []basket.Transaction) []rules.ContextualRule {
	groups := make(map[rules.Context][]rules.ContextualRule)
	var order []rules.Context
	for _, rule := range all {
		if _, seen := groups[rule.Context]; !seen {
			order = append(order, rule.Context)
		}
		groups[rule.Context] = append(groups[rule.Context], rule)
	}

	scored := make([]rules.ContextualRule, 0, len(all))
	for _, ctx := range order {
		ctxTxs := txs
		if !ctx.IsOverall() {
			ctxTxs = matchingTransactions(ctx, txs)
		}
		scored = append(scored, s.ScoreContext(groups[ctx], ctxTxs)...)
	}

	rules.SortByOverallScore(scored)
	return scored
}

func matchingTransactions(ctx rules.Context, txs []basket.Transaction) []basket.Transaction {
	matched := make([]basket.Transaction, 0)
	for _, tx := range txs {
		if ctx.Matches(tx) {
			matched = append(matched, tx)
		}
	}
	return matched
}

func collect(ctxRules []rules.ContextualRule, metric func(rules.ContextualRule) float64) []float64 {
	values := make([]float64, len(ctxRules))
	for i, r := range ctxRules {
		values[i] = metric(r)
	}
	return values
}

func metricRange(values []float64) (float64, float64) {
	lo, err := stats.Min(values)
	if err != nil {
		return 0, 0
	}
	hi, err := stats.Max(values)
	if err != nil {
		return 0, 0
	}
	return lo, hi
}

func normalize(v, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		span = normalizationEpsilon
	}
	return (v - lo) / span
}
