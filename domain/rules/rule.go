package rules

import (
	"fmt"
	"sort"

	"profitlift/domain/basket"
	"profitlift/domain/core"
)

// ContextualRule is one candidate bundle rule mined within a Context.
// Support, Confidence and Lift are set by the miner; the score fields stay
// nil until the corresponding scorer has run.
type ContextualRule struct {
	ID         core.RuleID    `json:"id"`
	Antecedent basket.ItemSet `json:"antecedent"`
	Consequent basket.ItemSet `json:"consequent"`
	Support    float64        `json:"support"`
	Confidence float64        `json:"confidence"`
	Lift       float64        `json:"lift"`
	Context    Context        `json:"context"`

	ProfitScore    *float64 `json:"profit_score,omitempty"`
	DiversityScore *float64 `json:"diversity_score,omitempty"`
	OverallScore   *float64 `json:"overall_score,omitempty"`
}

// Key uniquely identifies a rule within a run: one rule per
// (antecedent, consequent, context) triple.
func (r ContextualRule) Key() string {
	return r.Antecedent.Key() + ">" + r.Consequent.Key() + "@" + r.Context.Key()
}

// Items returns antecedent ∪ consequent
func (r ContextualRule) Items() basket.ItemSet {
	return r.Antecedent.Union(r.Consequent)
}

// Validate enforces the structural rule invariants
func (r ContextualRule) Validate() error {
	if len(r.Antecedent) == 0 || len(r.Consequent) == 0 {
		return core.ErrEmptyItemSet
	}
	if r.Antecedent.Intersects(r.Consequent) {
		return core.ErrOverlappingItemSets
	}
	if r.Support < 0 || r.Support > 1 {
		return fmt.Errorf("%w: support %f outside [0,1]", core.ErrInvalidRule, r.Support)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f outside [0,1]", core.ErrInvalidRule, r.Confidence)
	}
	if r.Lift < 0 {
		return fmt.Errorf("%w: lift %f negative", core.ErrInvalidRule, r.Lift)
	}
	return nil
}

// String renders the rule in arrow form for logs
func (r ContextualRule) String() string {
	return fmt.Sprintf("{%s} -> {%s} [%s]", r.Antecedent.Key(), r.Consequent.Key(), r.Context.Key())
}

// MergeDuplicates collapses rules sharing a Key. The higher-support rule
// wins; scores carry over from the winner. Input order is otherwise kept.
func MergeDuplicates(in []ContextualRule) []ContextualRule {
	if len(in) < 2 {
		return in
	}
	index := make(map[string]int, len(in))
	out := make([]ContextualRule, 0, len(in))
	for _, r := range in {
		key := r.Key()
		if at, seen := index[key]; seen {
			if r.Support > out[at].Support {
				out[at] = r
			}
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

// SortByOverallScore orders rules by overall score descending, breaking
// ties by lift, then key for stable output. Unscored rules sink to the end.
func SortByOverallScore(in []ContextualRule) {
	sort.SliceStable(in, func(i, j int) bool {
		si, sj := scoreOrZero(in[i].OverallScore), scoreOrZero(in[j].OverallScore)
		if si != sj {
			return si > sj
		}
		if in[i].Lift != in[j].Lift {
			return in[i].Lift > in[j].Lift
		}
		return in[i].Key() < in[j].Key()
	})
}

func scoreOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Float64Ptr is a small helper for the nullable score fields
func Float64Ptr(v float64) *float64 {
	return &v
}
