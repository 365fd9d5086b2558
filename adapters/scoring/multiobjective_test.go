package scoring

import (
	"math"
	"testing"

	"profitlift/domain/rules"
	"profitlift/domain/run"
	apperrors "profitlift/internal/errors"
)

func TestScorerRejectsBadWeights(t *testing.T) {
	weights := run.Weights{Lift: 0.5, Profit: 0.5, Diversity: 0.5, Confidence: 0.5}
	_, err := NewMultiObjectiveScorer(weights, 0.25)
	if err == nil {
		t.Fatal("expected configuration error for weights summing to 2.0")
	}
	if apperrors.GetCode(err) != apperrors.CodeConfigInvalid {
		t.Errorf("error code = %s, want %s", apperrors.GetCode(err), apperrors.CodeConfigInvalid)
	}
}

func TestScorerAcceptsWeightsWithinTolerance(t *testing.T) {
	weights := run.Weights{Lift: 0.30, Profit: 0.40, Diversity: 0.15, Confidence: 0.15 + 5e-7}
	if _, err := NewMultiObjectiveScorer(weights, 0.25); err != nil {
		t.Fatalf("weights within tolerance rejected: %v", err)
	}
}

func TestScoreContextPopulatesAllFields(t *testing.T) {
	scorer, err := NewMultiObjectiveScorer(run.DefaultWeights(), 0.25)
	if err != nil {
		t.Fatal(err)
	}

	ctxRules := []rules.ContextualRule{
		newRule([]string{"milk"}, []string{"bread"}, 0.8, 2.0, rules.Overall()),
		newRule([]string{"milk"}, []string{"cereal"}, 0.8, 1.2, rules.Overall()),
	}
	scored := scorer.ScoreContext(ctxRules, sampleTransactions())

	for _, rule := range scored {
		if rule.ProfitScore == nil || rule.DiversityScore == nil || rule.OverallScore == nil {
			t.Fatalf("rule %s has unpopulated scores", rule.Key())
		}
		if math.IsNaN(*rule.OverallScore) {
			t.Errorf("rule %s overall score is NaN", rule.Key())
		}
		if *rule.OverallScore < 0 || *rule.OverallScore > 1 {
			t.Errorf("rule %s overall score %f out of [0,1]", rule.Key(), *rule.OverallScore)
		}
	}
}

func TestScoreContextDegenerateVariance(t *testing.T) {
	scorer, err := NewMultiObjectiveScorer(run.DefaultWeights(), 0.25)
	if err != nil {
		t.Fatal(err)
	}

	// Identical lift everywhere: the min-max span is zero and must be
	// replaced by epsilon, never producing NaN.
	ctxRules := []rules.ContextualRule{
		newRule([]string{"milk"}, []string{"bread"}, 0.6, 1.5, rules.Overall()),
		newRule([]string{"eggs"}, []string{"jam"}, 0.7, 1.5, rules.Overall()),
	}
	scored := scorer.ScoreContext(ctxRules, sampleTransactions())

	for _, rule := range scored {
		if math.IsNaN(*rule.OverallScore) || math.IsInf(*rule.OverallScore, 0) {
			t.Errorf("degenerate variance produced non-finite score for %s", rule.Key())
		}
	}
}

func rankingOf(scored []rules.ContextualRule) []string {
	rules.SortByOverallScore(scored)
	keys := make([]string, len(scored))
	for i, r := range scored {
		keys[i] = r.Antecedent.Key() + ">" + r.Consequent.Key()
	}
	return keys
}

func TestRankingInvariantUnderAffineLiftRescale(t *testing.T) {
	scorer, err := NewMultiObjectiveScorer(run.DefaultWeights(), 0.25)
	if err != nil {
		t.Fatal(err)
	}
	txs := sampleTransactions()

	build := func(lifts [3]float64) []rules.ContextualRule {
		return []rules.ContextualRule{
			newRule([]string{"milk"}, []string{"bread"}, 0.9, lifts[0], rules.Overall()),
			newRule([]string{"eggs"}, []string{"butter"}, 0.6, lifts[1], rules.Overall()),
			newRule([]string{"jam"}, []string{"cereal"}, 0.3, lifts[2], rules.Overall()),
		}
	}

	base := rankingOf(scorer.ScoreContext(build([3]float64{1.2, 2.0, 5.0}), txs))
	rescaled := rankingOf(scorer.ScoreContext(build([3]float64{1.2*3 + 7, 2.0*3 + 7, 5.0*3 + 7}), txs))

	for i := range base {
		if base[i] != rescaled[i] {
			t.Fatalf("ranking changed under affine lift rescale: %v vs %v", base, rescaled)
		}
	}
}

func TestRankingInvariantUnderUniformPriceScale(t *testing.T) {
	scorer, err := NewMultiObjectiveScorer(run.DefaultWeights(), 0.25)
	if err != nil {
		t.Fatal(err)
	}

	build := func() []rules.ContextualRule {
		return []rules.ContextualRule{
			newRule([]string{"milk"}, []string{"bread"}, 0.9, 1.4, rules.Overall()),
			newRule([]string{"eggs"}, []string{"butter"}, 0.6, 2.1, rules.Overall()),
			newRule([]string{"jam"}, []string{"cereal"}, 0.3, 3.0, rules.Overall()),
		}
	}

	scaled := sampleTransactions()
	for i := range scaled {
		for j := range scaled[i].Items {
			scaled[i].Items[j].UnitPrice *= 40
		}
	}

	base := rankingOf(scorer.ScoreContext(build(), sampleTransactions()))
	rescaled := rankingOf(scorer.ScoreContext(build(), scaled))

	for i := range base {
		if base[i] != rescaled[i] {
			t.Fatalf("ranking changed under uniform price scale: %v vs %v", base, rescaled)
		}
	}
}

func TestScoreAllSortsGloballyButNormalizesPerContext(t *testing.T) {
	scorer, err := NewMultiObjectiveScorer(run.DefaultWeights(), 0.25)
	if err != nil {
		t.Fatal(err)
	}

	morning := rules.Context{TimeBin: "morning"}
	evening := rules.Context{TimeBin: "evening"}
	all := []rules.ContextualRule{
		newRule([]string{"milk"}, []string{"bread"}, 0.9, 50.0, morning),
		newRule([]string{"eggs"}, []string{"bread"}, 0.2, 10.0, morning),
		newRule([]string{"tea"}, []string{"rusk"}, 0.9, 1.5, evening),
		newRule([]string{"jam"}, []string{"rusk"}, 0.2, 1.1, evening),
	}

	scored := scorer.ScoreAll(all, nil)
	if len(scored) != 4 {
		t.Fatalf("got %d scored rules, want 4", len(scored))
	}

	for i := 1; i < len(scored); i++ {
		if *scored[i-1].OverallScore < *scored[i].OverallScore {
			t.Errorf("global ordering not descending at position %d", i)
		}
	}

	// Both context winners carry the same normalized lift of 1.0, so the
	// evening leader must not be starved by morning's larger raw lifts.
	var morningTop, eveningTop float64
	for _, rule := range scored {
		if rule.Context == morning && *rule.OverallScore > morningTop {
			morningTop = *rule.OverallScore
		}
		if rule.Context == evening && *rule.OverallScore > eveningTop {
			eveningTop = *rule.OverallScore
		}
	}
	if math.Abs(morningTop-eveningTop) > 1e-9 {
		t.Errorf("per-context normalization broken: morning top %f vs evening top %f", morningTop, eveningTop)
	}
}
