package causal

import (
	"context"
	"log"
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"profitlift/adapters/ingest"
	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/rules"
	"profitlift/domain/run"
	"profitlift/domain/uplift"
	apperrors "profitlift/internal/errors"
	"profitlift/ports"
)

// Stage names keying the per-rule RNG streams. Split and bootstrap draw
// from separate streams so adding resamples never perturbs the split.
const (
	stageSplit     = "uplift_split"
	stageBootstrap = "uplift_bootstrap"
)

// CausalEstimator runs the two-model uplift procedure for single rules:
// select antecedent baskets, split them with a seeded shuffle, train one
// estimator per arm, and report the mean prediction difference together
// with empirical rates, bootstrap interval and economics.
type CausalEstimator struct {
	factory ports.EstimatorFactory
	rng     ports.RNGPort
	params  run.Params
}

func NewCausalEstimator(factory ports.EstimatorFactory, rng ports.RNGPort, params run.Params) *CausalEstimator {
	return &CausalEstimator{factory: factory, rng: rng, params: params}
}

// EstimateRule estimates causal uplift for one rule against the full
// transaction set. Too-small experiment arms terminate in the
// insufficient_data state with group sizes recorded; that estimate is
// still returned for persistence, never discarded. Only infrastructure
// problems return an error.
func (e *CausalEstimator) EstimateRule(ctx context.Context, rule rules.ContextualRule, txs []basket.Transaction, runID core.RunID, baseSeed int64) (uplift.Estimate, error) {
	estimate := uplift.Estimate{
		RuleID:      rule.ID,
		RunID:       runID,
		State:       uplift.StateNotEstimated,
		Seed:        baseSeed,
		EstimatedAt: core.Now(),
	}
	if err := transition(&estimate, uplift.StateEstimating); err != nil {
		return estimate, err
	}

	eligible := EligibleBaskets(rule, txs)

	splitStream, err := e.rng.Stream(ctx, runID.String(), stageSplit, rule.Key(), baseSeed)
	if err != nil {
		return estimate, apperrors.Wrap(err, "deriving split stream")
	}
	groups := SplitEligible(eligible, splitStream)
	estimate.ControlSize = len(groups.Control)
	estimate.TreatmentSize = len(groups.Treatment)

	if len(groups.Control) < e.params.MinGroupSize || len(groups.Treatment) < e.params.MinGroupSize {
		log.Printf("[Causal] Insufficient data for rule %s: control=%d treatment=%d, need %d per group",
			rule.Key(), len(groups.Control), len(groups.Treatment), e.params.MinGroupSize)
		if err := transition(&estimate, uplift.StateInsufficientData); err != nil {
			return estimate, err
		}
		return estimate, nil
	}

	controlOutcomes := Outcomes(rule, groups.Control)
	treatmentOutcomes := Outcomes(rule, groups.Treatment)

	// Headline rates are raw empirical means, never model outputs
	estimate.ControlRate = outcomeMean(controlOutcomes)
	estimate.TreatmentRate = outcomeMean(treatmentOutcomes)

	learner := NewTLearner(e.factory, NewContextFeatures(eligible))
	if err := learner.Fit(groups, controlOutcomes, treatmentOutcomes); err != nil {
		return estimate, apperrors.Wrapf(err, "training uplift models for rule %s", rule.Key())
	}
	attachRate, err := learner.MeanUplift(eligible)
	if err != nil {
		return estimate, apperrors.Wrapf(err, "predicting uplift for rule %s", rule.Key())
	}
	estimate.IncrementalAttachRate = attachRate

	avgPrice, avgMargin := e.consequentEconomics(rule, txs)
	estimate.IncrementalRevenue = attachRate * avgPrice
	estimate.IncrementalMargin = estimate.IncrementalRevenue * avgMargin

	bootstrapStream, err := e.rng.Stream(ctx, runID.String(), stageBootstrap, rule.Key(), baseSeed)
	if err != nil {
		return estimate, apperrors.Wrap(err, "deriving bootstrap stream")
	}
	estimate.ConfidenceLow, estimate.ConfidenceHigh = bootstrapInterval(controlOutcomes, treatmentOutcomes, e.params.BootstrapResamples, bootstrapStream)
	estimate.PValue = twoProportionPValue(controlOutcomes, treatmentOutcomes)

	estimate.Actionable = attachRate >= e.params.ActionableUplift
	if !estimate.Actionable {
		log.Printf("[Causal] Rule %s uplift %.4f below actionable threshold %.4f, retaining as non-actionable",
			rule.Key(), attachRate, e.params.ActionableUplift)
	}

	if err := transition(&estimate, uplift.StateEstimated); err != nil {
		return estimate, err
	}
	return estimate, nil
}

// transition moves the estimate through its state machine, failing loudly
// on an illegal edge
func transition(estimate *uplift.Estimate, to uplift.EstimationState) error {
	if !uplift.CanTransition(estimate.State, to) {
		return apperrors.InternalError("illegal estimation state transition " + string(estimate.State) + " -> " + string(to))
	}
	estimate.State = to
	return nil
}

// consequentEconomics averages unit price and margin over every line item
// selling one of the consequent items, with the same margin fallback chain
// the profit score uses. No matching lines yield zero price, so revenue
// degrades to zero instead of failing.
func (e *CausalEstimator) consequentEconomics(rule rules.ContextualRule, txs []basket.Transaction) (float64, float64) {
	var prices, margins []float64
	for _, tx := range txs {
		for _, line := range tx.Items {
			if !rule.Consequent.Contains(line.ItemID) {
				continue
			}
			prices = append(prices, line.UnitPrice)
			switch {
			case line.MarginPct != nil:
				margins = append(margins, *line.MarginPct)
			default:
				if margin, ok := ingest.LookupCategoryMargin(line.Category); ok {
					margins = append(margins, margin)
				} else {
					margins = append(margins, e.params.DefaultMarginPct)
				}
			}
		}
	}
	if len(prices) == 0 {
		return 0, e.params.DefaultMarginPct
	}
	avgPrice, _ := stats.Mean(prices)
	avgMargin, _ := stats.Mean(margins)
	return avgPrice, avgMargin
}

// bootstrapInterval resamples both outcome vectors with replacement and
// returns the 2.5th and 97.5th percentiles of the rate difference
func bootstrapInterval(control, treatment []float64, resamples int, rng *rand.Rand) (float64, float64) {
	if resamples < 1 || len(control) == 0 || len(treatment) == 0 {
		return 0, 0
	}
	diffs := make([]float64, resamples)
	for i := 0; i < resamples; i++ {
		diffs[i] = resampleMean(treatment, rng) - resampleMean(control, rng)
	}
	low, err := stats.Percentile(diffs, 2.5)
	if err != nil {
		return 0, 0
	}
	high, err := stats.Percentile(diffs, 97.5)
	if err != nil {
		return 0, 0
	}
	return low, high
}

func resampleMean(outcomes []float64, rng *rand.Rand) float64 {
	sum := 0.0
	for range outcomes {
		sum += outcomes[rng.Intn(len(outcomes))]
	}
	return sum / float64(len(outcomes))
}

// twoProportionPValue is the two-sided two-proportion z-test for the
// difference between treatment and control attach rates
func twoProportionPValue(control, treatment []float64) float64 {
	n1, n2 := float64(len(control)), float64(len(treatment))
	if n1 == 0 || n2 == 0 {
		return 1
	}
	p1, p2 := outcomeMean(control), outcomeMean(treatment)
	pooled := (p1*n1 + p2*n2) / (n1 + n2)
	if pooled <= 0 || pooled >= 1 {
		return 1
	}
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	z := math.Abs(p2-p1) / se
	p := 2 * (1 - distuv.UnitNormal.CDF(z))
	if p > 1 {
		return 1
	}
	return p
}

func outcomeMean(outcomes []float64) float64 {
	mean, err := stats.Mean(outcomes)
	if err != nil {
		return 0
	}
	return mean
}
