package causal

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"profitlift/adapters/rng"
	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/rules"
	"profitlift/domain/run"
	"profitlift/domain/uplift"
)

// upliftFixture builds a deterministic transaction population: every
// transaction contains chai, and a fixed fraction also contains rusk.
// Hours, stores and day types vary by index so the feature extractor has
// signal to work with.
func upliftFixture(n int, attachEvery int) []basket.Transaction {
	txs := make([]basket.Transaction, 0, n)
	for i := 0; i < n; i++ {
		day := 1 + i%27
		hour := 7 + i%14
		ts := time.Date(2024, 6, day, hour, 15, 0, 0, time.UTC)

		items := []basket.LineItem{
			{ItemID: "chai", Quantity: 1, UnitPrice: 40, Category: "beverages"},
			{ItemID: core.ItemID(fmt.Sprintf("filler_%d", i%7)), Quantity: 1, UnitPrice: 25, Category: "grocery"},
		}
		if attachEvery > 0 && i%attachEvery == 0 {
			items = append(items, basket.LineItem{ItemID: "rusk", Quantity: 1, UnitPrice: 30, Category: "bakery"})
		}

		store := core.StoreID("S1")
		if i%3 == 0 {
			store = "S2"
		}
		txs = append(txs, basket.Transaction{
			ID:        core.TransactionID(fmt.Sprintf("T%05d", i)),
			Timestamp: core.NewTimestamp(ts),
			StoreID:   store,
			Items:     items,
		})
	}
	return txs
}

func chaiRuskRule() rules.ContextualRule {
	return rules.ContextualRule{
		ID:         core.NewRuleID(),
		Antecedent: basket.NewItemSet("chai"),
		Consequent: basket.NewItemSet("rusk"),
		Support:    0.3,
		Confidence: 0.5,
		Lift:       1.8,
		Context:    rules.Overall(),
	}
}

func TestEligibleBasketsRequireFullAntecedent(t *testing.T) {
	rule := rules.ContextualRule{
		Antecedent: basket.NewItemSet("chai", "sugar"),
		Consequent: basket.NewItemSet("rusk"),
	}
	txs := []basket.Transaction{
		{ID: "A", Items: []basket.LineItem{{ItemID: "chai"}, {ItemID: "sugar"}}},
		{ID: "B", Items: []basket.LineItem{{ItemID: "chai"}}},
		{ID: "C", Items: []basket.LineItem{{ItemID: "sugar"}, {ItemID: "chai"}, {ItemID: "rusk"}}},
	}

	eligible := EligibleBaskets(rule, txs)
	if len(eligible) != 2 {
		t.Fatalf("eligible = %d, want 2 (partial antecedent must not qualify)", len(eligible))
	}
	if eligible[0].ID != "A" || eligible[1].ID != "C" {
		t.Errorf("eligible order = %s, %s; want canonical ID order A, C", eligible[0].ID, eligible[1].ID)
	}
}

func TestSplitEligibleHalves(t *testing.T) {
	txs := upliftFixture(51, 2)
	stream, err := rng.New().SeededStream(context.Background(), "split_test", 7)
	if err != nil {
		t.Fatal(err)
	}

	groups := SplitEligible(txs, stream)
	if len(groups.Treatment) != 25 {
		t.Errorf("treatment size = %d, want 25", len(groups.Treatment))
	}
	if len(groups.Control) != 26 {
		t.Errorf("control size = %d, want 26 (odd leftover goes to control)", len(groups.Control))
	}

	seen := make(map[core.TransactionID]bool)
	for _, tx := range groups.Control {
		seen[tx.ID] = true
	}
	for _, tx := range groups.Treatment {
		if seen[tx.ID] {
			t.Fatalf("transaction %s appears in both groups", tx.ID)
		}
		seen[tx.ID] = true
	}
	if len(seen) != len(txs) {
		t.Errorf("groups cover %d transactions, want %d", len(seen), len(txs))
	}
}

func TestLogisticEstimatorDeterministic(t *testing.T) {
	features := [][]float64{
		{1, 0}, {2, 1}, {3, 0}, {4, 1}, {5, 0}, {6, 1}, {7, 0}, {8, 1},
	}
	outcomes := []float64{0, 0, 0, 0, 1, 1, 1, 1}

	first := &LogisticEstimator{}
	second := &LogisticEstimator{}
	if err := first.Fit(features, outcomes); err != nil {
		t.Fatal(err)
	}
	if err := second.Fit(features, outcomes); err != nil {
		t.Fatal(err)
	}

	probe := []float64{4.5, 1}
	p1, err := first.PredictProbability(probe)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := second.PredictProbability(probe)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Errorf("identical fits predict differently: %v vs %v", p1, p2)
	}
}

func TestLogisticEstimatorLearnsSeparation(t *testing.T) {
	var features [][]float64
	var outcomes []float64
	for i := 0; i < 40; i++ {
		v := float64(i)
		features = append(features, []float64{v})
		if i >= 20 {
			outcomes = append(outcomes, 1)
		} else {
			outcomes = append(outcomes, 0)
		}
	}

	model := &LogisticEstimator{}
	if err := model.Fit(features, outcomes); err != nil {
		t.Fatal(err)
	}

	low, err := model.PredictProbability([]float64{2})
	if err != nil {
		t.Fatal(err)
	}
	high, err := model.PredictProbability([]float64{38})
	if err != nil {
		t.Fatal(err)
	}
	if high <= low {
		t.Errorf("separable data not learned: P(38)=%f <= P(2)=%f", high, low)
	}
	if low < 0 || low > 1 || high < 0 || high > 1 {
		t.Errorf("probabilities out of range: %f, %f", low, high)
	}
}

func TestLogisticEstimatorValidation(t *testing.T) {
	model := &LogisticEstimator{}
	if _, err := model.PredictProbability([]float64{1}); err == nil {
		t.Error("predict before fit must fail")
	}
	if err := model.Fit(nil, nil); err == nil {
		t.Error("empty training set must fail")
	}
	if err := model.Fit([][]float64{{1, 2}, {3}}, []float64{0, 1}); err == nil {
		t.Error("ragged feature matrix must fail")
	}
	if err := model.Fit([][]float64{{1}, {2}}, []float64{0, 0.5}); err == nil {
		t.Error("non-binary outcome must fail")
	}
}

func TestEstimateRuleReproducible(t *testing.T) {
	params := run.DefaultParams()
	estimator := NewCausalEstimator(NewLogisticFactory(), rng.New(), params)
	txs := upliftFixture(120, 2)
	rule := chaiRuskRule()
	runID := core.RunID(core.ID("11111111-1111-1111-1111-111111111111"))

	first, err := estimator.EstimateRule(context.Background(), rule, txs, runID, 42)
	if err != nil {
		t.Fatal(err)
	}
	second, err := estimator.EstimateRule(context.Background(), rule, txs, runID, 42)
	if err != nil {
		t.Fatal(err)
	}

	if first.State != uplift.StateEstimated {
		t.Fatalf("state = %s, want estimated", first.State)
	}
	if first.ControlRate != second.ControlRate {
		t.Errorf("control rates differ: %v vs %v", first.ControlRate, second.ControlRate)
	}
	if first.TreatmentRate != second.TreatmentRate {
		t.Errorf("treatment rates differ: %v vs %v", first.TreatmentRate, second.TreatmentRate)
	}
	if first.IncrementalAttachRate != second.IncrementalAttachRate {
		t.Errorf("attach rates differ: %v vs %v", first.IncrementalAttachRate, second.IncrementalAttachRate)
	}
	if first.ConfidenceLow != second.ConfidenceLow || first.ConfidenceHigh != second.ConfidenceHigh {
		t.Errorf("confidence intervals differ: [%v,%v] vs [%v,%v]",
			first.ConfidenceLow, first.ConfidenceHigh, second.ConfidenceLow, second.ConfidenceHigh)
	}
	if first.PValue != second.PValue {
		t.Errorf("p-values differ: %v vs %v", first.PValue, second.PValue)
	}
}

func TestEstimateRuleSeedChangesSplit(t *testing.T) {
	params := run.DefaultParams()
	estimator := NewCausalEstimator(NewLogisticFactory(), rng.New(), params)
	txs := upliftFixture(120, 3)
	rule := chaiRuskRule()
	runID := core.RunID(core.ID("22222222-2222-2222-2222-222222222222"))

	first, err := estimator.EstimateRule(context.Background(), rule, txs, runID, 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := estimator.EstimateRule(context.Background(), rule, txs, runID, 99)
	if err != nil {
		t.Fatal(err)
	}

	// Different seeds shuffle different groups; at least one empirical
	// rate should move.
	if first.ControlRate == second.ControlRate && first.TreatmentRate == second.TreatmentRate &&
		first.IncrementalAttachRate == second.IncrementalAttachRate {
		t.Error("changing the seed left every estimate identical")
	}
}

func TestEstimateRuleInsufficientData(t *testing.T) {
	params := run.DefaultParams()
	estimator := NewCausalEstimator(NewLogisticFactory(), rng.New(), params)
	txs := upliftFixture(15, 2) // 15 eligible: 7/8 split, both below 20
	rule := chaiRuskRule()
	runID := core.NewRunID()

	estimate, err := estimator.EstimateRule(context.Background(), rule, txs, runID, 42)
	if err != nil {
		t.Fatalf("insufficient data must not be an error: %v", err)
	}
	if estimate.State != uplift.StateInsufficientData {
		t.Errorf("state = %s, want insufficient_data", estimate.State)
	}
	if estimate.SampleSize() != 15 {
		t.Errorf("sample size = %d, want 15", estimate.SampleSize())
	}
	if estimate.IncrementalAttachRate != 0 {
		t.Errorf("untrained estimate must not carry an attach rate, got %f", estimate.IncrementalAttachRate)
	}
}

func TestEstimateRuleRetainsNonActionable(t *testing.T) {
	params := run.DefaultParams()
	params.ActionableUplift = 0.9 // no realistic rule clears this
	estimator := NewCausalEstimator(NewLogisticFactory(), rng.New(), params)
	txs := upliftFixture(120, 2)
	rule := chaiRuskRule()

	estimate, err := estimator.EstimateRule(context.Background(), rule, txs, core.NewRunID(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if estimate.State != uplift.StateEstimated {
		t.Fatalf("state = %s, want estimated (non-actionable rules are retained)", estimate.State)
	}
	if estimate.Actionable {
		t.Error("estimate flagged actionable despite threshold")
	}
}

func TestEstimateRuleEmpiricalRates(t *testing.T) {
	params := run.DefaultParams()
	estimator := NewCausalEstimator(NewLogisticFactory(), rng.New(), params)
	txs := upliftFixture(100, 2) // every second basket attaches rusk
	rule := chaiRuskRule()

	estimate, err := estimator.EstimateRule(context.Background(), rule, txs, core.NewRunID(), 42)
	if err != nil {
		t.Fatal(err)
	}

	// The population attach rate is 0.5; both random halves must land
	// near it and inside [0,1].
	for name, rate := range map[string]float64{
		"control":   estimate.ControlRate,
		"treatment": estimate.TreatmentRate,
	} {
		if rate < 0 || rate > 1 {
			t.Errorf("%s rate %f outside [0,1]", name, rate)
		}
		if math.Abs(rate-0.5) > 0.25 {
			t.Errorf("%s rate %f implausibly far from population rate 0.5", name, rate)
		}
	}

	if estimate.ConfidenceLow > estimate.ConfidenceHigh {
		t.Errorf("confidence interval inverted: [%f, %f]", estimate.ConfidenceLow, estimate.ConfidenceHigh)
	}
	if estimate.PValue < 0 || estimate.PValue > 1 {
		t.Errorf("p-value %f outside [0,1]", estimate.PValue)
	}
}

func TestContextFeaturesVector(t *testing.T) {
	txs := upliftFixture(10, 2)
	extractor := NewContextFeatures(txs)

	names := extractor.Names()
	vector := extractor.Vector(txs[0])
	if len(vector) != len(names) {
		t.Fatalf("vector length %d, names length %d", len(vector), len(names))
	}

	// T00000: June 1 2024 (Saturday), hour 7, store S2, two items
	if vector[0] != 7 {
		t.Errorf("hour = %f, want 7", vector[0])
	}
	if vector[2] != 1 {
		t.Errorf("weekend flag = %f, want 1 for a Saturday", vector[2])
	}
	if vector[4] != 3 {
		t.Errorf("basket size = %f, want 3", vector[4])
	}
}
