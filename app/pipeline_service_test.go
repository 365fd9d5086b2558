package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"profitlift/adapters/memory"
	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/run"
	apperrors "profitlift/internal/errors"
	"profitlift/ports"
)

// pipelineFixture builds transactions with a strong milk/bread pattern in
// the morning and noise elsewhere, enough rows to clear every threshold.
func pipelineFixture(n int) []basket.Transaction {
	txs := make([]basket.Transaction, 0, n)
	for i := 0; i < n; i++ {
		hour := 8
		if i%3 == 0 {
			hour = 18
		}
		day := 1 + i%28
		ts := time.Date(2024, 7, day, hour, 30, 0, 0, time.UTC)

		items := []basket.LineItem{
			{ItemID: "milk", Quantity: 1, UnitPrice: 3.5, Category: "dairy"},
		}
		if i%2 == 0 {
			items = append(items, basket.LineItem{ItemID: "bread", Quantity: 1, UnitPrice: 2.0, Category: "bakery"})
		}
		items = append(items, basket.LineItem{
			ItemID: core.ItemID(fmt.Sprintf("noise_%d", i%5)), Quantity: 1, UnitPrice: 1.0, Category: "grocery",
		})

		bin := basket.TimeBinMorning
		if hour == 18 {
			bin = basket.TimeBinEvening
		}
		dayType := basket.DayTypeWeekday
		if ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday {
			dayType = basket.DayTypeWeekend
		}
		txs = append(txs, basket.Transaction{
			ID:        core.TransactionID(fmt.Sprintf("P%05d", i)),
			Timestamp: core.NewTimestamp(ts),
			StoreID:   "S1",
			Items:     items,
			TimeBin:   bin,
			DayType:   dayType,
			Quarter:   basket.QuarterQ3,
		})
	}
	return txs
}

func pipelineParams() run.Params {
	params := run.DefaultParams()
	params.MinSupport = 0.10
	params.MinConfidence = 0.30
	params.MinContextRows = 20
	params.MinContextBaskets = 5
	return params
}

func newPipelineService(t *testing.T, txs []basket.Transaction) (*PipelineService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	if err := store.SaveTransactions(context.Background(), txs); err != nil {
		t.Fatal(err)
	}
	return NewPipelineService(store, store, store, "test"), store
}

func TestPipelineRunPersistsRulesAndManifest(t *testing.T) {
	svc, store := newPipelineService(t, pipelineFixture(120))
	ctx := context.Background()

	result, err := svc.Run(ctx, PipelineRequest{Params: pipelineParams(), Seed: 42})
	if err != nil {
		t.Fatalf("pipeline run failed: %v", err)
	}
	if result.RuleCount == 0 {
		t.Fatal("expected rules from planted milk/bread pattern")
	}

	manifest, err := store.GetManifest(ctx, result.RunID)
	if err != nil {
		t.Fatalf("manifest not persisted: %v", err)
	}
	if manifest.TransactionCount != 120 {
		t.Errorf("manifest transaction count = %d, want 120", manifest.TransactionCount)
	}
	if manifest.RuleCount != result.RuleCount {
		t.Errorf("manifest rule count = %d, result says %d", manifest.RuleCount, result.RuleCount)
	}
	if manifest.CompletedAt.IsZero() {
		t.Error("manifest completed_at not set")
	}
	if core.Hash(manifest.Fingerprint).IsEmpty() {
		t.Error("manifest fingerprint not set")
	}

	stored, err := store.QueryRules(ctx, ports.RuleFilter{Limit: 500})
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) == 0 {
		t.Fatal("no rules queryable after run")
	}
	for _, rule := range stored {
		if rule.OverallScore == nil || rule.ProfitScore == nil || rule.DiversityScore == nil {
			t.Fatalf("rule %s persisted without scores", rule.Key())
		}
	}

	contexts, err := store.ListContexts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	foundOverall := false
	for _, c := range contexts {
		if c.IsOverall() {
			foundOverall = true
		}
	}
	if !foundOverall {
		t.Error("overall context missing from stored contexts")
	}
}

func TestPipelineRunEmptySource(t *testing.T) {
	svc, _ := newPipelineService(t, nil)

	_, err := svc.Run(context.Background(), PipelineRequest{Params: pipelineParams(), Seed: 1})
	if err == nil {
		t.Fatal("expected error for empty transaction history")
	}
	if apperrors.GetCode(err) != apperrors.CodeDataInsufficient {
		t.Errorf("error code = %s, want %s", apperrors.GetCode(err), apperrors.CodeDataInsufficient)
	}
}

func TestPipelineRunDeterministicContent(t *testing.T) {
	fixture := pipelineFixture(120)

	runOnce := func() []string {
		svc, _ := newPipelineService(t, fixture)
		result, err := svc.Run(context.Background(), PipelineRequest{Params: pipelineParams(), Seed: 7})
		if err != nil {
			t.Fatal(err)
		}
		keys := make([]string, 0, len(result.Rules))
		for _, rule := range result.Rules {
			keys = append(keys, fmt.Sprintf("%s|%.9f|%.9f|%.9f", rule.Key(), rule.Support, rule.Confidence, *rule.OverallScore))
		}
		return keys
	}

	first, second := runOnce(), runOnce()
	if len(first) != len(second) {
		t.Fatalf("rule counts differ between identical runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("rule %d differs between identical runs:\n%s\n%s", i, first[i], second[i])
		}
	}
}

func TestPipelineRunGlobalOrderIsScoreDescending(t *testing.T) {
	svc, _ := newPipelineService(t, pipelineFixture(120))

	result, err := svc.Run(context.Background(), PipelineRequest{Params: pipelineParams(), Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(result.Rules); i++ {
		prev, cur := *result.Rules[i-1].OverallScore, *result.Rules[i].OverallScore
		if prev < cur {
			t.Fatalf("merged rules out of order at %d: %f < %f", i, prev, cur)
		}
	}
}

func TestPipelineAutoDataModeShrinksContexts(t *testing.T) {
	svc, store := newPipelineService(t, pipelineFixture(120))

	// 120 transactions lands in the minimal tier: overall context only
	result, err := svc.Run(context.Background(), PipelineRequest{Params: run.DefaultParams(), Seed: 5, AutoDataMode: true})
	if err != nil {
		t.Fatal(err)
	}
	contexts, err := store.ListContexts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range contexts {
		if !c.IsOverall() {
			t.Errorf("auto data mode on 120 rows should mine overall only, got context %s", c.Key())
		}
	}
	if result.Manifest.Params.ContextDepth != 0 {
		t.Errorf("manifest should record the applied params, depth = %d", result.Manifest.Params.ContextDepth)
	}
}

