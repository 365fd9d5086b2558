package scoring

import (
	"math"
	"testing"
	"time"

	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/rules"
)

func lineTx(id string, item core.ItemID, price float64, margin *float64, category string) basket.Transaction {
	return basket.Transaction{
		ID:        core.TransactionID(id),
		Timestamp: core.NewTimestamp(time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)),
		StoreID:   "S1",
		Items: []basket.LineItem{{
			ItemID:    item,
			Quantity:  1,
			UnitPrice: price,
			Category:  category,
			MarginPct: margin,
		}},
	}
}

func marginPtr(v float64) *float64 { return &v }

func newRule(ant, cons []string, confidence, lift float64, ctx rules.Context) rules.ContextualRule {
	a := make(basket.ItemSet)
	for _, item := range ant {
		a[core.ItemID(item)] = struct{}{}
	}
	c := make(basket.ItemSet)
	for _, item := range cons {
		c[core.ItemID(item)] = struct{}{}
	}
	return rules.ContextualRule{
		ID:         core.NewRuleID(),
		Antecedent: a,
		Consequent: c,
		Support:    0.5,
		Confidence: confidence,
		Lift:       lift,
		Context:    ctx,
	}
}

func sampleTransactions() []basket.Transaction {
	return []basket.Transaction{
		lineTx("1", "milk", 2.0, marginPtr(0.2), "dairy"),
		lineTx("2", "bread", 1.0, marginPtr(0.3), "bakery"),
		lineTx("3", "butter", 3.0, marginPtr(0.1), "dairy"),
		lineTx("4", "cereal", 4.0, marginPtr(0.5), "packaged_food"),
	}
}

func TestRuleProfitExplicitMargin(t *testing.T) {
	calc := NewProfitCalculator(0.25)
	rule := newRule([]string{"milk"}, []string{"bread"}, 0.8, 1.5, rules.Overall())

	// bread: price 1.0, margin 0.3 -> 1.0 * 0.3 * 0.8 = 0.24
	profit := calc.RuleProfit(rule, sampleTransactions())
	if math.Abs(profit-0.24) > 1e-9 {
		t.Errorf("profit = %f, want 0.24", profit)
	}
}

func TestRuleProfitMarginResolutionOrder(t *testing.T) {
	calc := NewProfitCalculator(0.25)

	t.Run("category table when margin absent", func(t *testing.T) {
		txs := []basket.Transaction{lineTx("1", "paneer", 6.0, nil, "dairy")}
		rule := newRule([]string{"milk"}, []string{"paneer"}, 1.0, 1.0, rules.Overall())
		// dairy resolves to 0.15 in the category table
		if got := calc.RuleProfit(rule, txs); math.Abs(got-6.0*0.15) > 1e-9 {
			t.Errorf("profit = %f, want %f", got, 6.0*0.15)
		}
	})

	t.Run("configured default when category unknown", func(t *testing.T) {
		txs := []basket.Transaction{lineTx("1", "charger", 8.0, nil, "electronics")}
		rule := newRule([]string{"phone"}, []string{"charger"}, 1.0, 1.0, rules.Overall())
		if got := calc.RuleProfit(rule, txs); math.Abs(got-8.0*0.25) > 1e-9 {
			t.Errorf("profit = %f, want %f", got, 8.0*0.25)
		}
	})

	t.Run("explicit margin wins over category", func(t *testing.T) {
		txs := []basket.Transaction{lineTx("1", "paneer", 6.0, marginPtr(0.4), "dairy")}
		rule := newRule([]string{"milk"}, []string{"paneer"}, 1.0, 1.0, rules.Overall())
		if got := calc.RuleProfit(rule, txs); math.Abs(got-6.0*0.4) > 1e-9 {
			t.Errorf("profit = %f, want %f", got, 6.0*0.4)
		}
	})
}

func TestRuleProfitAbsentConsequent(t *testing.T) {
	calc := NewProfitCalculator(0.25)
	rule := newRule([]string{"milk"}, []string{"caviar"}, 0.9, 2.0, rules.Overall())

	if got := calc.RuleProfit(rule, sampleTransactions()); got != 0 {
		t.Errorf("profit = %f, want 0 for consequent absent from transactions", got)
	}
}

func TestRuleProfitMeansOverAllMatchingLines(t *testing.T) {
	calc := NewProfitCalculator(0.25)
	txs := []basket.Transaction{
		lineTx("1", "bread", 1.0, marginPtr(0.3), "bakery"),
		lineTx("2", "bread", 3.0, marginPtr(0.1), "bakery"),
	}
	rule := newRule([]string{"milk"}, []string{"bread"}, 1.0, 1.0, rules.Overall())

	// mean price 2.0, mean margin 0.2
	if got := calc.RuleProfit(rule, txs); math.Abs(got-2.0*0.2) > 1e-9 {
		t.Errorf("profit = %f, want %f", got, 2.0*0.2)
	}
}
