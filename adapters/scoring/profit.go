package scoring

import (
	"log"

	"github.com/montanaflynn/stats"

	"profitlift/adapters/ingest"
	"profitlift/domain/basket"
	"profitlift/domain/rules"
)

// ProfitCalculator estimates the expected incremental margin a rule earns
// per basket: mean consequent unit price times mean margin fraction times
// the rule's confidence.
type ProfitCalculator struct {
	defaultMarginPct float64
}

func NewProfitCalculator(defaultMarginPct float64) *ProfitCalculator {
	return &ProfitCalculator{defaultMarginPct: defaultMarginPct}
}

// RuleProfit computes expected profit for one rule against the context's
// transaction set. Missing consequent items yield 0 rather than an error.
// Margin resolution per line item: explicit margin_pct, then the category
// table, then the configured default.
func (p *ProfitCalculator) RuleProfit(rule rules.ContextualRule, txs []basket.Transaction) float64 {
	var prices, margins []float64
	for _, tx := range txs {
		for _, line := range tx.Items {
			if !rule.Consequent.Contains(line.ItemID) {
				continue
			}
			prices = append(prices, line.UnitPrice)
			margins = append(margins, p.lineMargin(line))
		}
	}

	if len(prices) == 0 {
		log.Printf("[Profit] No transaction data for consequent %s, assigning zero profit", rule.Consequent.Key())
		return 0
	}

	avgPrice, err := stats.Mean(prices)
	if err != nil {
		return 0
	}
	avgMargin, err := stats.Mean(margins)
	if err != nil {
		return 0
	}

	profit := avgPrice * avgMargin * rule.Confidence
	if profit < 0 {
		return 0
	}
	return profit
}

func (p *ProfitCalculator) lineMargin(line basket.LineItem) float64 {
	if line.MarginPct != nil {
		return *line.MarginPct
	}
	if margin, ok := ingest.LookupCategoryMargin(line.Category); ok {
		return margin
	}
	return p.defaultMarginPct
}
