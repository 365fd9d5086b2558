package causal

import (
	"math/rand"
	"sort"

	"profitlift/domain/basket"
	"profitlift/domain/rules"
)

// SplitGroups holds the simulated experiment arms for one rule. Both
// slices are disjoint and together cover every eligible basket.
type SplitGroups struct {
	Control   []basket.Transaction
	Treatment []basket.Transaction
}

// EligibleBaskets selects the transactions containing the rule's full
// antecedent, ordered by transaction ID so the downstream shuffle sees a
// canonical sequence regardless of input order.
func EligibleBaskets(rule rules.ContextualRule, txs []basket.Transaction) []basket.Transaction {
	eligible := make([]basket.Transaction, 0)
	for _, tx := range txs {
		if tx.ContainsAll(rule.Antecedent) {
			eligible = append(eligible, tx)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible
}

// SplitEligible shuffles the eligible baskets with the provided seeded
// stream and cuts them into two equal halves. An odd leftover goes to
// control.
func SplitEligible(eligible []basket.Transaction, rng *rand.Rand) SplitGroups {
	shuffled := make([]basket.Transaction, len(eligible))
	copy(shuffled, eligible)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	half := len(shuffled) / 2
	return SplitGroups{
		Treatment: shuffled[:half],
		Control:   shuffled[half:],
	}
}

// Outcomes labels each transaction 1 when it contains the rule's full
// consequent, else 0
func Outcomes(rule rules.ContextualRule, txs []basket.Transaction) []float64 {
	outcomes := make([]float64, len(txs))
	for i, tx := range txs {
		if tx.ContainsAll(rule.Consequent) {
			outcomes[i] = 1
		}
	}
	return outcomes
}
