package mining

import (
	"sort"

	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/rules"
)

// DeriveRules turns frequent itemsets into association rules by splitting
// every itemset of size two or more into each non-empty antecedent and
// consequent partition. Rules below minConfidence are dropped. Supports for
// the partitions come from the itemset table itself: downward closure
// guarantees every subset of a frequent itemset was mined too.
func DeriveRules(itemsets []ItemsetSupport, minConfidence float64, ctx rules.Context) []rules.ContextualRule {
	supports := make(map[string]float64, len(itemsets))
	for _, set := range itemsets {
		supports[set.Items.Key()] = set.Support
	}

	var derived []rules.ContextualRule
	for _, set := range itemsets {
		if len(set.Items) < 2 {
			continue
		}
		items := set.Items.Sorted()
		for _, split := range partitions(items) {
			antSupport, ok := supports[split.antecedent.Key()]
			if !ok || antSupport <= 0 {
				continue
			}
			consSupport, ok := supports[split.consequent.Key()]
			if !ok || consSupport <= 0 {
				continue
			}
			confidence := set.Support / antSupport
			if confidence < minConfidence {
				continue
			}
			derived = append(derived, rules.ContextualRule{
				ID:         core.NewRuleID(),
				Antecedent: split.antecedent,
				Consequent: split.consequent,
				Support:    set.Support,
				Confidence: confidence,
				Lift:       confidence / consSupport,
				Context:    ctx,
			})
		}
	}

	derived = rules.MergeDuplicates(derived)
	sort.Slice(derived, func(i, j int) bool { return derived[i].Key() < derived[j].Key() })
	return derived
}

type partition struct {
	antecedent basket.ItemSet
	consequent basket.ItemSet
}

// partitions enumerates all non-empty proper antecedent subsets of the
// sorted items by bitmask. Itemset sizes are capped well below the point
// where 2^k matters.
func partitions(items []core.ItemID) []partition {
	k := len(items)
	splits := make([]partition, 0, (1<<k)-2)
	for mask := 1; mask < (1<<k)-1; mask++ {
		antecedent := make(basket.ItemSet)
		consequent := make(basket.ItemSet)
		for i, item := range items {
			if mask&(1<<i) != 0 {
				antecedent[item] = struct{}{}
			} else {
				consequent[item] = struct{}{}
			}
		}
		splits = append(splits, partition{antecedent: antecedent, consequent: consequent})
	}
	return splits
}
