package scoring

import (
	"profitlift/domain/core"
	"profitlift/domain/rules"
)

// DiversityScorer penalizes item over-representation within one context's
// rule set. Cross-context recurrence of the same items is never penalized,
// so a milk rule showing up in every store context costs nothing; ten milk
// rules inside one context do.
type DiversityScorer struct{}

func NewDiversityScorer() *DiversityScorer {
	return &DiversityScorer{}
}

// RuleDiversity returns 1 minus the mean share of other same-context rules
// containing each of the rule's items, floored at 0. A rule whose items
// appear in no other rule of its context scores exactly 1.
func (d *DiversityScorer) RuleDiversity(rule rules.ContextualRule, contextRules []rules.ContextualRule) float64 {
	ruleItems := rule.Items()
	if len(ruleItems) == 0 {
		return 1.0
	}

	ruleKey := rule.Key()
	total := 0
	itemCounts := make(map[core.ItemID]int)
	for _, r := range contextRules {
		if r.Context != rule.Context {
			continue
		}
		total++
		if r.Key() == ruleKey {
			continue
		}
		for item := range r.Items() {
			itemCounts[item]++
		}
	}
	if total <= 1 {
		return 1.0
	}

	sum := 0.0
	for item := range ruleItems {
		sum += float64(itemCounts[item]) / float64(total)
	}
	diversity := 1.0 - sum/float64(len(ruleItems))

	if diversity < 0 {
		return 0
	}
	if diversity > 1 {
		return 1
	}
	return diversity
}
