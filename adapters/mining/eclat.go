package mining

import (
	"math"
	"sort"

	"profitlift/domain/basket"
	"profitlift/domain/core"
)

// ItemsetSupport is a frequent itemset together with its relative support
// and absolute basket count.
type ItemsetSupport struct {
	Items   basket.ItemSet
	Support float64
	Count   int
}

// EclatMiner finds frequent itemsets with vertical transaction-id lists.
// Each itemset carries the sorted list of basket indices containing it;
// extending an itemset is the intersection of two such lists, so support
// counting never rescans the baskets.
type EclatMiner struct {
	maxSize int
}

func NewEclatMiner(maxSize int) *EclatMiner {
	if maxSize < 2 {
		maxSize = 2
	}
	return &EclatMiner{maxSize: maxSize}
}

// FrequentItemsets mines all itemsets up to the configured maximum size
// whose support meets minSupport. Output is sorted by size then by item
// key so runs are comparable byte for byte.
func (m *EclatMiner) FrequentItemsets(baskets []basket.ItemSet, minSupport float64) []ItemsetSupport {
	n := len(baskets)
	if n == 0 {
		return nil
	}
	minCount := minimumCount(minSupport, n)

	tidlists := verticalIndex(baskets)

	items := make([]core.ItemID, 0, len(tidlists))
	for item, tids := range tidlists {
		if len(tids) >= minCount {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })

	var results []ItemsetSupport
	prefix := make([]core.ItemID, 0, m.maxSize)
	for i, item := range items {
		prefix = append(prefix, item)
		results = append(results, itemsetResult(prefix, tidlists[item], n))
		results = m.extend(results, prefix, tidlists[item], items[i+1:], tidlists, minCount, n)
		prefix = prefix[:0]
	}

	sortItemsets(results)
	return results
}

// extend grows the prefix depth-first with every remaining item whose
// intersected tid-list still clears the minimum count.
func (m *EclatMiner) extend(results []ItemsetSupport, prefix []core.ItemID, tids []int, candidates []core.ItemID, tidlists map[core.ItemID][]int, minCount, n int) []ItemsetSupport {
	if len(prefix) >= m.maxSize {
		return results
	}
	for i, item := range candidates {
		merged := intersectTids(tids, tidlists[item])
		if len(merged) < minCount {
			continue
		}
		extended := append(prefix, item)
		results = append(results, itemsetResult(extended, merged, n))
		results = m.extend(results, extended, merged, candidates[i+1:], tidlists, minCount, n)
	}
	return results
}

func itemsetResult(items []core.ItemID, tids []int, n int) ItemsetSupport {
	return ItemsetSupport{
		Items:   basket.NewItemSet(items...),
		Support: float64(len(tids)) / float64(n),
		Count:   len(tids),
	}
}

// verticalIndex inverts baskets into per-item sorted basket-index lists
func verticalIndex(baskets []basket.ItemSet) map[core.ItemID][]int {
	tidlists := make(map[core.ItemID][]int)
	for tid, items := range baskets {
		for item := range items {
			tidlists[item] = append(tidlists[item], tid)
		}
	}
	for item := range tidlists {
		sort.Ints(tidlists[item])
	}
	return tidlists
}

// intersectTids merges two sorted tid-lists keeping common entries
func intersectTids(a, b []int) []int {
	merged := make([]int, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			merged = append(merged, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return merged
}

// minimumCount converts a relative support threshold into an absolute
// basket count. The epsilon keeps thresholds that land exactly on a
// representable fraction (say 0.3 of 10 baskets) from rounding up.
func minimumCount(minSupport float64, n int) int {
	count := int(math.Ceil(minSupport*float64(n) - 1e-9))
	if count < 1 {
		count = 1
	}
	return count
}

func sortItemsets(sets []ItemsetSupport) {
	sort.Slice(sets, func(i, j int) bool {
		if len(sets[i].Items) != len(sets[j].Items) {
			return len(sets[i].Items) < len(sets[j].Items)
		}
		return sets[i].Items.Key() < sets[j].Items.Key()
	})
}
