package mining

import (
	"sort"

	"profitlift/domain/basket"
	"profitlift/domain/core"
)

// AprioriMiner is the level-wise reference miner used to validate Eclat
// output. It generates size-k candidates from frequent (k-1)-itemsets and
// counts support by scanning the baskets, trading speed for an
// implementation independent enough to catch bugs in the vertical miner.
type AprioriMiner struct {
	maxSize int
}

func NewAprioriMiner(maxSize int) *AprioriMiner {
	if maxSize < 2 {
		maxSize = 2
	}
	return &AprioriMiner{maxSize: maxSize}
}

// FrequentItemsets mines frequent itemsets level by level. Output ordering
// matches EclatMiner.FrequentItemsets so results compare positionally.
func (m *AprioriMiner) FrequentItemsets(baskets []basket.ItemSet, minSupport float64) []ItemsetSupport {
	n := len(baskets)
	if n == 0 {
		return nil
	}
	minCount := minimumCount(minSupport, n)

	level := frequentSingles(baskets, minCount)
	var results []ItemsetSupport
	for _, entry := range level {
		results = append(results, ItemsetSupport{Items: entry.items, Support: float64(entry.count) / float64(n), Count: entry.count})
	}

	for size := 2; size <= m.maxSize && len(level) > 0; size++ {
		candidates := joinLevel(level)
		level = level[:0]
		for _, candidate := range candidates {
			count := countSupport(baskets, candidate)
			if count < minCount {
				continue
			}
			level = append(level, levelEntry{items: candidate, count: count})
			results = append(results, ItemsetSupport{Items: candidate, Support: float64(count) / float64(n), Count: count})
		}
	}

	sortItemsets(results)
	return results
}

type levelEntry struct {
	items basket.ItemSet
	count int
}

func frequentSingles(baskets []basket.ItemSet, minCount int) []levelEntry {
	counts := make(map[core.ItemID]int)
	for _, items := range baskets {
		for item := range items {
			counts[item]++
		}
	}
	entries := make([]levelEntry, 0, len(counts))
	for item, count := range counts {
		if count >= minCount {
			entries = append(entries, levelEntry{items: basket.NewItemSet(item), count: count})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].items.Key() < entries[j].items.Key() })
	return entries
}

// joinLevel builds size k+1 candidates by unioning pairs of frequent
// k-itemsets that differ in exactly one item. Duplicates collapse through
// the canonical key.
func joinLevel(level []levelEntry) []basket.ItemSet {
	seen := make(map[string]basket.ItemSet)
	for i := 0; i < len(level); i++ {
		for j := i + 1; j < len(level); j++ {
			union := level[i].items.Union(level[j].items)
			if len(union) != len(level[i].items)+1 {
				continue
			}
			seen[union.Key()] = union
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	candidates := make([]basket.ItemSet, 0, len(keys))
	for _, key := range keys {
		candidates = append(candidates, seen[key])
	}
	return candidates
}

func countSupport(baskets []basket.ItemSet, items basket.ItemSet) int {
	count := 0
	for _, b := range baskets {
		if b.ContainsAll(items) {
			count++
		}
	}
	return count
}
