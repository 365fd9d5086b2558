package mining

import (
	"log"
	"sort"

	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/rules"
)

// Segment pairs a context with the transactions matching it
type Segment struct {
	Context      rules.Context
	Transactions []basket.Transaction
}

// Segmenter partitions enriched transactions into context buckets with
// minimum-size backoff: a candidate context below its row threshold is
// dropped and its transactions stay covered by a broader bucket. Emission
// is deterministic - identical input and configuration always produce the
// same segments in the same order.
type Segmenter struct {
	minRows int
	depth   int
}

// NewSegmenter creates a segmenter. minRows is the emission threshold for
// regular contexts; depth caps how specific contexts get (0 overall only,
// 1 adds single dimensions, 2 adds pairwise combinations).
func NewSegmenter(minRows, depth int) *Segmenter {
	return &Segmenter{minRows: minRows, depth: depth}
}

// festivalMinRows relaxes the threshold for festival contexts. Festival
// windows are short, so demanding the full row count would back off nearly
// every festival bucket.
func (s *Segmenter) festivalMinRows() int {
	relaxed := s.minRows / 2
	if relaxed < 20 {
		relaxed = 20
	}
	return relaxed
}

// festivalPairMinRows is the threshold for festival x time pairs
func (s *Segmenter) festivalPairMinRows() int {
	relaxed := s.minRows / 3
	if relaxed < 15 {
		relaxed = 15
	}
	return relaxed
}

// Segment emits context buckets in deterministic order: overall first,
// then single dimensions (store, time, day type, quarter, festival), then
// the business-relevant pairs (store x time, day type x time,
// festival x time). Quarter never participates in a pair.
func (s *Segmenter) Segment(txs []basket.Transaction) []Segment {
	segments := []Segment{{Context: rules.Overall(), Transactions: txs}}
	if s.depth < 1 {
		return segments
	}

	dims := collectDimensions(txs)

	// Single dimensions
	for _, store := range dims.stores {
		segments = s.add(segments, rules.Context{StoreID: store}, txs, s.minRows)
	}
	for _, bin := range dims.timeBins {
		segments = s.add(segments, rules.Context{TimeBin: bin}, txs, s.minRows)
	}
	for _, day := range dims.dayTypes {
		segments = s.add(segments, rules.Context{DayType: day}, txs, s.minRows)
	}
	for _, quarter := range dims.quarters {
		segments = s.add(segments, rules.Context{Quarter: quarter}, txs, s.minRows)
	}
	for _, festival := range dims.festivals {
		segments = s.add(segments, rules.Context{Festival: festival}, txs, s.festivalMinRows())
	}

	if s.depth < 2 {
		return segments
	}

	// Pairwise combinations
	for _, store := range dims.stores {
		for _, bin := range dims.timeBins {
			segments = s.add(segments, rules.Context{StoreID: store, TimeBin: bin}, txs, s.minRows)
		}
	}
	for _, day := range dims.dayTypes {
		for _, bin := range dims.timeBins {
			segments = s.add(segments, rules.Context{DayType: day, TimeBin: bin}, txs, s.minRows)
		}
	}
	for _, festival := range dims.festivals {
		for _, bin := range dims.timeBins {
			segments = s.add(segments, rules.Context{Festival: festival, TimeBin: bin}, txs, s.festivalPairMinRows())
		}
	}

	return segments
}

// add filters transactions for the candidate context and appends a segment
// when the match count clears the threshold. Sub-threshold candidates are
// logged and backed off.
func (s *Segmenter) add(segments []Segment, ctx rules.Context, txs []basket.Transaction, minRows int) []Segment {
	matched := filterTransactions(ctx, txs)
	if len(matched) < minRows {
		log.Printf("[Segmenter] Backing off context %s: %d rows below minimum %d", ctx.Key(), len(matched), minRows)
		return segments
	}
	return append(segments, Segment{Context: ctx, Transactions: matched})
}

func filterTransactions(ctx rules.Context, txs []basket.Transaction) []basket.Transaction {
	matched := make([]basket.Transaction, 0)
	for _, tx := range txs {
		if ctx.Matches(tx) {
			matched = append(matched, tx)
		}
	}
	return matched
}

// dimensions holds the distinct values per segmentation dimension, each
// slice sorted for deterministic emission.
type dimensions struct {
	stores    []core.StoreID
	timeBins  []basket.TimeBin
	dayTypes  []basket.DayType
	quarters  []basket.Quarter
	festivals []basket.FestivalPeriod
}

func collectDimensions(txs []basket.Transaction) dimensions {
	stores := make(map[core.StoreID]struct{})
	bins := make(map[basket.TimeBin]struct{})
	days := make(map[basket.DayType]struct{})
	quarters := make(map[basket.Quarter]struct{})
	festivals := make(map[basket.FestivalPeriod]struct{})

	for _, tx := range txs {
		if tx.StoreID != "" {
			stores[tx.StoreID] = struct{}{}
		}
		if tx.TimeBin != "" {
			bins[tx.TimeBin] = struct{}{}
		}
		if tx.DayType != "" {
			days[tx.DayType] = struct{}{}
		}
		if tx.Quarter != "" {
			quarters[tx.Quarter] = struct{}{}
		}
		if tx.Festival != "" {
			festivals[tx.Festival] = struct{}{}
		}
	}

	var dims dimensions
	for store := range stores {
		dims.stores = append(dims.stores, store)
	}
	for bin := range bins {
		dims.timeBins = append(dims.timeBins, bin)
	}
	for day := range days {
		dims.dayTypes = append(dims.dayTypes, day)
	}
	for quarter := range quarters {
		dims.quarters = append(dims.quarters, quarter)
	}
	for festival := range festivals {
		dims.festivals = append(dims.festivals, festival)
	}

	sort.Slice(dims.stores, func(i, j int) bool { return dims.stores[i] < dims.stores[j] })
	sort.Slice(dims.timeBins, func(i, j int) bool { return dims.timeBins[i] < dims.timeBins[j] })
	sort.Slice(dims.dayTypes, func(i, j int) bool { return dims.dayTypes[i] < dims.dayTypes[j] })
	sort.Slice(dims.quarters, func(i, j int) bool { return dims.quarters[i] < dims.quarters[j] })
	sort.Slice(dims.festivals, func(i, j int) bool { return dims.festivals[i] < dims.festivals[j] })
	return dims
}
