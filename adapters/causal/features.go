package causal

import (
	"sort"

	"profitlift/domain/basket"
	"profitlift/domain/core"
)

// ContextFeatures turns a transaction into the numeric vector the outcome
// estimators train on: hour of day, day of week, weekend flag, store
// ordinal and basket size. Store IDs are mapped to ordinals through a
// sorted index built once per estimation run, so the same data always
// yields the same vectors.
type ContextFeatures struct {
	storeIndex map[core.StoreID]float64
}

// NewContextFeatures builds the extractor over the transactions it will
// be asked to vectorize
func NewContextFeatures(txs []basket.Transaction) *ContextFeatures {
	seen := make(map[core.StoreID]struct{})
	for _, tx := range txs {
		seen[tx.StoreID] = struct{}{}
	}
	stores := make([]core.StoreID, 0, len(seen))
	for store := range seen {
		stores = append(stores, store)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i] < stores[j] })

	index := make(map[core.StoreID]float64, len(stores))
	for i, store := range stores {
		index[store] = float64(i)
	}
	return &ContextFeatures{storeIndex: index}
}

func (f *ContextFeatures) Vector(tx basket.Transaction) []float64 {
	weekend := 0.0
	if tx.Timestamp.IsWeekend() {
		weekend = 1.0
	}
	return []float64{
		float64(tx.Timestamp.Hour()),
		float64(tx.Timestamp.Weekday()),
		weekend,
		f.storeIndex[tx.StoreID],
		float64(tx.BasketSize()),
	}
}

func (f *ContextFeatures) Names() []string {
	return []string{"hour", "day_of_week", "is_weekend", "store_ordinal", "basket_size"}
}
