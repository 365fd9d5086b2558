package basket

import (
	"profitlift/domain/core"
)

// TimeBin buckets the hour of day for context segmentation
type TimeBin string

const (
	TimeBinMorning   TimeBin = "morning"   // 06:00-10:59
	TimeBinMidday    TimeBin = "midday"    // 11:00-13:59
	TimeBinAfternoon TimeBin = "afternoon" // 14:00-17:59
	TimeBinEvening   TimeBin = "evening"   // 18:00-21:59
	TimeBinNight     TimeBin = "night"     // everything else
)

// DayType distinguishes weekday from weekend trade
type DayType string

const (
	DayTypeWeekday DayType = "weekday"
	DayTypeWeekend DayType = "weekend"
)

// Quarter is the calendar quarter label
type Quarter string

const (
	QuarterQ1 Quarter = "Q1"
	QuarterQ2 Quarter = "Q2"
	QuarterQ3 Quarter = "Q3"
	QuarterQ4 Quarter = "Q4"
)

// FestivalPeriod names the festival window a transaction falls into.
// Empty means no festival.
type FestivalPeriod string

// LineItem is one purchased item within a transaction
type LineItem struct {
	ItemID    core.ItemID `json:"item_id"`
	Quantity  int         `json:"quantity"`
	UnitPrice float64     `json:"unit_price"`
	Category  string      `json:"category,omitempty"`
	// MarginPct is the per-item margin fraction when the source knows it;
	// nil falls back to category and then global defaults.
	MarginPct *float64 `json:"margin_pct,omitempty"`
}

// Transaction is one enriched till receipt. The context fields
// (TimeBin, DayType, Quarter, Festival) are derived at ingest and
// consumed read-only by mining and scoring.
type Transaction struct {
	ID           core.TransactionID `json:"id"`
	Timestamp    core.Timestamp     `json:"timestamp"`
	StoreID      core.StoreID       `json:"store_id"`
	Items        []LineItem         `json:"items"`
	CustomerHash core.CustomerHash  `json:"customer_hash,omitempty"`
	DiscountFlag bool               `json:"discount_flag"`

	TimeBin  TimeBin        `json:"time_bin"`
	DayType  DayType        `json:"day_type"`
	Quarter  Quarter        `json:"quarter"`
	Festival FestivalPeriod `json:"festival,omitempty"`
}

// ItemSet returns the distinct items of the transaction as a set
func (t Transaction) ItemSet() ItemSet {
	s := make(ItemSet, len(t.Items))
	for _, li := range t.Items {
		s[li.ItemID] = struct{}{}
	}
	return s
}

// BasketSize returns the number of distinct items
func (t Transaction) BasketSize() int {
	return len(t.ItemSet())
}

// ContainsAll reports whether the transaction's basket covers the set
func (t Transaction) ContainsAll(set ItemSet) bool {
	return t.ItemSet().ContainsAll(set)
}

// TotalValue sums quantity times unit price over the line items
func (t Transaction) TotalValue() float64 {
	var total float64
	for _, li := range t.Items {
		qty := li.Quantity
		if qty < 1 {
			qty = 1
		}
		total += float64(qty) * li.UnitPrice
	}
	return total
}

// Baskets projects transactions to their item sets, preserving order
func Baskets(txs []Transaction) []ItemSet {
	out := make([]ItemSet, len(txs))
	for i, tx := range txs {
		out[i] = tx.ItemSet()
	}
	return out
}
