package mining

import (
	"fmt"
	"testing"
	"time"

	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/rules"
)

func contextTx(i int, store core.StoreID, bin basket.TimeBin, day basket.DayType) basket.Transaction {
	return basket.Transaction{
		ID:        core.TransactionID(fmt.Sprintf("T%04d", i)),
		Timestamp: core.NewTimestamp(time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)),
		StoreID:   store,
		Items:     []basket.LineItem{{ItemID: "milk", Quantity: 1, UnitPrice: 4}},
		TimeBin:   bin,
		DayType:   day,
		Quarter:   basket.QuarterQ2,
	}
}

func TestSegmenterAlwaysEmitsOverallFirst(t *testing.T) {
	txs := []basket.Transaction{
		contextTx(1, "S1", basket.TimeBinMorning, basket.DayTypeWeekday),
		contextTx(2, "S1", basket.TimeBinMorning, basket.DayTypeWeekday),
	}
	segments := NewSegmenter(100, 2).Segment(txs)

	if len(segments) == 0 {
		t.Fatal("expected at least the overall segment")
	}
	if !segments[0].Context.IsOverall() {
		t.Errorf("first segment = %s, want overall", segments[0].Context.Key())
	}
	if len(segments[0].Transactions) != len(txs) {
		t.Errorf("overall segment holds %d transactions, want %d", len(segments[0].Transactions), len(txs))
	}
}

func TestSegmenterBackoff(t *testing.T) {
	// Two morning transactions with a minimum of five: the morning context
	// must not be emitted and its transactions stay covered by overall.
	txs := []basket.Transaction{
		contextTx(1, "S1", basket.TimeBinMorning, basket.DayTypeWeekday),
		contextTx(2, "S1", basket.TimeBinMorning, basket.DayTypeWeekday),
	}
	segments := NewSegmenter(5, 2).Segment(txs)

	for _, seg := range segments {
		if seg.Context.TimeBin == basket.TimeBinMorning {
			t.Errorf("sub-threshold context %s was emitted", seg.Context.Key())
		}
	}

	overall := segments[0]
	if len(overall.Transactions) != 2 {
		t.Errorf("backed-off transactions missing from overall: %d", len(overall.Transactions))
	}
}

func TestSegmenterSingleAndPairEmission(t *testing.T) {
	var txs []basket.Transaction
	for i := 0; i < 6; i++ {
		txs = append(txs, contextTx(i, "S1", basket.TimeBinMorning, basket.DayTypeWeekday))
	}
	for i := 6; i < 10; i++ {
		txs = append(txs, contextTx(i, "S2", basket.TimeBinEvening, basket.DayTypeWeekend))
	}

	segments := NewSegmenter(5, 2).Segment(txs)
	keys := make(map[string]int)
	for _, seg := range segments {
		keys[seg.Context.Key()] = len(seg.Transactions)
	}

	if count, ok := keys[rules.Context{StoreID: "S1"}.Key()]; !ok || count != 6 {
		t.Errorf("store S1 segment: got %d transactions, ok=%v", count, ok)
	}
	if count, ok := keys[rules.Context{TimeBin: basket.TimeBinMorning}.Key()]; !ok || count != 6 {
		t.Errorf("morning segment: got %d transactions, ok=%v", count, ok)
	}
	if count, ok := keys[rules.Context{StoreID: "S1", TimeBin: basket.TimeBinMorning}.Key()]; !ok || count != 6 {
		t.Errorf("S1 x morning segment: got %d transactions, ok=%v", count, ok)
	}
	if _, ok := keys[rules.Context{StoreID: "S2"}.Key()]; ok {
		t.Error("store S2 has 4 rows, below minimum, should be backed off")
	}
}

func TestSegmenterDepthKnob(t *testing.T) {
	var txs []basket.Transaction
	for i := 0; i < 10; i++ {
		txs = append(txs, contextTx(i, "S1", basket.TimeBinMorning, basket.DayTypeWeekday))
	}

	t.Run("depth zero is overall only", func(t *testing.T) {
		segments := NewSegmenter(1, 0).Segment(txs)
		if len(segments) != 1 || !segments[0].Context.IsOverall() {
			t.Errorf("expected single overall segment, got %d", len(segments))
		}
	})

	t.Run("depth one omits pairs", func(t *testing.T) {
		segments := NewSegmenter(1, 1).Segment(txs)
		for _, seg := range segments {
			if seg.Context.Depth() > 1 {
				t.Errorf("pairwise context %s emitted at depth 1", seg.Context.Key())
			}
		}
	})
}

func TestSegmenterDeterministicOrder(t *testing.T) {
	var txs []basket.Transaction
	stores := []core.StoreID{"S3", "S1", "S2"}
	bins := []basket.TimeBin{basket.TimeBinEvening, basket.TimeBinMorning}
	n := 0
	for _, store := range stores {
		for _, bin := range bins {
			for i := 0; i < 6; i++ {
				day := basket.DayTypeWeekday
				if i%2 == 0 {
					day = basket.DayTypeWeekend
				}
				txs = append(txs, contextTx(n, store, bin, day))
				n++
			}
		}
	}

	first := NewSegmenter(5, 2).Segment(txs)
	second := NewSegmenter(5, 2).Segment(txs)

	if len(first) != len(second) {
		t.Fatalf("segment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Context != second[i].Context {
			t.Errorf("position %d: %s vs %s", i, first[i].Context.Key(), second[i].Context.Key())
		}
	}

	// Stores must appear in sorted order among single-store segments
	var storeOrder []core.StoreID
	for _, seg := range first {
		if seg.Context.StoreID != "" && seg.Context.Depth() == 1 {
			storeOrder = append(storeOrder, seg.Context.StoreID)
		}
	}
	for i := 1; i < len(storeOrder); i++ {
		if storeOrder[i-1] >= storeOrder[i] {
			t.Errorf("store emission not sorted: %v", storeOrder)
		}
	}
}

func TestSegmenterFestivalRelaxedThreshold(t *testing.T) {
	var txs []basket.Transaction
	for i := 0; i < 60; i++ {
		tx := contextTx(i, "S1", basket.TimeBinMorning, basket.DayTypeWeekday)
		if i < 25 {
			tx.Festival = basket.FestivalPeriod("diwali")
		}
		txs = append(txs, tx)
	}

	// Festival threshold relaxes to max(minRows/2, 20) = 25, so exactly 25
	// festival rows clear it while a regular dimension at 25 rows would not.
	segments := NewSegmenter(50, 1).Segment(txs)
	found := false
	for _, seg := range segments {
		if seg.Context.Festival == basket.FestivalPeriod("diwali") {
			found = true
			if len(seg.Transactions) != 25 {
				t.Errorf("festival segment has %d transactions, want 25", len(seg.Transactions))
			}
		}
	}
	if !found {
		t.Error("festival context missing despite clearing relaxed threshold")
	}
}
