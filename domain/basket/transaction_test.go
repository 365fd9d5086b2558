package basket

import (
	"math"
	"testing"
)

func TestTransactionItemSetDeduplicates(t *testing.T) {
	tx := Transaction{
		ID: "T1",
		Items: []LineItem{
			{ItemID: "milk", Quantity: 1, UnitPrice: 3.5},
			{ItemID: "milk", Quantity: 2, UnitPrice: 3.5},
			{ItemID: "bread", Quantity: 1, UnitPrice: 2.0},
		},
	}

	set := tx.ItemSet()
	if len(set) != 2 {
		t.Errorf("Repeated line items must collapse, got %d distinct items", len(set))
	}
	if tx.BasketSize() != 2 {
		t.Errorf("BasketSize should count distinct items, got %d", tx.BasketSize())
	}
	if !tx.ContainsAll(NewItemSet("milk", "bread")) {
		t.Error("Transaction should cover its own items")
	}
	if tx.ContainsAll(NewItemSet("milk", "eggs")) {
		t.Error("Transaction must not cover missing items")
	}
}

func TestTransactionTotalValue(t *testing.T) {
	tx := Transaction{
		Items: []LineItem{
			{ItemID: "milk", Quantity: 2, UnitPrice: 3.5},
			{ItemID: "bread", Quantity: 1, UnitPrice: 2.0},
			{ItemID: "eggs", Quantity: 0, UnitPrice: 4.0}, // zero quantity counts as one unit
		},
	}

	if got := tx.TotalValue(); math.Abs(got-13.0) > 1e-9 {
		t.Errorf("TotalValue = %f, want 13.0", got)
	}
}

func TestBasketsPreservesOrder(t *testing.T) {
	txs := []Transaction{
		{ID: "T1", Items: []LineItem{{ItemID: "milk", Quantity: 1, UnitPrice: 1}}},
		{ID: "T2", Items: []LineItem{{ItemID: "bread", Quantity: 1, UnitPrice: 1}}},
	}

	baskets := Baskets(txs)
	if len(baskets) != 2 {
		t.Fatalf("Expected 2 baskets, got %d", len(baskets))
	}
	if !baskets[0].Contains("milk") || !baskets[1].Contains("bread") {
		t.Error("Baskets must align with transaction order")
	}
}
