package uplift

import (
	"math"
	"testing"
)

func TestProjectDiscountsEconomicsOnly(t *testing.T) {
	e := Estimate{
		State:                 StateEstimated,
		IncrementalAttachRate: 0.08,
		IncrementalRevenue:    2.0,
		IncrementalMargin:     0.8,
		ControlRate:           0.20,
		TreatmentRate:         0.28,
	}

	p := Project(e, Scenario{DiscountPct: 0.25})

	if p.IncrementalAttachRate != 0.08 {
		t.Errorf("Attach rate must not be discounted, got %f", p.IncrementalAttachRate)
	}
	if math.Abs(p.IncrementalRevenue-1.5) > 1e-9 {
		t.Errorf("Revenue should shrink by the discount: got %f, want 1.5", p.IncrementalRevenue)
	}
	if math.Abs(p.IncrementalMargin-0.6) > 1e-9 {
		t.Errorf("Margin should shrink by the discount: got %f, want 0.6", p.IncrementalMargin)
	}
	if p.ProjectedMarginTotal != nil {
		t.Error("No traffic given, total projection must stay nil")
	}
}

func TestProjectAttachRateFloor(t *testing.T) {
	// Observed treatment rate above control + incremental: treatment wins
	high := Estimate{ControlRate: 0.20, TreatmentRate: 0.30, IncrementalAttachRate: 0.05}
	if p := Project(high, Scenario{}); math.Abs(p.ProjectedAttachRate-0.30) > 1e-9 {
		t.Errorf("ProjectedAttachRate = %f, want 0.30", p.ProjectedAttachRate)
	}

	// Otherwise control + incremental carries
	low := Estimate{ControlRate: 0.20, TreatmentRate: 0.22, IncrementalAttachRate: 0.07}
	if p := Project(low, Scenario{}); math.Abs(p.ProjectedAttachRate-0.27) > 1e-9 {
		t.Errorf("ProjectedAttachRate = %f, want 0.27", p.ProjectedAttachRate)
	}
}

func TestProjectExtremeDiscountClampsAtZero(t *testing.T) {
	e := Estimate{IncrementalRevenue: 2.0, IncrementalMargin: 1.0}
	p := Project(e, Scenario{DiscountPct: 1.5})

	if p.IncrementalRevenue != 0 || p.IncrementalMargin != 0 {
		t.Errorf("Discount beyond 100%% must clamp economics at zero, got revenue %f margin %f",
			p.IncrementalRevenue, p.IncrementalMargin)
	}
}

func TestProjectTrafficTotal(t *testing.T) {
	e := Estimate{IncrementalMargin: 0.5}
	p := Project(e, Scenario{ExpectedTraffic: 1000})

	if p.ProjectedMarginTotal == nil {
		t.Fatal("Expected a total projection when traffic is given")
	}
	if math.Abs(*p.ProjectedMarginTotal-500) > 1e-9 {
		t.Errorf("ProjectedMarginTotal = %f, want 500", *p.ProjectedMarginTotal)
	}
}
