package uplift

// Scenario describes a what-if question against an existing estimate:
// what happens to the uplift economics under an anticipated discount,
// optionally projected over an expected basket count.
type Scenario struct {
	DiscountPct     float64 `json:"discount_pct"`
	ExpectedTraffic int     `json:"expected_traffic"`
}

// Projection is the pure arithmetic answer. Narrative rendering belongs to
// the presentation layer.
type Projection struct {
	ProjectedAttachRate   float64  `json:"projected_attach_rate"`
	IncrementalAttachRate float64  `json:"incremental_attach_rate"`
	IncrementalRevenue    float64  `json:"incremental_revenue"`
	IncrementalMargin     float64  `json:"incremental_margin"`
	ProjectedMarginTotal  *float64 `json:"projected_margin_total,omitempty"`
}

// Project applies the discount multiplier to the estimate's economics.
// The attach rate itself is not discounted; a discount trims per-unit
// revenue and margin, not the causal propensity to attach.
func Project(e Estimate, s Scenario) Projection {
	multiplier := 1 - s.DiscountPct
	if multiplier < 0 {
		multiplier = 0
	}

	p := Projection{
		IncrementalAttachRate: e.IncrementalAttachRate,
		IncrementalRevenue:    e.IncrementalRevenue * multiplier,
		IncrementalMargin:     e.IncrementalMargin * multiplier,
	}

	projected := e.ControlRate + e.IncrementalAttachRate
	if e.TreatmentRate > projected {
		projected = e.TreatmentRate
	}
	p.ProjectedAttachRate = projected

	if s.ExpectedTraffic > 0 {
		total := p.IncrementalMargin * float64(s.ExpectedTraffic)
		p.ProjectedMarginTotal = &total
	}
	return p
}
