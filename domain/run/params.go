package run

// Weights is the multi-objective weight vector. The four components must
// sum to 1; validation happens at configuration load, never here.
type Weights struct {
	Lift       float64 `json:"lift"`
	Profit     float64 `json:"profit"`
	Diversity  float64 `json:"diversity"`
	Confidence float64 `json:"confidence"`
}

// Sum returns the total weight mass
func (w Weights) Sum() float64 {
	return w.Lift + w.Profit + w.Diversity + w.Confidence
}

// DefaultWeights mirrors the product's shipped ranking emphasis
func DefaultWeights() Weights {
	return Weights{Lift: 0.30, Profit: 0.40, Diversity: 0.15, Confidence: 0.15}
}

// Params is the full parameter tuple of one mining run. It is part of the
// determinism fingerprint: two runs agree on output iff they agree on
// input data and Params.
type Params struct {
	MinSupport     float64 `json:"min_support"`
	MinConfidence  float64 `json:"min_confidence"`
	MaxItemsetSize int     `json:"max_itemset_size"`
	MinContextRows int     `json:"min_context_rows"`
	ContextDepth   int     `json:"context_depth"`
	Weights        Weights `json:"weights"`

	DefaultMarginPct float64 `json:"default_margin_pct"`

	TopK               int     `json:"top_k"`
	MinGroupSize       int     `json:"min_group_size"`
	ActionableUplift   float64 `json:"actionable_uplift"`
	CrossCheckMining   bool    `json:"cross_check_mining"`
	MinContextBaskets  int     `json:"min_context_baskets"`
	BootstrapResamples int     `json:"bootstrap_resamples"`
}

// DefaultParams returns the standard-mode parameter tuple
func DefaultParams() Params {
	return Params{
		MinSupport:         0.02,
		MinConfidence:      0.30,
		MaxItemsetSize:     3,
		MinContextRows:     100,
		ContextDepth:       2,
		Weights:            DefaultWeights(),
		DefaultMarginPct:   0.25,
		TopK:               10,
		MinGroupSize:       20,
		ActionableUplift:   0.05,
		CrossCheckMining:   true,
		MinContextBaskets:  5,
		BootstrapResamples: 20,
	}
}
