package uplift

import (
	"fmt"

	"profitlift/domain/core"
)

// EstimationState tracks a rule's progress through causal estimation
type EstimationState string

const (
	StateNotEstimated     EstimationState = "not_estimated"
	StateEstimating       EstimationState = "estimating"
	StateEstimated        EstimationState = "estimated"
	StateInsufficientData EstimationState = "insufficient_data"
)

// validTransitions encodes the per-rule state machine:
// not_estimated -> estimating -> {estimated | insufficient_data}
var validTransitions = map[EstimationState][]EstimationState{
	StateNotEstimated: {StateEstimating},
	StateEstimating:   {StateEstimated, StateInsufficientData},
}

// CanTransition reports whether moving from one state to another is legal
func CanTransition(from, to EstimationState) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Estimate is the causal uplift result for one rule. Rates are empirical
// outcome means; the attach rate is the T-learner prediction difference
// averaged over all eligible baskets. Once computed an estimate is never
// dropped, even when flagged non-actionable.
type Estimate struct {
	RuleID core.RuleID     `json:"rule_id"`
	RunID  core.RunID      `json:"run_id"`
	State  EstimationState `json:"state"`

	IncrementalAttachRate float64 `json:"incremental_attach_rate"`
	IncrementalRevenue    float64 `json:"incremental_revenue"`
	IncrementalMargin     float64 `json:"incremental_margin"`
	ControlRate           float64 `json:"control_rate"`
	TreatmentRate         float64 `json:"treatment_rate"`

	ConfidenceLow  float64 `json:"confidence_low"`
	ConfidenceHigh float64 `json:"confidence_high"`
	PValue         float64 `json:"p_value"`

	ControlSize   int  `json:"control_size"`
	TreatmentSize int  `json:"treatment_size"`
	Actionable    bool `json:"actionable"`

	Seed        int64          `json:"seed"`
	EstimatedAt core.Timestamp `json:"estimated_at"`
}

// SampleSize is the total eligible basket count behind the estimate
func (e Estimate) SampleSize() int {
	return e.ControlSize + e.TreatmentSize
}

// Validate enforces the numeric invariants on a finished estimate
func (e Estimate) Validate() error {
	if e.State != StateEstimated && e.State != StateInsufficientData {
		return fmt.Errorf("%w: estimate in non-terminal state %q", core.ErrInvalidInput, e.State)
	}
	if e.ControlRate < 0 || e.ControlRate > 1 {
		return fmt.Errorf("%w: control rate %f outside [0,1]", core.ErrInvalidInput, e.ControlRate)
	}
	if e.TreatmentRate < 0 || e.TreatmentRate > 1 {
		return fmt.Errorf("%w: treatment rate %f outside [0,1]", core.ErrInvalidInput, e.TreatmentRate)
	}
	return nil
}
