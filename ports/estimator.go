package ports

import (
	"profitlift/domain/basket"
)

// OutcomeEstimator is the capability a binary classifier must satisfy to
// serve as one arm of the two-model uplift estimator. Any calibrated
// probability model qualifies; the pipeline never depends on a concrete
// implementation.
type OutcomeEstimator interface {
	// Fit trains on (feature vector, outcome) pairs. Outcomes are 0 or 1.
	Fit(features [][]float64, outcomes []float64) error

	// PredictProbability returns P(outcome=1 | features) in [0,1].
	// Calling before Fit is an error.
	PredictProbability(features []float64) (float64, error)
}

// EstimatorFactory builds a fresh, independently parameterized estimator.
// The two-model design requires two separate instances with no shared
// state - that separation is what makes the prediction difference causal.
type EstimatorFactory func() OutcomeEstimator

// FeatureExtractor maps a transaction to the numeric vector the estimators
// train on. The estimator itself only requires "a numeric vector per
// basket"; the concrete feature choice lives with the collaborator.
type FeatureExtractor interface {
	// Vector returns the feature values for one transaction. Must return
	// the same length for every transaction in a batch.
	Vector(tx basket.Transaction) []float64

	// Names returns the feature names aligned with Vector's output
	Names() []string
}
