package causal

import (
	"math"

	"profitlift/domain/core"
	apperrors "profitlift/internal/errors"
	"profitlift/ports"
)

// Training schedule for the gradient-descent fit. Full-batch descent from
// zero-initialized weights is fully deterministic, which the reproducible
// uplift contract depends on.
const (
	logisticEpochs       = 500
	logisticLearningRate = 0.1
)

// LogisticEstimator is a binary outcome-probability model fit by gradient
// descent on standardized features. It satisfies ports.OutcomeEstimator;
// the two-model uplift design instantiates one per treatment arm.
type LogisticEstimator struct {
	weights []float64
	bias    float64

	featureMeans []float64
	featureStds  []float64
	fitted       bool
}

// NewLogisticFactory returns a factory producing fresh estimators. Each
// arm of the T-learner gets its own instance; nothing is shared between
// them, not even the standardization statistics.
func NewLogisticFactory() ports.EstimatorFactory {
	return func() ports.OutcomeEstimator { return &LogisticEstimator{} }
}

// Fit trains the model on (features, outcome) pairs. Outcomes must be 0
// or 1. Features are standardized against this training set's own column
// statistics before descent.
func (l *LogisticEstimator) Fit(features [][]float64, outcomes []float64) error {
	if len(features) == 0 {
		return apperrors.DataInsufficient("estimator training set", 0, 1)
	}
	if len(features) != len(outcomes) {
		return apperrors.InvalidInput("feature and outcome counts differ")
	}
	dims := len(features[0])
	if dims == 0 {
		return apperrors.InvalidInput("empty feature vectors")
	}
	for _, row := range features {
		if len(row) != dims {
			return apperrors.InvalidInput("ragged feature matrix")
		}
	}
	for _, y := range outcomes {
		if y != 0 && y != 1 {
			return apperrors.InvalidInput("outcomes must be 0 or 1")
		}
	}

	l.featureMeans, l.featureStds = columnStats(features)
	standardized := make([][]float64, len(features))
	for i, row := range features {
		standardized[i] = l.standardize(row)
	}

	l.weights = make([]float64, dims)
	l.bias = 0
	n := float64(len(standardized))

	for epoch := 0; epoch < logisticEpochs; epoch++ {
		gradW := make([]float64, dims)
		gradB := 0.0
		for i, row := range standardized {
			residual := sigmoid(dot(l.weights, row)+l.bias) - outcomes[i]
			for j, v := range row {
				gradW[j] += residual * v
			}
			gradB += residual
		}
		for j := range l.weights {
			l.weights[j] -= logisticLearningRate * gradW[j] / n
		}
		l.bias -= logisticLearningRate * gradB / n
	}

	l.fitted = true
	return nil
}

// PredictProbability returns P(outcome=1 | features)
func (l *LogisticEstimator) PredictProbability(features []float64) (float64, error) {
	if !l.fitted {
		return 0, core.ErrInvalidInput
	}
	if len(features) != len(l.weights) {
		return 0, apperrors.InvalidInput("feature vector length mismatch")
	}
	return sigmoid(dot(l.weights, l.standardize(features)) + l.bias), nil
}

func (l *LogisticEstimator) standardize(row []float64) []float64 {
	scaled := make([]float64, len(row))
	for j, v := range row {
		scaled[j] = (v - l.featureMeans[j]) / l.featureStds[j]
	}
	return scaled
}

// columnStats computes per-column mean and standard deviation. Constant
// columns get a standard deviation of 1 so they normalize to 0 instead of
// dividing by zero.
func columnStats(features [][]float64) ([]float64, []float64) {
	n := float64(len(features))
	dims := len(features[0])

	means := make([]float64, dims)
	for _, row := range features {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}

	stds := make([]float64, dims)
	for _, row := range features {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
