package causal

import (
	"profitlift/domain/basket"
	apperrors "profitlift/internal/errors"
	"profitlift/ports"
)

// TLearner trains one outcome model per experiment arm and estimates
// uplift as the difference of their predicted probabilities. The arms
// share no parameters: training on disjoint groups is what turns the
// prediction gap into a causal estimate rather than a correlation readout.
type TLearner struct {
	control   ports.OutcomeEstimator
	treatment ports.OutcomeEstimator
	features  ports.FeatureExtractor
}

// NewTLearner builds both arms from the factory so each gets independent
// parameters
func NewTLearner(factory ports.EstimatorFactory, features ports.FeatureExtractor) *TLearner {
	return &TLearner{
		control:   factory(),
		treatment: factory(),
		features:  features,
	}
}

// Fit trains the control arm on control baskets and the treatment arm on
// treatment baskets
func (t *TLearner) Fit(groups SplitGroups, controlOutcomes, treatmentOutcomes []float64) error {
	if err := t.control.Fit(t.vectors(groups.Control), controlOutcomes); err != nil {
		return apperrors.Wrap(err, "fitting control estimator")
	}
	if err := t.treatment.Fit(t.vectors(groups.Treatment), treatmentOutcomes); err != nil {
		return apperrors.Wrap(err, "fitting treatment estimator")
	}
	return nil
}

// PredictUplift returns treatment minus control predicted probability for
// one basket
func (t *TLearner) PredictUplift(tx basket.Transaction) (float64, error) {
	vector := t.features.Vector(tx)
	pTreatment, err := t.treatment.PredictProbability(vector)
	if err != nil {
		return 0, err
	}
	pControl, err := t.control.PredictProbability(vector)
	if err != nil {
		return 0, err
	}
	return pTreatment - pControl, nil
}

// MeanUplift averages the per-basket uplift over every eligible basket,
// which is the incremental attach rate the estimate reports
func (t *TLearner) MeanUplift(txs []basket.Transaction) (float64, error) {
	if len(txs) == 0 {
		return 0, apperrors.DataInsufficient("uplift prediction set", 0, 1)
	}
	sum := 0.0
	for _, tx := range txs {
		uplift, err := t.PredictUplift(tx)
		if err != nil {
			return 0, err
		}
		sum += uplift
	}
	return sum / float64(len(txs)), nil
}

func (t *TLearner) vectors(txs []basket.Transaction) [][]float64 {
	matrix := make([][]float64, len(txs))
	for i, tx := range txs {
		matrix[i] = t.features.Vector(tx)
	}
	return matrix
}
