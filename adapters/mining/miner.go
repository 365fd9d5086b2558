package mining

import (
	"log"
	"math"

	"profitlift/domain/basket"
	"profitlift/domain/rules"
	"profitlift/domain/run"
	apperrors "profitlift/internal/errors"
)

// ContextMiner mines association rules for one context bucket at a time.
// Eclat is the primary miner; when cross-checking is enabled an Apriori
// pass validates its output and any divergence is logged as a defect
// signal without ever surfacing to callers.
type ContextMiner struct {
	eclat         *EclatMiner
	apriori       *AprioriMiner
	minSupport    float64
	minConfidence float64
	minBaskets    int
	crossCheck    bool
}

// crossCheckTolerance bounds the allowed support disagreement between the
// two miners. Both compute exact counts, so anything beyond float noise
// means a bug.
const crossCheckTolerance = 1e-9

func NewContextMiner(params run.Params) *ContextMiner {
	return &ContextMiner{
		eclat:         NewEclatMiner(params.MaxItemsetSize),
		apriori:       NewAprioriMiner(params.MaxItemsetSize),
		minSupport:    params.MinSupport,
		minConfidence: params.MinConfidence,
		minBaskets:    params.MinContextBaskets,
		crossCheck:    params.CrossCheckMining,
	}
}

// Mine extracts rules for the given context. An empty transaction slice
// yields an empty result; a non-empty slice below the basket minimum
// returns a recoverable data-insufficiency error so the caller can skip
// the context.
func (m *ContextMiner) Mine(ctx rules.Context, txs []basket.Transaction) ([]rules.ContextualRule, error) {
	if len(txs) == 0 {
		return nil, nil
	}
	if len(txs) < m.minBaskets {
		return nil, apperrors.DataInsufficient(ctx.Key(), len(txs), m.minBaskets)
	}

	baskets := basket.Baskets(txs)
	itemsets := m.eclat.FrequentItemsets(baskets, m.minSupport)
	if m.crossCheck {
		m.validate(ctx, baskets, itemsets)
	}

	return DeriveRules(itemsets, m.minConfidence, ctx), nil
}

// validate re-mines with Apriori and compares itemset tables. Divergence
// is a defect in one of the miners, never in the data, so it is logged
// loudly and the Eclat result still stands.
func (m *ContextMiner) validate(ctx rules.Context, baskets []basket.ItemSet, mined []ItemsetSupport) {
	reference := m.apriori.FrequentItemsets(baskets, m.minSupport)
	if len(reference) != len(mined) {
		log.Printf("[Miner] Cross-check divergence in context %s: eclat found %d itemsets, apriori found %d", ctx.Key(), len(mined), len(reference))
		return
	}
	for i := range mined {
		if mined[i].Items.Key() != reference[i].Items.Key() {
			log.Printf("[Miner] Cross-check divergence in context %s: itemset %s vs %s at position %d", ctx.Key(), mined[i].Items.Key(), reference[i].Items.Key(), i)
			return
		}
		if math.Abs(mined[i].Support-reference[i].Support) > crossCheckTolerance {
			log.Printf("[Miner] Cross-check divergence in context %s: itemset %s support %.12f vs %.12f", ctx.Key(), mined[i].Items.Key(), mined[i].Support, reference[i].Support)
			return
		}
	}
}
