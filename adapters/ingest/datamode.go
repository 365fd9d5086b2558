package ingest

import (
	"profitlift/domain/run"
)

// DataMode recommends mining thresholds from data volume so the pipeline
// works for a large chain and a small kirana alike.
type DataMode struct {
	Mode           string
	ContextDepth   int
	MinSupport     float64
	MinConfidence  float64
	MinContextRows int
}

// DetectDataMode picks the parameter tier for a transaction count
func DetectDataMode(transactionCount int) DataMode {
	switch {
	case transactionCount >= 10000:
		// Large dataset - full context mining with store/time combinations
		return DataMode{Mode: "full", ContextDepth: 2, MinSupport: 0.01, MinConfidence: 0.30, MinContextRows: 100}
	case transactionCount >= 2000:
		// Medium dataset - single-dimension contexts only
		return DataMode{Mode: "standard", ContextDepth: 1, MinSupport: 0.02, MinConfidence: 0.25, MinContextRows: 50}
	case transactionCount >= 500:
		// Small dataset - limited context mining
		return DataMode{Mode: "compact", ContextDepth: 1, MinSupport: 0.05, MinConfidence: 0.20, MinContextRows: 30}
	default:
		// Very small - overall patterns only
		return DataMode{Mode: "minimal", ContextDepth: 0, MinSupport: 0.08, MinConfidence: 0.15, MinContextRows: 10}
	}
}

// Apply overrides the volume-sensitive fields of a parameter tuple. The
// explicit configuration path never calls this; it only serves auto mode.
func (m DataMode) Apply(params run.Params) run.Params {
	params.ContextDepth = m.ContextDepth
	params.MinSupport = m.MinSupport
	params.MinConfidence = m.MinConfidence
	params.MinContextRows = m.MinContextRows
	return params
}
