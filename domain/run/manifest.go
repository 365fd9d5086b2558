package run

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"profitlift/domain/core"
)

// Manifest is the truth source for one mining run: the determinism tuple
// (data hash, params, seed, code version) plus outcome counts. It must be
// written before rules are considered durable - replaying a run against the
// same manifest must reproduce the same rule set bit for bit.
type Manifest struct {
	RunID       core.RunID             `json:"run_id"`
	DataHash    core.Hash              `json:"data_hash"`
	Params      Params                 `json:"params"`
	Seed        int64                  `json:"seed"`
	CodeVersion string                 `json:"code_version"`
	Fingerprint core.ParamsFingerprint `json:"fingerprint"`

	TransactionCount int `json:"transaction_count"`
	ContextCount     int `json:"context_count"`
	RuleCount        int `json:"rule_count"`
	SkippedContexts  int `json:"skipped_contexts"`

	StartedAt   core.Timestamp `json:"started_at"`
	CompletedAt core.Timestamp `json:"completed_at"`
}

// NewManifest assembles the determinism tuple at run start. Counts and
// CompletedAt are filled in when the run finishes.
func NewManifest(runID core.RunID, dataHash core.Hash, params Params, seed int64, codeVersion string) *Manifest {
	return &Manifest{
		RunID:       runID,
		DataHash:    dataHash,
		Params:      params,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: ComputeFingerprint(dataHash, params, seed, codeVersion),
		StartedAt:   core.Now(),
	}
}

// ComputeFingerprint hashes the determinism tuple in a canonical encoding
func ComputeFingerprint(dataHash core.Hash, params Params, seed int64, codeVersion string) core.ParamsFingerprint {
	data := fmt.Sprintf(
		"data:%s|support:%g|confidence:%g|itemset:%d|rows:%d|depth:%d|weights:%g,%g,%g,%g|margin:%g|topk:%d|group:%d|actionable:%g|crosscheck:%t|baskets:%d|bootstrap:%d|seed:%d|code:%s",
		dataHash,
		params.MinSupport, params.MinConfidence, params.MaxItemsetSize,
		params.MinContextRows, params.ContextDepth,
		params.Weights.Lift, params.Weights.Profit, params.Weights.Diversity, params.Weights.Confidence,
		params.DefaultMarginPct,
		params.TopK, params.MinGroupSize, params.ActionableUplift,
		params.CrossCheckMining, params.MinContextBaskets, params.BootstrapResamples,
		seed, codeVersion,
	)
	return core.NewParamsFingerprint([]byte(data))
}

// ComputeDataHash derives a stable hash of the input transaction identity
// set. Order of the input slice does not matter.
func ComputeDataHash(transactionIDs []core.TransactionID) core.Hash {
	ids := make([]string, len(transactionIDs))
	for i, id := range transactionIDs {
		ids[i] = string(id)
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return core.Hash(fmt.Sprintf("%x", h.Sum(nil)))
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewConfigurationError("run_manifest", "run_id cannot be empty")
	}
	if m.DataHash.IsEmpty() {
		return core.NewConfigurationError("run_manifest", "data_hash cannot be empty")
	}
	if m.CodeVersion == "" {
		return core.NewConfigurationError("run_manifest", "code_version cannot be empty")
	}
	return nil
}
