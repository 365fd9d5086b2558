package rng

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"profitlift/domain/core"
	"profitlift/ports"
)

// Deterministic implements ports.RNGPort with hash-derived seeds. The same
// (run, stage, rule, base seed) tuple always yields the same stream, which
// is what lets repeated pipeline runs reproduce identical uplift numbers.
type Deterministic struct{}

// New creates the deterministic RNG adapter
func New() *Deterministic {
	return &Deterministic{}
}

var _ ports.RNGPort = (*Deterministic)(nil)

// SeededStream creates a deterministic random number generator for a named operation
func (d *Deterministic) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(deriveSeed(seed, name))), nil
}

// Stream creates a deterministic RNG stream for a specific stage/rule pair
func (d *Deterministic) Stream(ctx context.Context, runID, stageName, ruleKey string, baseSeed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(deriveSeed(baseSeed, runID, stageName, ruleKey))), nil
}

// ValidateSeed replays the first values of a named stream against an
// expected prefix. A mismatch means the environment does not reproduce
// the recorded stream and determinism guarantees are void.
func (d *Deterministic) ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error {
	stream, err := d.SeededStream(ctx, name, seed)
	if err != nil {
		return err
	}
	for i, want := range expected {
		got := stream.Float64()
		if math.Abs(got-want) > 1e-12 {
			return fmt.Errorf("%w: stream %q at position %d: got %v, want %v", core.ErrSeedMismatch, name, i, got, want)
		}
	}
	return nil
}

// deriveSeed folds the key parts and base seed through SHA-256 so distinct
// tuples land on well-separated seeds.
func deriveSeed(baseSeed int64, parts ...string) int64 {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(baseSeed))
	h.Write(buf[:])
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]))
}
