package config

import (
	"strings"
	"testing"

	"profitlift/internal/errors"
)

func validConfig() *Config {
	return &Config{
		Mining: MiningConfig{
			MinSupport:     0.02,
			MinConfidence:  0.30,
			MaxItemsetSize: 3,
			MinContextRows: 100,
			ContextDepth:   2,
		},
		Scoring: ScoringConfig{
			WeightLift:       0.30,
			WeightProfit:     0.40,
			WeightDiversity:  0.15,
			WeightConfidence: 0.15,
			DefaultMarginPct: 0.25,
		},
		Causal: CausalConfig{
			TopK:               10,
			MinGroupSize:       20,
			ActionableUplift:   0.05,
			MaxParallel:        4,
			BootstrapResamples: 20,
		},
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Valid configuration rejected: %v", err)
	}
}

func TestValidate_WeightsMustSumToOne(t *testing.T) {
	cfg := validConfig()
	cfg.Scoring.WeightLift = 0.50 // sum becomes 1.20

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected fatal error for weights not summing to 1")
	}
	if errors.GetCode(err) != errors.CodeConfigInvalid {
		t.Errorf("Expected CONFIG_INVALID code, got %s", errors.GetCode(err))
	}
	if !strings.Contains(err.Error(), "sum to 1") {
		t.Errorf("Error should name the weight-sum rule, got: %v", err)
	}
}

func TestValidate_WeightsWithinTolerance(t *testing.T) {
	cfg := validConfig()
	// A hair off 1.0 from float arithmetic should still pass
	cfg.Scoring.WeightConfidence = 0.15 + 5e-8

	if err := cfg.Validate(); err != nil {
		t.Errorf("Tolerance should absorb float noise: %v", err)
	}
}

func TestValidate_NegativeWeightRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Scoring.WeightLift = -0.10
	cfg.Scoring.WeightProfit = 0.80

	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected error for negative weight")
	}
}

func TestValidate_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero support", func(c *Config) { c.Mining.MinSupport = 0 }},
		{"support above one", func(c *Config) { c.Mining.MinSupport = 1.5 }},
		{"zero confidence", func(c *Config) { c.Mining.MinConfidence = 0 }},
		{"itemset size one", func(c *Config) { c.Mining.MaxItemsetSize = 1 }},
		{"zero context rows", func(c *Config) { c.Mining.MinContextRows = 0 }},
		{"depth three", func(c *Config) { c.Mining.ContextDepth = 3 }},
		{"zero top-k", func(c *Config) { c.Causal.TopK = 0 }},
		{"zero group size", func(c *Config) { c.Causal.MinGroupSize = 0 }},
		{"zero parallelism", func(c *Config) { c.Causal.MaxParallel = 0 }},
		{"margin above one", func(c *Config) { c.Scoring.DefaultMarginPct = 1.2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation failure for %s", tt.name)
			}
		})
	}
}

func TestMiningParams_CarriesWeights(t *testing.T) {
	cfg := validConfig()
	params := cfg.MiningParams()

	if params.Weights.Sum() < 0.999999 || params.Weights.Sum() > 1.000001 {
		t.Errorf("Params weights should sum to 1, got %f", params.Weights.Sum())
	}
	if params.MinSupport != cfg.Mining.MinSupport {
		t.Errorf("MinSupport not carried: %f vs %f", params.MinSupport, cfg.Mining.MinSupport)
	}
	if params.TopK != cfg.Causal.TopK {
		t.Errorf("TopK not carried: %d vs %d", params.TopK, cfg.Causal.TopK)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MIN_SUPPORT", "0.05")
	t.Setenv("UPLIFT_TOP_K", "25")
	t.Setenv("WEIGHT_LIFT", "0.30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mining.MinSupport != 0.05 {
		t.Errorf("Expected MIN_SUPPORT override 0.05, got %f", cfg.Mining.MinSupport)
	}
	if cfg.Causal.TopK != 25 {
		t.Errorf("Expected UPLIFT_TOP_K override 25, got %d", cfg.Causal.TopK)
	}
}

func TestLoad_BadWeightsFatal(t *testing.T) {
	t.Setenv("WEIGHT_LIFT", "0.9")

	if _, err := Load(); err == nil {
		t.Fatal("Expected Load to fail when env weights break the sum rule")
	}
}
