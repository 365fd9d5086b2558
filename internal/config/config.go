package config

import (
	"math"
	"os"
	"strconv"

	"profitlift/domain/run"
	"profitlift/internal/errors"
)

// weightTolerance bounds how far the weight vector may drift from 1.0
// before startup fails. Weights are never silently renormalized.
const weightTolerance = 1e-6

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Mining   MiningConfig
	Scoring  ScoringConfig
	Causal   CausalConfig
	Data     DataConfig
}

// DatabaseConfig holds database connection settings. An empty URL selects
// the in-memory store (demo and test mode).
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// MiningConfig holds segmentation and pattern mining thresholds
type MiningConfig struct {
	MinSupport     float64
	MinConfidence  float64
	MaxItemsetSize int
	MinContextRows int
	ContextDepth   int
	// AutoMode derives thresholds from transaction volume instead of the
	// explicit values above.
	AutoMode   bool
	CrossCheck bool
	Seed       int64
}

// ScoringConfig holds the multi-objective weight vector and profit defaults
type ScoringConfig struct {
	WeightLift       float64
	WeightProfit     float64
	WeightDiversity  float64
	WeightConfidence float64
	DefaultMarginPct float64
}

// CausalConfig holds uplift estimation settings
type CausalConfig struct {
	TopK               int
	MinGroupSize       int
	ActionableUplift   float64
	MaxParallel        int
	BootstrapResamples int
}

// DataConfig holds ingest settings
type DataConfig struct {
	CSVFile   string
	ExcelFile string
}

// File returns the configured import file, CSV taking precedence
func (d DataConfig) File() string {
	if d.CSVFile != "" {
		return d.CSVFile
	}
	return d.ExcelFile
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Mining:   loadMiningConfig(),
		Scoring:  loadScoringConfig(),
		Causal:   loadCausalConfig(),
		Data:     loadDataConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadMiningConfig() MiningConfig {
	return MiningConfig{
		MinSupport:     getEnvFloatOrDefault("MIN_SUPPORT", 0.02),
		MinConfidence:  getEnvFloatOrDefault("MIN_CONFIDENCE", 0.30),
		MaxItemsetSize: getEnvIntOrDefault("MAX_ITEMSET_SIZE", 3),
		MinContextRows: getEnvIntOrDefault("MIN_CONTEXT_ROWS", 100),
		ContextDepth:   getEnvIntOrDefault("CONTEXT_DEPTH", 2),
		AutoMode:       getEnvBoolOrDefault("AUTO_DATA_MODE", false),
		CrossCheck:     getEnvBoolOrDefault("MINING_CROSS_CHECK", true),
		Seed:           int64(getEnvIntOrDefault("PIPELINE_SEED", 42)),
	}
}

func loadScoringConfig() ScoringConfig {
	defaults := run.DefaultWeights()
	return ScoringConfig{
		WeightLift:       getEnvFloatOrDefault("WEIGHT_LIFT", defaults.Lift),
		WeightProfit:     getEnvFloatOrDefault("WEIGHT_PROFIT", defaults.Profit),
		WeightDiversity:  getEnvFloatOrDefault("WEIGHT_DIVERSITY", defaults.Diversity),
		WeightConfidence: getEnvFloatOrDefault("WEIGHT_CONFIDENCE", defaults.Confidence),
		DefaultMarginPct: getEnvFloatOrDefault("DEFAULT_MARGIN_PCT", 0.25),
	}
}

func loadCausalConfig() CausalConfig {
	return CausalConfig{
		TopK:               getEnvIntOrDefault("UPLIFT_TOP_K", 10),
		MinGroupSize:       getEnvIntOrDefault("UPLIFT_MIN_GROUP_SIZE", 20),
		ActionableUplift:   getEnvFloatOrDefault("UPLIFT_ACTIONABLE_THRESHOLD", 0.05),
		MaxParallel:        getEnvIntOrDefault("UPLIFT_MAX_PARALLEL", 4),
		BootstrapResamples: getEnvIntOrDefault("UPLIFT_BOOTSTRAP_RESAMPLES", 20),
	}
}

func loadDataConfig() DataConfig {
	return DataConfig{
		CSVFile:   getEnvOrDefault("CSV_FILE", ""),
		ExcelFile: getEnvOrDefault("EXCEL_FILE", ""),
	}
}

// Validate enforces the fatal configuration rules. Violations abort
// startup; nothing here is ever clamped or silently corrected.
func (c *Config) Validate() error {
	if err := c.Scoring.validateWeights(); err != nil {
		return err
	}
	if c.Mining.MinSupport <= 0 || c.Mining.MinSupport > 1 {
		return errors.ConfigInvalid("MIN_SUPPORT must be in (0,1]")
	}
	if c.Mining.MinConfidence <= 0 || c.Mining.MinConfidence > 1 {
		return errors.ConfigInvalid("MIN_CONFIDENCE must be in (0,1]")
	}
	if c.Mining.MaxItemsetSize < 2 {
		return errors.ConfigInvalid("MAX_ITEMSET_SIZE must be at least 2")
	}
	if c.Mining.MinContextRows < 1 {
		return errors.ConfigInvalid("MIN_CONTEXT_ROWS must be positive")
	}
	if c.Mining.ContextDepth < 0 || c.Mining.ContextDepth > 2 {
		return errors.ConfigInvalid("CONTEXT_DEPTH must be 0, 1 or 2")
	}
	if c.Scoring.DefaultMarginPct < 0 || c.Scoring.DefaultMarginPct > 1 {
		return errors.ConfigInvalid("DEFAULT_MARGIN_PCT must be in [0,1]")
	}
	if c.Causal.TopK < 1 {
		return errors.ConfigInvalid("UPLIFT_TOP_K must be positive")
	}
	if c.Causal.MinGroupSize < 1 {
		return errors.ConfigInvalid("UPLIFT_MIN_GROUP_SIZE must be positive")
	}
	if c.Causal.MaxParallel < 1 {
		return errors.ConfigInvalid("UPLIFT_MAX_PARALLEL must be positive")
	}
	if c.Causal.BootstrapResamples < 1 {
		return errors.ConfigInvalid("UPLIFT_BOOTSTRAP_RESAMPLES must be positive")
	}
	return nil
}

func (s ScoringConfig) validateWeights() error {
	sum := s.WeightLift + s.WeightProfit + s.WeightDiversity + s.WeightConfidence
	if math.Abs(sum-1.0) > weightTolerance {
		return errors.ConfigInvalid(
			"scoring weights must sum to 1.0, got " + strconv.FormatFloat(sum, 'f', -1, 64))
	}
	if s.WeightLift < 0 || s.WeightProfit < 0 || s.WeightDiversity < 0 || s.WeightConfidence < 0 {
		return errors.ConfigInvalid("scoring weights must be non-negative")
	}
	return nil
}

// Weights returns the validated weight vector
func (s ScoringConfig) Weights() run.Weights {
	return run.Weights{
		Lift:       s.WeightLift,
		Profit:     s.WeightProfit,
		Diversity:  s.WeightDiversity,
		Confidence: s.WeightConfidence,
	}
}

// MiningParams assembles the run parameter tuple from the loaded config
func (c *Config) MiningParams() run.Params {
	return run.Params{
		MinSupport:         c.Mining.MinSupport,
		MinConfidence:      c.Mining.MinConfidence,
		MaxItemsetSize:     c.Mining.MaxItemsetSize,
		MinContextRows:     c.Mining.MinContextRows,
		ContextDepth:       c.Mining.ContextDepth,
		Weights:            c.Scoring.Weights(),
		DefaultMarginPct:   c.Scoring.DefaultMarginPct,
		TopK:               c.Causal.TopK,
		MinGroupSize:       c.Causal.MinGroupSize,
		ActionableUplift:   c.Causal.ActionableUplift,
		CrossCheckMining:   c.Mining.CrossCheck,
		MinContextBaskets:  5,
		BootstrapResamples: c.Causal.BootstrapResamples,
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
