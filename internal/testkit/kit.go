package testkit

import (
	"context"
	"log"

	"profitlift/adapters/memory"
	"profitlift/adapters/rng"
	"profitlift/app"
	"profitlift/ports"
)

// TestKit wires the full pipeline against in-memory adapters and generated
// basket data. It is the entry point for demo mode and for integration-style
// tests that need the real services without Postgres.
type TestKit struct {
	store  *memory.Store // Shared backing store for all ports
	rng    ports.RNGPort
	config BasketGeneratorConfig
}

// NewTestKit creates a test kit seeded with the default generator config
func NewTestKit() *TestKit {
	return NewTestKitWithConfig(DefaultBasketConfig())
}

// NewTestKitWithConfig creates a test kit with a custom generator config
func NewTestKitWithConfig(config BasketGeneratorConfig) *TestKit {
	return &TestKit{
		store:  memory.NewStore(),
		rng:    rng.New(),
		config: config,
	}
}

// SeedTransactions generates synthetic baskets and loads them into the
// store. Returns the number of transactions seeded.
func (t *TestKit) SeedTransactions(ctx context.Context) (int, error) {
	txs := NewBasketDataGenerator(t.config).Generate()
	if err := t.store.SaveTransactions(ctx, txs); err != nil {
		return 0, err
	}
	log.Printf("[TestKit] Seeded %d synthetic transactions (seed %d)", len(txs), t.config.Seed)
	return len(txs), nil
}

// TransactionStore returns the writable transaction table backed by the
// shared store
func (t *TestKit) TransactionStore() ports.TransactionStore {
	return t.store
}

// RuleStore returns the rule store backed by the shared store
func (t *TestKit) RuleStore() ports.RuleStore {
	return t.store
}

// UpliftStore returns the uplift store backed by the shared store
func (t *TestKit) UpliftStore() ports.UpliftStore {
	return t.store
}

// RunStore returns the run store backed by the shared store
func (t *TestKit) RunStore() ports.RunStore {
	return t.store
}

// RNGAdapter returns the deterministic RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.rng
}

// PipelineService builds the mining pipeline against the shared store
func (t *TestKit) PipelineService(codeVersion string) *app.PipelineService {
	return app.NewPipelineService(t.store, t.store, t.store, codeVersion)
}

// UpliftService builds the uplift estimator against the shared store
func (t *TestKit) UpliftService() *app.UpliftService {
	return app.NewUpliftService(t.store, t.store, t.store, t.rng)
}
