package main

import (
	"context"
	"log"

	"profitlift/adapters/ingest"
	"profitlift/adapters/postgres"
	"profitlift/adapters/rng"
	"profitlift/app"
	"profitlift/internal/config"
	"profitlift/internal/errors"
	"profitlift/internal/migration"
	"profitlift/internal/testkit"
	"profitlift/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const codeVersion = "1.0.0"

// initDatabase connects to PostgreSQL and brings the schema up to date
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}

// importFile loads a CSV or Excel transaction table into the store
func importFile(ctx context.Context, file string, store ports.TransactionStore) error {
	reader := ingest.NewDataReader(file, nil)
	txs, summary, err := reader.ReadTransactions()
	if err != nil {
		return err
	}
	if err := store.SaveTransactions(ctx, txs); err != nil {
		return err
	}
	log.Printf("Imported %d transactions from %s (%d of %d rows rejected)",
		summary.Transactions, file, summary.RowsRejected, summary.RowsRead)
	return nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var (
		store    ports.TransactionStore
		pipeline *app.PipelineService
		uplifts  *app.UpliftService
	)

	if appConfig.Database.URL != "" {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		store = postgres.NewTransactionStore(db)
		pipeline = app.NewPipelineService(store, postgres.NewRuleStore(db), postgres.NewRunStore(db), codeVersion)
		uplifts = app.NewUpliftService(store, postgres.NewRuleStore(db), postgres.NewUpliftStore(db), rng.New())
		log.Println("Using PostgreSQL store")
	} else {
		log.Println("No DATABASE_URL configured, using in-memory store")
		kit := testkit.NewTestKit()
		store = kit.TransactionStore()
		pipeline = kit.PipelineService(codeVersion)
		uplifts = kit.UpliftService()

		if appConfig.Data.File() == "" {
			if _, err := kit.SeedTransactions(ctx); err != nil {
				log.Fatalf("Failed to seed synthetic data: %v", err)
			}
		}
	}

	if file := appConfig.Data.File(); file != "" {
		if err := importFile(ctx, file, store); err != nil {
			log.Fatalf("Failed to import transactions: %v", err)
		}
	}

	count, err := store.CountTransactions(ctx)
	if err != nil {
		log.Fatalf("Failed to count transactions: %v", err)
	}
	if count == 0 {
		log.Fatal("No transactions available; set CSV_FILE or EXCEL_FILE to import data")
	}
	log.Printf("Mining %d transactions", count)

	params := appConfig.MiningParams()
	result, err := pipeline.Run(ctx, app.PipelineRequest{
		Params:       params,
		Seed:         appConfig.Mining.Seed,
		AutoDataMode: appConfig.Mining.AutoMode,
	})
	if err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}

	upliftResult, err := uplifts.EstimateTopK(ctx, app.UpliftRequest{
		RunID:       result.RunID,
		Params:      params,
		Seed:        appConfig.Mining.Seed,
		MaxParallel: int64(appConfig.Causal.MaxParallel),
	})
	if err != nil {
		log.Fatalf("Uplift estimation failed: %v", err)
	}

	logSummary(result, upliftResult)
}

// logSummary prints the run outcome in a few scannable lines
func logSummary(mined *app.PipelineResult, uplifted *app.UpliftResult) {
	log.Printf("Run %s: %d rules across %d contexts (%d skipped) in %dms",
		mined.RunID, mined.RuleCount, mined.ContextCount, mined.SkippedContexts, mined.RuntimeMs)

	top := mined.Rules
	if len(top) > 5 {
		top = top[:5]
	}
	for i, rule := range top {
		log.Printf("  #%d %s lift=%.2f score=%.3f", i+1, rule, rule.Lift, *rule.OverallScore)
	}

	log.Printf("Uplift: %d estimated, %d actionable, %d insufficient data, %d failed in %dms",
		len(uplifted.Estimates), uplifted.ActionableCount, uplifted.InsufficientCount,
		uplifted.FailedCount, uplifted.RuntimeMs)
}
