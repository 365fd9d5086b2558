package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"profitlift/adapters/ingest"
	"profitlift/adapters/memory"
	"profitlift/adapters/postgres"
	"profitlift/adapters/rng"
	"profitlift/app"
	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/uplift"
	"profitlift/internal/config"
	"profitlift/internal/migration"
	"profitlift/internal/testkit"
	"profitlift/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

const codeVersion = "1.0.0"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "profitlift-cli",
		Short: "ProfitLift CLI for basket mining, uplift estimation and rule queries",
	}

	rootCmd.AddCommand(
		newImportCmd(),
		newGenerateCmd(),
		newMineCmd(),
		newUpliftCmd(),
		newRulesCmd(),
		newWhatIfCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliStores bundles every persistence port behind one wiring decision
type cliStores struct {
	db           *sqlx.DB
	Transactions ports.TransactionStore
	Rules        ports.RuleStore
	Uplift       ports.UpliftStore
	Runs         ports.RunStore
}

// openStores connects to Postgres when DATABASE_URL is set and falls back
// to a process-local in-memory store otherwise.
func openStores() (*cliStores, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		fmt.Fprintln(os.Stderr, "No DATABASE_URL configured; using an in-memory store (data does not persist between commands)")
		mem := memory.NewStore()
		return &cliStores{Transactions: mem, Rules: mem, Uplift: mem, Runs: mem}, nil
	}

	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migration.NewRunner().Run(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return &cliStores{
		db:           db,
		Transactions: postgres.NewTransactionStore(db),
		Rules:        postgres.NewRuleStore(db),
		Uplift:       postgres.NewUpliftStore(db),
		Runs:         postgres.NewRunStore(db),
	}, nil
}

func (s *cliStores) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func newImportCmd() *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a CSV or Excel transaction table",
		Long: `Import transactions from a CSV or Excel file into the configured store.

Required columns: transaction_id, timestamp, store_id, item_id, price.
Optional columns: quantity, margin_pct, category, discount_flag, customer_id.

Example: profitlift-cli import transactions.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args[0], sheet)
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "Sheet1", "Excel sheet name")

	return cmd
}

func runImport(ctx context.Context, file, sheet string) error {
	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	reader := ingest.NewDataReader(file, nil).WithSheet(sheet)
	txs, summary, err := reader.ReadTransactions()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if err := stores.Transactions.SaveTransactions(ctx, txs); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Printf("📦 Imported %d transactions (%d distinct items)\n", summary.Transactions, summary.DistinctItems)
	if summary.RowsRejected > 0 {
		fmt.Printf("⚠️  Rejected %d of %d rows:\n", summary.RowsRejected, summary.RowsRead)
		reasons := make([]string, 0, len(summary.RejectReasons))
		for reason := range summary.RejectReasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Printf("   %s: %d\n", reason, summary.RejectReasons[reason])
		}
	}
	return nil
}

func newGenerateCmd() *cobra.Command {
	var count, storeCount, maxBasket int
	var seed int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic basket data with planted co-purchase patterns",
		Long: `Generate a deterministic synthetic transaction history and save it to
the configured store. The data carries planted co-purchase patterns
(chai+rusk mornings, beer+chips evenings, festival bundles) that the
miner is expected to recover.

Example: profitlift-cli generate --count 5000 --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), count, storeCount, maxBasket, seed)
		},
	}

	cmd.Flags().IntVar(&count, "count", 5000, "Number of transactions to generate")
	cmd.Flags().IntVar(&storeCount, "stores", 3, "Number of stores")
	cmd.Flags().IntVar(&maxBasket, "max-basket", 8, "Maximum basket size")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic operations")

	return cmd
}

func runGenerate(ctx context.Context, count, storeCount, maxBasket int, seed int64) error {
	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	genConfig := testkit.DefaultBasketConfig()
	genConfig.TransactionCount = count
	genConfig.StoreCount = storeCount
	genConfig.MaxBasketSize = maxBasket
	genConfig.Seed = seed

	txs := testkit.NewBasketDataGenerator(genConfig).Generate()
	if err := stores.Transactions.SaveTransactions(ctx, txs); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Printf("🧺 Generated %d synthetic transactions (seed %d)\n", len(txs), seed)
	return nil
}

func newMineCmd() *cobra.Command {
	var seed int64
	var auto bool
	var synthetic bool

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Run the full context mining pipeline",
		Long: `Segment the transaction history into contexts, mine association rules
per context in parallel and persist the scored, ranked rule set with a
run manifest. Thresholds come from the environment (MIN_SUPPORT,
MIN_CONFIDENCE, CONTEXT_DEPTH, ...).

Example: profitlift-cli mine --seed 42 --auto`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMine(cmd.Context(), seed, auto, synthetic)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic operations")
	cmd.Flags().BoolVar(&auto, "auto", false, "Derive thresholds from dataset size")
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "Seed synthetic data when the store is empty")

	return cmd
}

func runMine(ctx context.Context, seed int64, auto, synthetic bool) error {
	appConfig, err := config.Load()
	if err != nil {
		return err
	}
	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	count, err := stores.Transactions.CountTransactions(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		if !synthetic {
			return fmt.Errorf("no transactions in store; run import or generate first (or pass --synthetic)")
		}
		txs := testkit.NewBasketDataGenerator(testkit.DefaultBasketConfig()).Generate()
		if err := stores.Transactions.SaveTransactions(ctx, txs); err != nil {
			return err
		}
		fmt.Printf("🧺 Seeded %d synthetic transactions\n", len(txs))
	}

	pipeline := app.NewPipelineService(stores.Transactions, stores.Rules, stores.Runs, codeVersion)
	result, err := pipeline.Run(ctx, app.PipelineRequest{
		Params:       appConfig.MiningParams(),
		Seed:         seed,
		AutoDataMode: auto,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 MINING RESULTS\n")
	fmt.Printf("Run: %s\n", result.RunID)
	fmt.Printf("Contexts: %d mined, %d skipped\n", result.ContextCount, result.SkippedContexts)
	fmt.Printf("Rules: %d in %dms\n", result.RuleCount, result.RuntimeMs)

	top := result.Rules
	if len(top) > 10 {
		top = top[:10]
	}
	if len(top) > 0 {
		fmt.Printf("\n🏆 TOP RULES:\n")
	}
	for i, rule := range top {
		fmt.Printf("%d. %s\n", i+1, rule)
		fmt.Printf("   support=%.3f confidence=%.2f lift=%.2f score=%.3f\n",
			rule.Support, rule.Confidence, rule.Lift, *rule.OverallScore)
	}
	return nil
}

func newUpliftCmd() *cobra.Command {
	var runIDStr string
	var topK int
	var seed int64

	cmd := &cobra.Command{
		Use:   "uplift",
		Short: "Estimate causal uplift for the top-ranked rules",
		Long: `Run T-learner uplift estimation over the highest scoring rules of a
mining run and persist the estimates. Defaults to the most recent run.

Example: profitlift-cli uplift --top-k 10 --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUplift(cmd.Context(), runIDStr, topK, seed)
		},
	}

	cmd.Flags().StringVar(&runIDStr, "run-id", "", "Run to estimate (default: most recent)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of rules to estimate (default: UPLIFT_TOP_K)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic operations")

	return cmd
}

func runUplift(ctx context.Context, runIDStr string, topK int, seed int64) error {
	appConfig, err := config.Load()
	if err != nil {
		return err
	}
	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	runID := core.RunID(runIDStr)
	if runIDStr == "" {
		manifests, err := stores.Runs.ListManifests(ctx, 1)
		if err != nil {
			return err
		}
		if len(manifests) == 0 {
			return fmt.Errorf("no mining runs found; run mine first")
		}
		runID = manifests[0].RunID
	}

	service := app.NewUpliftService(stores.Transactions, stores.Rules, stores.Uplift, rng.New())
	result, err := service.EstimateTopK(ctx, app.UpliftRequest{
		RunID:       runID,
		Params:      appConfig.MiningParams(),
		Seed:        seed,
		TopK:        topK,
		MaxParallel: int64(appConfig.Causal.MaxParallel),
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n📈 UPLIFT RESULTS (run %s)\n", runID)
	fmt.Printf("Estimated: %d, actionable: %d, insufficient data: %d, failed: %d\n",
		len(result.Estimates), result.ActionableCount, result.InsufficientCount, result.FailedCount)

	for i, e := range result.Estimates {
		marker := "  "
		if e.Actionable {
			marker = "✅"
		}
		if e.State == uplift.StateInsufficientData {
			fmt.Printf("%s %d. rule %s: insufficient data (%d eligible baskets)\n", marker, i+1, e.RuleID, e.SampleSize())
			continue
		}
		fmt.Printf("%s %d. rule %s: attach %+.3f [%.3f, %.3f] p=%.3f margin %+.2f\n",
			marker, i+1, e.RuleID, e.IncrementalAttachRate, e.ConfidenceLow, e.ConfidenceHigh, e.PValue, e.IncrementalMargin)
	}
	return nil
}

func newRulesCmd() *cobra.Command {
	var storeID, timeBin, dayType, quarter, festival string
	var minLift, minScore float64
	var actionable bool
	var limit int

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Query the current rule set",
		Long: `Query stored rules ordered by overall score descending. All filters
are optional and combine with AND semantics.

Example: profitlift-cli rules --time-bin morning --min-lift 1.5 --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ports.RuleFilter{ActionableOnly: actionable, Limit: limit}
			if storeID != "" {
				v := core.StoreID(storeID)
				filter.StoreID = &v
			}
			if timeBin != "" {
				v := basket.TimeBin(timeBin)
				filter.TimeBin = &v
			}
			if dayType != "" {
				v := basket.DayType(dayType)
				filter.DayType = &v
			}
			if quarter != "" {
				v := basket.Quarter(quarter)
				filter.Quarter = &v
			}
			if festival != "" {
				v := basket.FestivalPeriod(festival)
				filter.Festival = &v
			}
			if cmd.Flags().Changed("min-lift") {
				filter.MinLift = &minLift
			}
			if cmd.Flags().Changed("min-score") {
				filter.MinScore = &minScore
			}
			return runRules(cmd.Context(), filter)
		},
	}

	cmd.Flags().StringVar(&storeID, "store", "", "Filter by store id")
	cmd.Flags().StringVar(&timeBin, "time-bin", "", "Filter by time bin (morning|midday|afternoon|evening|night)")
	cmd.Flags().StringVar(&dayType, "day-type", "", "Filter by day type (weekday|weekend)")
	cmd.Flags().StringVar(&quarter, "quarter", "", "Filter by quarter (Q1..Q4)")
	cmd.Flags().StringVar(&festival, "festival", "", "Filter by festival period")
	cmd.Flags().Float64Var(&minLift, "min-lift", 0, "Minimum lift")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum overall score")
	cmd.Flags().BoolVar(&actionable, "actionable", false, "Only rules with an actionable uplift estimate")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rules to return")

	return cmd
}

func runRules(ctx context.Context, filter ports.RuleFilter) error {
	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	found, err := stores.Rules.QueryRules(ctx, filter)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("No rules found")
		return nil
	}

	fmt.Printf("📋 %d rules:\n", len(found))
	for i, rule := range found {
		fmt.Printf("%d. %s\n", i+1, rule)
		fmt.Printf("   id=%s support=%.3f confidence=%.2f lift=%.2f", rule.ID, rule.Support, rule.Confidence, rule.Lift)
		if rule.OverallScore != nil {
			fmt.Printf(" score=%.3f", *rule.OverallScore)
		}
		fmt.Println()
	}
	return nil
}

func newWhatIfCmd() *cobra.Command {
	var discount float64
	var traffic int

	cmd := &cobra.Command{
		Use:   "whatif [rule-id]",
		Short: "Project uplift economics under a discount scenario",
		Long: `Apply a what-if discount to a rule's causal estimate. The discount
trims per-unit revenue and margin; the causal attach rate is unchanged.

Example: profitlift-cli whatif 6e1f4c2a-... --discount 0.10 --traffic 1000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhatIf(cmd.Context(), core.RuleID(args[0]), discount, traffic)
		},
	}

	cmd.Flags().Float64Var(&discount, "discount", 0.10, "Discount fraction applied to the bundle")
	cmd.Flags().IntVar(&traffic, "traffic", 0, "Expected eligible basket count (0 skips the total projection)")

	return cmd
}

func runWhatIf(ctx context.Context, ruleID core.RuleID, discount float64, traffic int) error {
	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	rule, err := stores.Rules.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	estimate, err := stores.Uplift.GetEstimate(ctx, ruleID)
	if err != nil {
		return err
	}
	if estimate.State != uplift.StateEstimated {
		return fmt.Errorf("rule %s has no usable estimate (state %s)", ruleID, estimate.State)
	}

	projection := uplift.Project(*estimate, uplift.Scenario{DiscountPct: discount, ExpectedTraffic: traffic})

	fmt.Printf("🔮 WHAT-IF: %s at %.0f%% discount\n", rule, discount*100)
	fmt.Printf("Projected attach rate:   %.3f\n", projection.ProjectedAttachRate)
	fmt.Printf("Incremental attach rate: %+.3f\n", projection.IncrementalAttachRate)
	fmt.Printf("Incremental revenue:     %+.2f per eligible basket\n", projection.IncrementalRevenue)
	fmt.Printf("Incremental margin:      %+.2f per eligible basket\n", projection.IncrementalMargin)
	if projection.ProjectedMarginTotal != nil {
		fmt.Printf("Projected margin total:  %+.2f over %d baskets\n", *projection.ProjectedMarginTotal, traffic)
	}
	if !estimate.Actionable {
		fmt.Println("⚠️  Estimate is below the actionable threshold; treat the projection as exploratory")
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := os.Getenv("DATABASE_URL")
			if url == "" {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}
			db, err := sqlx.Connect("postgres", url)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			migrator := migration.NewRunner()
			if err := migrator.Run(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Printf("✅ Schema version %s up to date\n", migrator.Version())
			return nil
		},
	}
}
