package testkit

import (
	"fmt"
	"math/rand"
	"time"

	"profitlift/adapters/ingest"
	"profitlift/domain/basket"
	"profitlift/domain/core"
)

// BasketGeneratorConfig configures the synthetic transaction generator
type BasketGeneratorConfig struct {
	TransactionCount int       `json:"transaction_count"`
	StoreCount       int       `json:"store_count"`
	CustomerCount    int       `json:"customer_count"`
	MaxBasketSize    int       `json:"max_basket_size"`
	DiscountRate     float64   `json:"discount_rate"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Seed             int64     `json:"seed"`
}

// DefaultBasketConfig returns sensible defaults for basket generation.
// The window spans Q3 into Q4 so quarter and festival contexts both get
// populated (the default calendar has diwali in mid November).
func DefaultBasketConfig() BasketGeneratorConfig {
	return BasketGeneratorConfig{
		TransactionCount: 5000,
		StoreCount:       3,
		CustomerCount:    400,
		MaxBasketSize:    8,
		DiscountRate:     0.10,
		StartDate:        time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2024, 11, 15, 23, 59, 59, 0, time.UTC),
		Seed:             42,
	}
}

// catalogItem is one product the generator can place into baskets
type catalogItem struct {
	id       core.ItemID
	category string
	price    float64
	margin   float64
}

// catalog is the fixed product universe. Categories line up with the
// ingest margin table so generated data exercises every branch of the
// margin fallback chain.
var catalog = []catalogItem{
	{"milk", "dairy", 3.50, 0.30},
	{"bread", "bakery", 2.00, 0.25},
	{"butter", "dairy", 4.00, 0.35},
	{"eggs", "dairy", 3.00, 0.35},
	{"cheese", "dairy", 6.00, 0.35},
	{"yogurt", "dairy", 2.50, 0.35},
	{"chai", "beverages", 3.00, 0.35},
	{"coffee", "beverages", 4.50, 0.40},
	{"cola", "beverages", 2.50, 0.15},
	{"water", "beverages", 1.00, 0.10},
	{"rusk", "bakery", 2.50, 0.30},
	{"jam", "packaged_food", 3.50, 0.35},
	{"cereal", "packaged_food", 5.00, 0.40},
	{"rice", "grocery", 2.50, 0.30},
	{"atta", "grocery", 3.00, 0.28},
	{"dal", "grocery", 3.20, 0.26},
	{"oil", "grocery", 5.50, 0.18},
	{"banana", "fruits", 0.80, 0.50},
	{"apples", "fruits", 2.50, 0.45},
	{"potatoes", "vegetables", 4.00, 0.40},
	{"tomatoes", "vegetables", 3.00, 0.50},
	{"onions", "vegetables", 2.00, 0.45},
	{"chicken", "meat", 12.00, 0.20},
	{"paneer", "dairy", 7.00, 0.30},
	{"chips", "snacks", 1.80, 0.30},
	{"namkeen", "snacks", 2.20, 0.32},
	{"biscuits", "snacks", 1.50, 0.28},
	{"sandwich", "prepared", 8.50, 0.20},
	{"salad", "prepared", 6.50, 0.25},
	{"soap", "personal_care", 1.20, 0.30},
	{"shampoo", "personal_care", 4.80, 0.32},
	{"detergent", "household", 6.20, 0.22},
	{"sweets", "packaged_food", 9.00, 0.42},
	{"dryfruits", "grocery", 14.00, 0.38},
	{"diyas", "household", 3.50, 0.55},
	{"beer", "beverages", 4.20, 0.18},
}

// copurchasePattern plants an association the miner should recover. When
// the trigger lands in a basket, companions attach with the given
// probability, optionally gated by time bin or store.
type copurchasePattern struct {
	trigger     core.ItemID
	companions  []core.ItemID
	probability float64
	timeBin     basket.TimeBin
	storeID     core.StoreID
	festival    basket.FestivalPeriod
}

var plantedPatterns = []copurchasePattern{
	{trigger: "chai", companions: []core.ItemID{"rusk"}, probability: 0.70, timeBin: basket.TimeBinMorning},
	{trigger: "cereal", companions: []core.ItemID{"milk"}, probability: 0.75, timeBin: basket.TimeBinMorning},
	{trigger: "bread", companions: []core.ItemID{"butter", "jam"}, probability: 0.45, timeBin: basket.TimeBinMorning},
	{trigger: "sandwich", companions: []core.ItemID{"cola"}, probability: 0.80, timeBin: basket.TimeBinMidday},
	{trigger: "salad", companions: []core.ItemID{"water"}, probability: 0.65, timeBin: basket.TimeBinMidday},
	{trigger: "beer", companions: []core.ItemID{"chips"}, probability: 0.60, timeBin: basket.TimeBinEvening, storeID: "S2"},
	{trigger: "milk", companions: []core.ItemID{"bread"}, probability: 0.40},
	{trigger: "paneer", companions: []core.ItemID{"tomatoes", "onions"}, probability: 0.50},
	{trigger: "sweets", companions: []core.ItemID{"dryfruits", "diyas"}, probability: 0.65, festival: "diwali"},
}

// seedRate is how often a pattern trigger starts a basket
const seedRate = 0.35

// BasketDataGenerator generates deterministic retail transactions with
// planted co-purchase structure
type BasketDataGenerator struct {
	config   BasketGeneratorConfig
	rng      *rand.Rand
	calendar *ingest.Calendar
	enricher *ingest.Enricher
	index    map[core.ItemID]catalogItem
}

// NewBasketDataGenerator creates a new basket generator
func NewBasketDataGenerator(config BasketGeneratorConfig) *BasketDataGenerator {
	index := make(map[core.ItemID]catalogItem, len(catalog))
	for _, it := range catalog {
		index[it.id] = it
	}
	calendar := ingest.DefaultCalendar()
	return &BasketDataGenerator{
		config:   config,
		rng:      rand.New(rand.NewSource(config.Seed)),
		calendar: calendar,
		enricher: ingest.NewEnricher(calendar),
		index:    index,
	}
}

// Generate produces the configured number of enriched transactions.
// Same config (including seed) yields the same slice every time.
func (g *BasketDataGenerator) Generate() []basket.Transaction {
	txs := make([]basket.Transaction, 0, g.config.TransactionCount)
	for i := 0; i < g.config.TransactionCount; i++ {
		txs = append(txs, g.generateTransaction(i))
	}
	return g.enricher.EnrichAll(txs)
}

func (g *BasketDataGenerator) generateTransaction(seq int) basket.Transaction {
	ts := g.randomShoppingTime()
	storeID := core.StoreID(fmt.Sprintf("S%d", g.rng.Intn(g.config.StoreCount)+1))
	bin := ingest.TimeBinFor(ts.Hour())
	festival := g.calendar.FestivalFor(ts)

	items := g.buildBasket(bin, storeID, festival)

	lines := make([]basket.LineItem, 0, len(items))
	for _, id := range items.Sorted() {
		info := g.index[id]
		line := basket.LineItem{
			ItemID:    id,
			Quantity:  1 + g.rng.Intn(2),
			UnitPrice: info.price,
			Category:  info.category,
		}
		// Explicit margins on most lines; the rest fall back to the
		// category table downstream.
		if g.rng.Float64() < 0.6 {
			m := info.margin
			line.MarginPct = &m
		}
		lines = append(lines, line)
	}

	customer := fmt.Sprintf("CUST%03d", g.rng.Intn(g.config.CustomerCount)+1)
	return basket.Transaction{
		ID:           core.TransactionID(fmt.Sprintf("T%06d", seq+1)),
		Timestamp:    core.NewTimestamp(ts),
		StoreID:      storeID,
		Items:        lines,
		CustomerHash: core.NewCustomerHash(customer),
		DiscountFlag: g.rng.Float64() < g.config.DiscountRate,
	}
}

// buildBasket seeds pattern triggers, attaches their companions, then fills
// the rest with uniform noise.
func (g *BasketDataGenerator) buildBasket(bin basket.TimeBin, storeID core.StoreID, festival basket.FestivalPeriod) basket.ItemSet {
	items := basket.ItemSet{}

	for _, p := range plantedPatterns {
		if p.timeBin != "" && p.timeBin != bin {
			continue
		}
		if p.storeID != "" && p.storeID != storeID {
			continue
		}
		if p.festival != "" && p.festival != festival {
			continue
		}
		if !items.Contains(p.trigger) && g.rng.Float64() >= seedRate {
			continue
		}
		items[p.trigger] = struct{}{}
		if g.rng.Float64() < p.probability {
			for _, c := range p.companions {
				items[c] = struct{}{}
			}
		}
	}

	targetSize := 1 + g.rng.Intn(g.config.MaxBasketSize)
	for len(items) < targetSize {
		items[catalog[g.rng.Intn(len(catalog))].id] = struct{}{}
	}
	return items
}

// randomShoppingTime draws a timestamp in the configured window with hours
// weighted toward retail peaks.
func (g *BasketDataGenerator) randomShoppingTime() time.Time {
	days := int(g.config.EndDate.Sub(g.config.StartDate).Hours() / 24)
	if days < 1 {
		days = 1
	}
	day := g.config.StartDate.AddDate(0, 0, g.rng.Intn(days))

	hour := g.weightedHour()
	minute := g.rng.Intn(60)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func (g *BasketDataGenerator) weightedHour() int {
	hours := []int{8, 9, 10, 12, 13, 15, 17, 18, 19, 20}
	weights := []float64{0.13, 0.12, 0.08, 0.12, 0.10, 0.07, 0.08, 0.12, 0.12, 0.06}

	r := g.rng.Float64()
	cumulative := 0.0
	for i, weight := range weights {
		cumulative += weight
		if r <= cumulative {
			return hours[i]
		}
	}
	return hours[0]
}
