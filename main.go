package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/craimasjien/gw2-economist-sub001/internal/config"
	"github.com/craimasjien/gw2-economist-sub001/internal/db"
	"github.com/craimasjien/gw2-economist-sub001/internal/engine"
	"github.com/craimasjien/gw2-economist-sub001/internal/logger"
	"github.com/craimasjien/gw2-economist-sub001/internal/market"
)

var version = "dev"

func main() {
	dbPath := flag.String("db", "", "path to the SQLite snapshot (default ./economist.db)")
	seedPath := flag.String("seed", "", "JSON snapshot to import before running")
	itemID := flag.Int("item", 0, "analyze buy-vs-craft for this item id")
	quantity := flag.Int64("quantity", 1, "order size for the -item analysis")
	trendID := flag.Int("trend", 0, "print the price/volume trend for this item id")
	scan := flag.Bool("scan", false, "scan the recipe universe for profit opportunities")
	top := flag.Int("top", 20, "number of persisted opportunities to show")
	minProfit := flag.Int64("min-profit", 0, "minimum scan profit in copper (0 = default)")
	workers := flag.Int("workers", 0, "parallel scan evaluations (0 = default)")
	flag.Parse()

	logger.Banner(version)

	cfg := config.Default()
	if *minProfit > 0 {
		cfg.MinProfit = *minProfit
	}
	if *workers > 0 {
		cfg.ScanWorkers = *workers
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	if *seedPath != "" {
		if err := seed(database, *seedPath); err != nil {
			logger.Error("Seed", fmt.Sprintf("Import failed: %v", err))
			os.Exit(1)
		}
	}

	provider := market.NewCachedProvider(db.NewSnapshotProvider(database))
	optimizer := engine.NewOptimizer(provider, cfg)

	switch {
	case *itemID > 0:
		runItemAnalysis(optimizer, cfg, *itemID, *quantity)
	case *trendID > 0:
		runTrend(provider, cfg, *trendID)
	case *scan:
		runScan(optimizer, database, cfg, *top)
	default:
		showTop(database, *top)
	}
}

// seed imports a JSON snapshot of items, recipes, prices and history into
// the local database.
func seed(database *db.DB, path string) error {
	var snapshot struct {
		Items   []*market.Item              `json:"items"`
		Recipes []*market.Recipe            `json:"recipes"`
		Prices  []*market.PriceQuote        `json:"prices"`
		History map[int][]market.PricePoint `json:"history"`
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := database.UpsertItems(snapshot.Items); err != nil {
		return err
	}
	if err := database.UpsertRecipes(snapshot.Recipes); err != nil {
		return err
	}
	if err := database.UpsertPrices(snapshot.Prices); err != nil {
		return err
	}
	for id, points := range snapshot.History {
		if err := database.AppendPriceHistory(id, points); err != nil {
			return err
		}
	}
	logger.Success("Seed", fmt.Sprintf("Imported %d items, %d recipes, %d prices from %s",
		len(snapshot.Items), len(snapshot.Recipes), len(snapshot.Prices), path))
	return nil
}

func runItemAnalysis(optimizer *engine.Optimizer, cfg *config.Config, itemID int, quantity int64) {
	if quantity > 1 {
		qa := engine.NewQuantityAnalyzer(optimizer, cfg)
		result, err := qa.AnalyzeForQuantity(itemID, quantity)
		if err != nil {
			logger.Error("Analyze", fmt.Sprintf("Item %d x%d: %v", itemID, quantity, err))
			os.Exit(1)
		}
		printQuantityResult(result)
		return
	}

	analysis, err := optimizer.Analyze(itemID)
	if err != nil {
		logger.Error("Analyze", fmt.Sprintf("Item %d: %v", itemID, err))
		os.Exit(1)
	}
	printAnalysis(analysis)
}

func printAnalysis(a *engine.CraftAnalysis) {
	logger.Section(fmt.Sprintf("%s (item %d)", a.Name, a.ItemID))
	logger.Stats("Recommendation", string(a.Recommendation))
	if a.SellPrice > 0 {
		logger.Stats("Sell price", engine.FormatCoins(a.SellPrice))
		logger.Stats("Net after tax", engine.FormatCoins(a.NetSellPrice))
	}
	if a.Craftable {
		logger.Stats("Craft cost", engine.FormatCoins(a.CraftCost))
	} else {
		logger.Stats("Craft cost", "not craftable")
	}
	if a.Savings > 0 {
		logger.Stats("Savings", fmt.Sprintf("%s (%.1f%%)", engine.FormatCoins(a.Savings), a.SavingsPercent))
	}
	if a.Root != nil && len(a.Root.Children) > 0 {
		logger.Section("Ingredients")
		for _, edge := range a.Root.Children {
			logger.Stats(
				fmt.Sprintf("%dx %s", edge.Count, edge.Node.Name),
				fmt.Sprintf("%s (%s)", engine.FormatCoins(edge.Subtotal), edge.Node.Strategy),
			)
		}
	}
}

func printQuantityResult(r *engine.QuantityResult) {
	logger.Section(fmt.Sprintf("%s x%d (item %d)", r.Name, r.Quantity, r.ItemID))
	logger.Stats("Recommendation", string(r.Recommendation))
	logger.Stats("Total cost", engine.FormatCoins(r.TotalCost))
	logger.Stats("Avg unit price", engine.FormatCoins(engine.RoundCoins(r.AvgUnitPrice)))
	logger.Stats("Available supply", r.AvailableSupply)
	if r.SupplyShortfall > 0 {
		logger.Warn("Supply", fmt.Sprintf("Order exceeds listed supply by %d units", r.SupplyShortfall))
	}
	if r.PriceImpactPercent > 0 {
		logger.Warn("Impact", fmt.Sprintf("Buying %d units moves the price ~%.1f%%", r.Quantity, r.PriceImpactPercent))
	}
	if len(r.Materials) > 0 {
		logger.Section("Shopping list")
		for _, m := range r.Materials {
			logger.Stats(
				fmt.Sprintf("%dx %s", m.Quantity, m.Name),
				fmt.Sprintf("%s (%s)", engine.FormatCoins(m.TotalCost), m.Strategy),
			)
		}
	}
}

func runTrend(provider market.DataProvider, cfg *config.Config, itemID int) {
	ta := engine.NewTrendAnalyzer(provider, cfg)
	summary, err := ta.Trend(itemID)
	if err != nil {
		logger.Error("Trend", fmt.Sprintf("Item %d: %v", itemID, err))
		os.Exit(1)
	}

	logger.Section(fmt.Sprintf("Trend for item %d", itemID))
	logger.Stats("Current sell", engine.FormatCoins(summary.CurrentSellPrice))
	logger.Stats("24h change", formatDelta(summary.PriceChange24h, summary.PriceChangePercent24h))
	logger.Stats("7d change", formatDelta(summary.PriceChange7d, summary.PriceChangePercent7d))
	logger.Stats("Avg daily volume", summary.AvgDailyVolume)
	logger.Stats("Volume trend", summary.VolumeTrend)
}

func formatDelta(change int64, percent float64) string {
	s := engine.FormatCoins(abs64(change))
	if change > 0 {
		s = "+" + s
	} else if change < 0 {
		s = "-" + s
	}
	if percent != 0 {
		return fmt.Sprintf("%s (%+.1f%%)", s, percent)
	}
	return s
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func runScan(optimizer *engine.Optimizer, database *db.DB, cfg *config.Config, top int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scanner := engine.NewScanner(optimizer, database, cfg)
	logger.Info("Scan", fmt.Sprintf("Scanning recipe universe (%d workers, min profit %s)",
		cfg.ScanWorkers, engine.FormatCoins(cfg.MinProfit)))
	opps, err := scanner.Scan(ctx)
	if err != nil {
		logger.Error("Scan", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
	logger.Success("Scan", fmt.Sprintf("Found %d opportunities", len(opps)))

	if len(opps) > top {
		opps = opps[:top]
	}
	printOpportunities(opps)
}

func showTop(database *db.DB, top int) {
	opps, err := database.TopOpportunities(top)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Load opportunities: %v", err))
		os.Exit(1)
	}
	if len(opps) == 0 {
		logger.Warn("DB", "No persisted opportunities; run with -scan first")
		flag.Usage()
		return
	}
	printOpportunities(opps)
}

func printOpportunities(opps []engine.ProfitOpportunity) {
	logger.Section("Top opportunities")
	for i, o := range opps {
		logger.Stats(
			fmt.Sprintf("#%d %s", i+1, o.ItemName),
			fmt.Sprintf("profit %s  craft %s  sell %s  depth %d",
				engine.FormatCoins(o.Profit), engine.FormatCoins(o.CraftCost),
				engine.FormatCoins(o.SellPrice), o.VolumeProxy),
		)
	}
}
