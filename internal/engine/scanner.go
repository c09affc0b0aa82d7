package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/craimasjien/gw2-economist-sub001/internal/config"
	"github.com/craimasjien/gw2-economist-sub001/internal/market"
)

// DefaultMaxOpportunities caps the persisted set when the config leaves it unset.
const DefaultMaxOpportunities = 500

// Scanner runs the periodic batch job that finds craft-to-sell profit
// opportunities across the whole recipe universe. Phase 1 is a cheap
// no-recursion filter; phase 2 re-prices survivors with the full optimizer.
type Scanner struct {
	Provider  market.DataProvider
	Optimizer *Optimizer
	Store     OpportunityStore // optional; nil skips persistence

	MinProfit int64
	MaxOpps   int
	Workers   int
	TaxRate   float64
}

// NewScanner creates a Scanner with opt's provider and cfg's thresholds.
func NewScanner(opt *Optimizer, store OpportunityStore, cfg *config.Config) *Scanner {
	return &Scanner{
		Provider:  opt.Provider,
		Optimizer: opt,
		Store:     store,
		MinProfit: cfg.MinProfit,
		MaxOpps:   cfg.MaxOpportunities,
		Workers:   cfg.ScanWorkers,
		TaxRate:   cfg.SalesTaxPercent / 100,
	}
}

// Scan evaluates every known recipe and returns the ranked top-N
// opportunities, replacing the persisted set. Individual recipe failures
// are skipped; only a failed bulk load aborts the scan.
func (s *Scanner) Scan(ctx context.Context) ([]ProfitOpportunity, error) {
	recipes, err := s.Provider.AllRecipes()
	if err != nil {
		return nil, fmt.Errorf("scan: bulk recipe load: %w", err)
	}
	if len(recipes) == 0 {
		return nil, fmt.Errorf("scan: %w: recipe universe is empty", ErrDataUnavailable)
	}

	// One bulk price load covers outputs and direct ingredients; deeper
	// levels hit the (cached) provider during phase 2.
	idSet := make(map[int]bool)
	for _, r := range recipes {
		idSet[r.OutputID] = true
		for _, ing := range r.Ingredients {
			idSet[ing.ItemID] = true
		}
	}
	ids := make([]int, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	prices, err := s.Provider.GetPrices(ids)
	if err != nil {
		return nil, fmt.Errorf("scan: bulk price load: %w", err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("scan: %w: no price data for any recipe", ErrDataUnavailable)
	}

	candidates := s.prefilter(recipes, prices)
	log.Printf("[DEBUG] scan: %d recipes, %d phase-1 candidates", len(recipes), len(candidates))

	opps, err := s.evaluate(ctx, candidates, prices)
	if err != nil {
		return nil, err
	}

	// Rank by profit × √volume; ties break on item id so a fixed snapshot
	// always yields the same list.
	sort.Slice(opps, func(i, j int) bool {
		if opps[i].Score != opps[j].Score {
			return opps[i].Score > opps[j].Score
		}
		return opps[i].ItemID < opps[j].ItemID
	})
	limit := s.MaxOpps
	if limit <= 0 {
		limit = DefaultMaxOpportunities
	}
	if len(opps) > limit {
		opps = opps[:limit]
	}

	if s.Store != nil {
		if err := s.Store.ReplaceOpportunities(opps); err != nil {
			return nil, fmt.Errorf("scan: persist opportunities: %w", err)
		}
	}
	return opps, nil
}

// prefilter is phase 1: a naive craft-cost lower bound per recipe straight
// from ingredient buy-order prices (the standing bids — nothing can be
// acquired cheaper), no recursion. Recipes whose optimistic profit misses
// the threshold are discarded before the expensive pass.
func (s *Scanner) prefilter(recipes []*market.Recipe, prices map[int]*market.PriceQuote) []*market.Recipe {
	var out []*market.Recipe
	for _, r := range recipes {
		if r.OutputCount < 1 || len(r.Ingredients) == 0 {
			continue
		}
		quote := prices[r.OutputID]
		if quote == nil || quote.SellPrice <= 0 {
			continue
		}
		netSell := netSellPrice(quote.SellPrice, s.TaxRate)

		var sum int64
		missing := false
		for _, ing := range r.Ingredients {
			q := prices[ing.ItemID]
			if q == nil {
				missing = true
				break
			}
			unit := q.BuyPrice
			if unit <= 0 {
				unit = q.SellPrice
			}
			if unit <= 0 {
				missing = true
				break
			}
			sum += int64(ing.Count) * unit
		}
		if missing {
			continue
		}
		naive := ceilDiv(sum, int64(r.OutputCount))
		if netSell-naive >= s.MinProfit {
			out = append(out, r)
		}
	}
	return out
}

// evaluate is phase 2: full optimizer pricing for each surviving recipe,
// in parallel. Evaluations share no mutable state, so only the result
// append is locked.
func (s *Scanner) evaluate(ctx context.Context, candidates []*market.Recipe, prices map[int]*market.PriceQuote) ([]ProfitOpportunity, error) {
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	var opps []ProfitOpportunity

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, r := range candidates {
		recipe := r
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			opp, ok := s.evaluateOne(recipe, prices)
			if !ok {
				return nil
			}
			mu.Lock()
			opps = append(opps, opp)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan aborted: %w", err)
	}
	// The loop may have bailed before queueing any work.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan aborted: %w", err)
	}
	return opps, nil
}

// evaluateOne prices a single recipe with the full optimizer. Any per-recipe
// failure is logged and skipped; the batch never aborts for one bad recipe.
func (s *Scanner) evaluateOne(recipe *market.Recipe, prices map[int]*market.PriceQuote) (ProfitOpportunity, bool) {
	analysis, err := s.Optimizer.Analyze(recipe.OutputID)
	if err != nil {
		log.Printf("[DEBUG] scan: skip recipe %d (item %d): %v", recipe.ID, recipe.OutputID, err)
		return ProfitOpportunity{}, false
	}
	if !analysis.Craftable || analysis.SellPrice <= 0 {
		return ProfitOpportunity{}, false
	}

	profit := analysis.NetSellPrice - analysis.CraftCost
	if profit < s.MinProfit {
		return ProfitOpportunity{}, false
	}

	var volume int64
	if q := prices[recipe.OutputID]; q != nil {
		volume = q.SellQuantity
	}
	var marginBps int64
	if analysis.CraftCost > 0 {
		marginBps = profit * 10_000 / analysis.CraftCost
	}

	return ProfitOpportunity{
		ItemID:      recipe.OutputID,
		ItemName:    analysis.Name,
		RecipeID:    recipe.ID,
		CraftCost:   analysis.CraftCost,
		SellPrice:   analysis.SellPrice,
		Profit:      profit,
		MarginBps:   marginBps,
		VolumeProxy: volume,
		Score:       float64(profit) * math.Sqrt(float64(volume)),
	}, true
}
