package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/craimasjien/gw2-economist-sub001/internal/config"
	"github.com/craimasjien/gw2-economist-sub001/internal/market"
)

// Optimizer decides buy-vs-craft for an item and every transitive
// ingredient. It is pure computation over the provider's read-only data and
// is safe for concurrent use; all mutable state lives in a per-call
// resolution context.
type Optimizer struct {
	Provider market.DataProvider
	TaxRate  float64 // fraction of sale proceeds taken by the market, e.g. 0.15
}

// NewOptimizer creates an Optimizer using cfg's sales tax.
func NewOptimizer(p market.DataProvider, cfg *config.Config) *Optimizer {
	return &Optimizer{
		Provider: p,
		TaxRate:  cfg.SalesTaxPercent / 100,
	}
}

// nodeStatus tracks traversal state so cyclic recipe graphs terminate.
type nodeStatus int

const (
	statusUnvisited nodeStatus = iota
	statusInProgress
	statusResolved
)

// resolution is the per-call memoization context. It is discarded when
// Analyze returns, so no stale pricing survives across calls.
type resolution struct {
	memo   map[int]*CostNode
	status map[int]nodeStatus
	prices map[int]*market.PriceQuote // nil entry = lookup already failed
}

func newResolution() *resolution {
	return &resolution{
		memo:   make(map[int]*CostNode),
		status: make(map[int]nodeStatus),
		prices: make(map[int]*market.PriceQuote),
	}
}

// Analyze resolves the full cost tree for itemID and returns the root
// buy-vs-craft verdict. Crafting is recommended only when strictly cheaper
// than the net sell price; ties favor buying.
func (o *Optimizer) Analyze(itemID int) (*CraftAnalysis, error) {
	// Data problems stay localized to a branch unless they hit the root
	// itself; a root-level fetch failure is fatal for the call.
	if _, err := o.Provider.GetPrice(itemID); err != nil && !errors.Is(err, market.ErrNotFound) {
		return nil, fmt.Errorf("analyze item %d: price: %w", itemID, ErrDataUnavailable)
	}
	if _, err := o.Provider.GetRecipeForOutput(itemID); err != nil && !errors.Is(err, market.ErrNotFound) {
		return nil, fmt.Errorf("analyze item %d: recipe: %w", itemID, ErrDataUnavailable)
	}

	res := newResolution()
	root := o.resolve(itemID, res)
	if !root.Available {
		return nil, fmt.Errorf("analyze item %d: %w", itemID, ErrNotCraftable)
	}

	sellPrice := root.BuyPrice
	netSell := netSellPrice(sellPrice, o.TaxRate)

	recommendation := StrategyBuy
	if root.Craftable {
		if sellPrice == 0 {
			// Nothing listed to buy; crafting is the only viable path.
			recommendation = StrategyCraft
		} else if root.CraftCost < netSell {
			recommendation = StrategyCraft
		}
	}

	var savings int64
	var savingsPercent float64
	if root.Craftable && sellPrice > 0 {
		chosen, rejected := netSell, root.CraftCost
		if recommendation == StrategyCraft {
			chosen, rejected = root.CraftCost, netSell
		}
		savings = rejected - chosen
		if rejected > 0 {
			savingsPercent = float64(savings) / float64(rejected) * 100
		}
	}

	return &CraftAnalysis{
		ItemID:         itemID,
		Name:           root.Name,
		Recommendation: recommendation,
		SellPrice:      sellPrice,
		NetSellPrice:   netSell,
		CraftCost:      root.CraftCost,
		Craftable:      root.Craftable,
		Savings:        savings,
		SavingsPercent: savingsPercent,
		Root:           root,
	}, nil
}

// resolve computes the cost node for one item, memoized per call.
// A node re-entered while in progress sits on a cycle and is forced to a
// buy-only view for that edge; the transient node is not memoized so the
// item still gets a full resolution on the unwound path.
func (o *Optimizer) resolve(itemID int, res *resolution) *CostNode {
	switch res.status[itemID] {
	case statusResolved:
		return res.memo[itemID]
	case statusInProgress:
		return o.buyOnlyNode(itemID, res)
	}
	res.status[itemID] = statusInProgress

	node := &CostNode{
		ItemID:      itemID,
		Name:        o.itemName(itemID),
		OutputCount: 1,
	}
	if q := res.getPrice(o.Provider, itemID); q != nil {
		node.BuyPrice = q.SellPrice // buying fills the cheapest standing sell orders
	}

	recipe, err := o.Provider.GetRecipeForOutput(itemID)
	if err == nil && recipe != nil && recipe.OutputCount >= 1 {
		node.RecipeID = recipe.ID
		node.OutputCount = recipe.OutputCount

		var sum int64
		viable := true
		edges := make([]CostEdge, 0, len(recipe.Ingredients))
		for _, ing := range recipe.Ingredients {
			child := o.resolve(ing.ItemID, res)
			if !child.Available {
				// A dead leaf kills this craft branch, not the analysis.
				viable = false
				break
			}
			subtotal := int64(ing.Count) * child.UnitCost
			sum += subtotal
			edges = append(edges, CostEdge{Count: ing.Count, Subtotal: subtotal, Node: child})
		}
		if viable {
			node.Craftable = true
			node.CraftCost = ceilDiv(sum, int64(recipe.OutputCount))
			node.Children = edges
		}
	}

	// Per-node decision: the cheaper of buying outright or crafting further.
	switch {
	case node.BuyPrice > 0 && node.Craftable:
		if node.CraftCost < node.BuyPrice {
			node.Strategy = StrategyCraft
			node.UnitCost = node.CraftCost
		} else {
			node.Strategy = StrategyBuy
			node.UnitCost = node.BuyPrice
		}
		node.Available = true
	case node.BuyPrice > 0:
		node.Strategy = StrategyBuy
		node.UnitCost = node.BuyPrice
		node.Available = true
	case node.Craftable:
		node.Strategy = StrategyCraft
		node.UnitCost = node.CraftCost
		node.Available = true
	}

	res.memo[itemID] = node
	res.status[itemID] = statusResolved
	return node
}

// buyOnlyNode is the cycle fallback: the item cannot be used to craft
// itself mid-resolution, so only its market price counts on this edge.
func (o *Optimizer) buyOnlyNode(itemID int, res *resolution) *CostNode {
	node := &CostNode{
		ItemID:      itemID,
		Name:        o.itemName(itemID),
		Strategy:    StrategyBuy,
		OutputCount: 1,
	}
	if q := res.getPrice(o.Provider, itemID); q != nil && q.SellPrice > 0 {
		node.BuyPrice = q.SellPrice
		node.UnitCost = q.SellPrice
		node.Available = true
	}
	return node
}

func (o *Optimizer) itemName(itemID int) string {
	if it, err := o.Provider.GetItem(itemID); err == nil && it != nil {
		return it.Name
	}
	return fmt.Sprintf("Item %d", itemID)
}

// getPrice caches price lookups for the duration of one resolution so each
// item id is fetched at most once per call, failures included.
func (r *resolution) getPrice(p market.DataProvider, itemID int) *market.PriceQuote {
	if q, ok := r.prices[itemID]; ok {
		return q
	}
	q, err := p.GetPrice(itemID)
	if err != nil {
		q = nil
	}
	r.prices[itemID] = q
	return q
}

// netSellPrice applies the market tax to sale proceeds, rounding down.
func netSellPrice(sellPrice int64, taxRate float64) int64 {
	if sellPrice <= 0 {
		return 0
	}
	return int64(math.Floor(float64(sellPrice) * (1 - taxRate)))
}

// ceilDiv divides rounding up; craft cost per unit always covers a full run.
func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
