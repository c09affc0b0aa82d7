package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/craimasjien/gw2-economist-sub001/internal/config"
	"github.com/craimasjien/gw2-economist-sub001/internal/market"
)

// QuantityAnalyzer answers "what does it cost to acquire N units", modeling
// diminishing market liquidity on the buy side. Craft cost is treated as
// depth-independent: materials are assumed separately sourced rather than
// bought in one sweep.
type QuantityAnalyzer struct {
	Provider  market.DataProvider
	Optimizer *Optimizer

	// Impact model: only aggregate depth per item is available, not a full
	// order-book ladder, so impact is approximated piecewise-linearly. The
	// first FreeFraction of depth fills at the listed price; beyond that the
	// average price degrades by Slope per unit of excess depth ratio.
	// Impact below WarnPercent is treated as negligible and omitted.
	FreeFraction float64
	Slope        float64
	WarnPercent  float64
}

// NewQuantityAnalyzer creates an analyzer sharing opt's provider.
func NewQuantityAnalyzer(opt *Optimizer, cfg *config.Config) *QuantityAnalyzer {
	return &QuantityAnalyzer{
		Provider:     opt.Provider,
		Optimizer:    opt,
		FreeFraction: cfg.ImpactFreeFraction,
		Slope:        cfg.ImpactSlope,
		WarnPercent:  cfg.ImpactWarnPercent,
	}
}

// AnalyzeForQuantity computes the bulk-acquisition verdict for quantity
// units of itemID. quantity must be >= 1.
func (qa *QuantityAnalyzer) AnalyzeForQuantity(itemID int, quantity int64) (*QuantityResult, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("analyze quantity %d for item %d: %w", quantity, itemID, ErrInvalidInput)
	}

	analysis, err := qa.Optimizer.Analyze(itemID)
	if err != nil {
		return nil, err
	}
	root := analysis.Root

	var available int64
	if q, err := qa.Provider.GetPrice(itemID); err == nil && q != nil {
		available = q.SellQuantity
	} else if err != nil && !errors.Is(err, market.ErrNotFound) {
		return nil, fmt.Errorf("quantity analysis item %d: %w", itemID, ErrDataUnavailable)
	}

	shortfall := quantity - available
	if shortfall < 0 {
		shortfall = 0
	}

	result := &QuantityResult{
		ItemID:          itemID,
		Name:            analysis.Name,
		Quantity:        quantity,
		CanCraft:        root.Craftable,
		UnitBuyPrice:    root.BuyPrice,
		AvailableSupply: available,
		SupplyShortfall: shortfall,
		CanFillOrder:    shortfall == 0 && root.BuyPrice > 0,
	}

	// Buy side: impact-adjusted average price over the requested quantity.
	var avgBuy float64
	if root.BuyPrice > 0 {
		impact := qa.priceImpactPercent(quantity, available)
		result.PriceImpactPercent = impact
		avgBuy = float64(root.BuyPrice) * (1 + impact/100)
		result.TotalBuyCost = int64(math.Ceil(avgBuy * float64(quantity)))
	}

	// Craft side, with the material breakdown at the scaled quantity.
	if root.Craftable {
		result.TotalCraftCost = root.CraftCost * quantity
		runs := ceilDiv(quantity, int64(root.OutputCount))
		for _, edge := range root.Children {
			need := int64(edge.Count) * runs
			result.Materials = append(result.Materials, MaterialLine{
				ItemID:    edge.Node.ItemID,
				Name:      edge.Node.Name,
				Strategy:  edge.Node.Strategy,
				Quantity:  need,
				UnitCost:  edge.Node.UnitCost,
				TotalCost: edge.Node.UnitCost * need,
			})
		}
	}

	// Decision mirrors the per-unit optimizer: craft only when strictly
	// cheaper; ties and non-craftable items favor buying. With nothing
	// listed to buy, crafting is the only path.
	switch {
	case root.BuyPrice == 0:
		result.Recommendation = StrategyCraft
		result.TotalCost = result.TotalCraftCost
		result.AvgUnitPrice = float64(root.CraftCost)
	case root.Craftable && result.TotalCraftCost < result.TotalBuyCost:
		result.Recommendation = StrategyCraft
		result.TotalCost = result.TotalCraftCost
		result.AvgUnitPrice = float64(root.CraftCost)
	default:
		result.Recommendation = StrategyBuy
		result.TotalCost = result.TotalBuyCost
		result.AvgUnitPrice = avgBuy
	}

	return result, nil
}

// priceImpactPercent approximates average price degradation when the
// requested quantity consumes a material share of available depth.
// Zero depth with a positive request is a full-impact condition capped at
// 100%. Results below WarnPercent report as zero.
func (qa *QuantityAnalyzer) priceImpactPercent(quantity, available int64) float64 {
	if quantity <= 0 {
		return 0
	}
	if available <= 0 {
		return 100
	}
	ratio := float64(quantity) / float64(available)
	excess := ratio - qa.FreeFraction
	if excess <= 0 {
		return 0
	}
	impact := qa.Slope * excess * 100
	if impact > 100 {
		impact = 100
	}
	if impact < qa.WarnPercent {
		return 0
	}
	return impact
}
