package engine

// Strategy is the acquisition decision for one item.
type Strategy string

const (
	StrategyBuy   Strategy = "buy"
	StrategyCraft Strategy = "craft"
)

// CostNode is the resolved per-unit economics of one item within a single
// analysis pass. Nodes are memoized per item id, so a node may be shared by
// several parents; the per-edge quantity lives on CostEdge.
type CostNode struct {
	ItemID int    `json:"item_id"`
	Name   string `json:"name"`

	Strategy  Strategy `json:"strategy"`   // cheaper of buy/craft; ties favor buy
	UnitCost  int64    `json:"unit_cost"`  // chosen unit cost, copper
	BuyPrice  int64    `json:"buy_price"`  // unit price via standing sell orders; 0 = unavailable
	CraftCost int64    `json:"craft_cost"` // unit craft cost; meaningful only when Craftable
	Craftable bool     `json:"craftable"`
	Available bool     `json:"available"` // false when neither buying nor crafting is viable

	RecipeID    int        `json:"recipe_id,omitempty"`
	OutputCount int        `json:"output_count,omitempty"`
	Children    []CostEdge `json:"children,omitempty"`
}

// CostEdge links a craftable node to one ingredient with its per-recipe count.
type CostEdge struct {
	Count    int       `json:"count"`
	Subtotal int64     `json:"subtotal"` // Count × child UnitCost
	Node     *CostNode `json:"node"`
}

// CraftAnalysis is the root-level buy-vs-craft verdict for one item.
type CraftAnalysis struct {
	ItemID         int      `json:"item_id"`
	Name           string   `json:"name"`
	Recommendation Strategy `json:"recommendation"`
	SellPrice      int64    `json:"sell_price"`     // lowest standing sell order
	NetSellPrice   int64    `json:"net_sell_price"` // sell price minus market tax
	CraftCost      int64    `json:"craft_cost"`     // per unit; 0 when not craftable
	Craftable      bool     `json:"craftable"`
	Savings        int64    `json:"savings"` // rejected cost minus chosen cost
	SavingsPercent float64  `json:"savings_percent"`
	Root           *CostNode `json:"root"`
}

// MaterialLine is one ingredient of a scaled material breakdown.
type MaterialLine struct {
	ItemID    int      `json:"item_id"`
	Name      string   `json:"name"`
	Strategy  Strategy `json:"strategy"`
	Quantity  int64    `json:"quantity"`
	UnitCost  int64    `json:"unit_cost"`
	TotalCost int64    `json:"total_cost"`
}

// QuantityResult is the bulk-acquisition verdict for N units of one item.
type QuantityResult struct {
	ItemID   int    `json:"item_id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`

	Recommendation Strategy `json:"recommendation"`
	CanCraft       bool     `json:"can_craft"`

	UnitBuyPrice   int64   `json:"unit_buy_price"`   // listed sell-order price
	AvgUnitPrice   float64 `json:"avg_unit_price"`   // realized unit price for the chosen strategy
	TotalBuyCost   int64   `json:"total_buy_cost"`   // impact-adjusted cost of buying all N
	TotalCraftCost int64   `json:"total_craft_cost"` // depth-independent craft cost of N
	TotalCost      int64   `json:"total_cost"`       // cost under the chosen strategy

	AvailableSupply    int64   `json:"available_supply"` // top-level sell-order depth
	SupplyShortfall    int64   `json:"supply_shortfall"` // max(0, quantity − available)
	CanFillOrder       bool    `json:"can_fill_order"`
	PriceImpactPercent float64 `json:"price_impact_percent,omitempty"` // 0 when negligible

	Materials []MaterialLine `json:"materials,omitempty"`
}

// ProfitOpportunity is one craft-to-sell candidate produced by a scan.
// The persisted top-N set is fully replaced on each scan.
type ProfitOpportunity struct {
	ItemID      int     `json:"item_id"`
	ItemName    string  `json:"item_name"`
	RecipeID    int     `json:"recipe_id"`
	CraftCost   int64   `json:"craft_cost"`
	SellPrice   int64   `json:"sell_price"`
	Profit      int64   `json:"profit"`     // net sell price minus craft cost
	MarginBps   int64   `json:"margin_bps"` // profit / craft cost, basis points
	VolumeProxy int64   `json:"volume_proxy"` // current sell-order depth
	Score       float64 `json:"score"`        // profit × √volume
}

// VolumeTrend classifications.
const (
	VolumeIncreasing = "increasing"
	VolumeDecreasing = "decreasing"
	VolumeStable     = "stable"
)

// TrendSummary holds derived price/volume movement for one item.
// Percent fields are zero (and omitted from JSON) when the older reference
// price is zero or no snapshot exists at the horizon.
type TrendSummary struct {
	ItemID                int     `json:"item_id"`
	CurrentSellPrice      int64   `json:"current_sell_price"`
	PriceChange24h        int64   `json:"price_change_24h"`
	PriceChangePercent24h float64 `json:"price_change_percent_24h,omitempty"`
	PriceChange7d         int64   `json:"price_change_7d"`
	PriceChangePercent7d  float64 `json:"price_change_percent_7d,omitempty"`
	AvgDailyVolume        int64   `json:"avg_daily_volume"`
	VolumeTrend           string  `json:"volume_trend"`
}

// OpportunityStore persists the bounded top-N opportunity set. Replace must
// be atomic: readers never observe a partially updated set.
type OpportunityStore interface {
	ReplaceOpportunities(opps []ProfitOpportunity) error
}
