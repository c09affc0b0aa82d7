package market

import "time"

// Item is a tradable good. Immutable once fetched for an analysis pass.
type Item struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Rarity      string `json:"rarity"`
	VendorValue int64  `json:"vendor_value"` // copper a merchant pays per unit; metadata only
}

// Ingredient is one (item, count) requirement of a recipe.
type Ingredient struct {
	ItemID int `json:"item_id"`
	Count  int `json:"count"`
}

// Recipe maps exactly one output item to an ordered ingredient list.
// At most one recipe per output item is authoritative; the ingestion
// collaborator resolves duplicates before they reach this system.
type Recipe struct {
	ID          int          `json:"id"`
	OutputID    int          `json:"output_id"`
	OutputCount int          `json:"output_count"` // >= 1
	Ingredients []Ingredient `json:"ingredients"`

	// Metadata carried through but not used in cost math.
	Disciplines []string `json:"disciplines"`
	MinRating   int      `json:"min_rating"`
	CraftTimeMS int      `json:"craft_time_ms"`
}

// PriceQuote is the current order-book summary for one item.
// Buying consumes sell-order depth at SellPrice; selling consumes
// buy-order depth at BuyPrice net of the market tax.
type PriceQuote struct {
	ItemID       int   `json:"item_id"`
	BuyPrice     int64 `json:"buy_price"`     // highest standing buy order, copper
	BuyQuantity  int64 `json:"buy_quantity"`  // units we could sell into instantly
	SellPrice    int64 `json:"sell_price"`    // lowest standing sell order, copper
	SellQuantity int64 `json:"sell_quantity"` // units we could buy instantly
}

// PricePoint is one historical snapshot of an item's order book.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	BuyPrice  int64     `json:"buy_price"`
	SellPrice int64     `json:"sell_price"`
	Volume    int64     `json:"volume"` // units traded around this snapshot
}
