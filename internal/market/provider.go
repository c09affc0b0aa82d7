package market

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested item, recipe or price record
// does not exist in the underlying snapshot.
var ErrNotFound = errors.New("market: record not found")

// DataProvider is the read-only market data interface consumed by the
// analysis engine. Implementations must be safe for concurrent use; none
// of the callers ever mutate market data.
//
// Batch variants return a map keyed by id; absent ids are simply missing
// from the map rather than an error, so one unknown id never fails a
// bulk load.
type DataProvider interface {
	GetItem(id int) (*Item, error)
	GetItems(ids []int) (map[int]*Item, error)

	GetRecipeForOutput(itemID int) (*Recipe, error)
	GetRecipesForOutputs(itemIDs []int) (map[int]*Recipe, error)
	AllRecipes() ([]*Recipe, error)

	GetPrice(itemID int) (*PriceQuote, error)
	GetPrices(itemIDs []int) (map[int]*PriceQuote, error)

	// GetPriceHistory returns snapshots at or after since, oldest first.
	GetPriceHistory(itemID int, since time.Time) ([]PricePoint, error)
}
