package engine

import "errors"

// Error taxonomy. NotCraftable is a legitimate business outcome (no recipe
// and no viable price), DataUnavailable a fetch failure on a required
// record, InvalidInput a caller error rejected before any computation.
var (
	ErrNotCraftable    = errors.New("engine: item is not craftable and has no viable price")
	ErrDataUnavailable = errors.New("engine: required market data unavailable")
	ErrInvalidInput    = errors.New("engine: invalid input")
)
