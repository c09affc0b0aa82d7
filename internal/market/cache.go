package market

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache TTLs. Prices go stale quickly; items and recipes are effectively
// static between ingestion runs.
const (
	priceTTL  = 5 * time.Minute
	staticTTL = 24 * time.Hour
)

// CachedProvider is a read-through caching decorator over a DataProvider.
// A singleflight.Group coalesces concurrent fetches for the same key so a
// burst of analyses for one item hits the backing store once.
type CachedProvider struct {
	next  DataProvider
	cache *gocache.Cache
	group singleflight.Group
}

// NewCachedProvider wraps next with an in-memory TTL cache.
func NewCachedProvider(next DataProvider) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: gocache.New(priceTTL, 10*time.Minute),
	}
}

func (p *CachedProvider) fetch(key string, ttl time.Duration, load func() (interface{}, error)) (interface{}, error) {
	if v, ok := p.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		// Re-check under singleflight: a concurrent caller may have
		// populated the cache while we waited.
		if v, ok := p.cache.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		p.cache.Set(key, v, ttl)
		return v, nil
	})
	return v, err
}

// GetItem returns a cached item, loading it on miss.
func (p *CachedProvider) GetItem(id int) (*Item, error) {
	v, err := p.fetch(fmt.Sprintf("item:%d", id), staticTTL, func() (interface{}, error) {
		return p.next.GetItem(id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Item), nil
}

// GetItems is a batch lookup; cached entries are served locally and only
// the misses reach the backing provider.
func (p *CachedProvider) GetItems(ids []int) (map[int]*Item, error) {
	out := make(map[int]*Item, len(ids))
	var misses []int
	for _, id := range ids {
		if v, ok := p.cache.Get(fmt.Sprintf("item:%d", id)); ok {
			out[id] = v.(*Item)
		} else {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}
	loaded, err := p.next.GetItems(misses)
	if err != nil {
		return nil, err
	}
	for id, it := range loaded {
		p.cache.Set(fmt.Sprintf("item:%d", id), it, staticTTL)
		out[id] = it
	}
	return out, nil
}

// GetRecipeForOutput returns the cached authoritative recipe for itemID.
func (p *CachedProvider) GetRecipeForOutput(itemID int) (*Recipe, error) {
	v, err := p.fetch(fmt.Sprintf("recipe:%d", itemID), staticTTL, func() (interface{}, error) {
		return p.next.GetRecipeForOutput(itemID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Recipe), nil
}

// GetRecipesForOutputs is the batch variant of GetRecipeForOutput.
func (p *CachedProvider) GetRecipesForOutputs(itemIDs []int) (map[int]*Recipe, error) {
	out := make(map[int]*Recipe, len(itemIDs))
	var misses []int
	for _, id := range itemIDs {
		if v, ok := p.cache.Get(fmt.Sprintf("recipe:%d", id)); ok {
			out[id] = v.(*Recipe)
		} else {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}
	loaded, err := p.next.GetRecipesForOutputs(misses)
	if err != nil {
		return nil, err
	}
	for id, r := range loaded {
		p.cache.Set(fmt.Sprintf("recipe:%d", id), r, staticTTL)
		out[id] = r
	}
	return out, nil
}

// AllRecipes is not cached: scans do one bulk load per run and operate on
// that snapshot.
func (p *CachedProvider) AllRecipes() ([]*Recipe, error) {
	return p.next.AllRecipes()
}

// GetPrice returns a cached quote, loading it on miss.
func (p *CachedProvider) GetPrice(itemID int) (*PriceQuote, error) {
	v, err := p.fetch(fmt.Sprintf("price:%d", itemID), priceTTL, func() (interface{}, error) {
		return p.next.GetPrice(itemID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*PriceQuote), nil
}

// GetPrices is the batch variant of GetPrice.
func (p *CachedProvider) GetPrices(itemIDs []int) (map[int]*PriceQuote, error) {
	out := make(map[int]*PriceQuote, len(itemIDs))
	var misses []int
	for _, id := range itemIDs {
		if v, ok := p.cache.Get(fmt.Sprintf("price:%d", id)); ok {
			out[id] = v.(*PriceQuote)
		} else {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}
	loaded, err := p.next.GetPrices(misses)
	if err != nil {
		return nil, err
	}
	for id, q := range loaded {
		p.cache.Set(fmt.Sprintf("price:%d", id), q, priceTTL)
		out[id] = q
	}
	return out, nil
}

// GetPriceHistory is not cached; it is only used by the trend analyzer,
// which is called per item on demand.
func (p *CachedProvider) GetPriceHistory(itemID int, since time.Time) ([]PricePoint, error) {
	return p.next.GetPriceHistory(itemID, since)
}
