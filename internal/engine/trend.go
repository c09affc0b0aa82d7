package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/craimasjien/gw2-economist-sub001/internal/config"
	"github.com/craimasjien/gw2-economist-sub001/internal/market"
)

// TrendAnalyzer derives 24h/7d price deltas and a coarse volume-trend
// classification from historical price snapshots.
type TrendAnalyzer struct {
	Provider market.DataProvider

	// ThresholdPercent is the relative volume change beyond which the trend
	// counts as increasing/decreasing rather than stable.
	ThresholdPercent float64

	now func() time.Time
}

// NewTrendAnalyzer creates an analyzer with cfg's classification threshold.
func NewTrendAnalyzer(p market.DataProvider, cfg *config.Config) *TrendAnalyzer {
	return &TrendAnalyzer{
		Provider:         p,
		ThresholdPercent: cfg.VolumeTrendThresholdPercent,
		now:              time.Now,
	}
}

// Trend computes the price/volume movement summary for one item. The
// history window is 14 days: the last 7 feed the averages, the prior 7 form
// the volume baseline.
func (ta *TrendAnalyzer) Trend(itemID int) (*TrendSummary, error) {
	quote, err := ta.Provider.GetPrice(itemID)
	if err != nil {
		if errors.Is(err, market.ErrNotFound) {
			return nil, fmt.Errorf("trend item %d: no current price: %w", itemID, ErrDataUnavailable)
		}
		return nil, fmt.Errorf("trend item %d: %w", itemID, ErrDataUnavailable)
	}

	now := ta.now().UTC()
	history, err := ta.Provider.GetPriceHistory(itemID, now.AddDate(0, 0, -14))
	if err != nil {
		return nil, fmt.Errorf("trend item %d: history: %w", itemID, ErrDataUnavailable)
	}
	// Chronological order is not guaranteed by every provider.
	sort.Slice(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})

	summary := &TrendSummary{
		ItemID:           itemID,
		CurrentSellPrice: quote.SellPrice,
		VolumeTrend:      VolumeStable,
	}

	if ref := snapshotAtOrBefore(history, now.Add(-24*time.Hour)); ref != nil {
		summary.PriceChange24h = quote.SellPrice - ref.SellPrice
		if ref.SellPrice > 0 {
			summary.PriceChangePercent24h = float64(summary.PriceChange24h) / float64(ref.SellPrice) * 100
		}
	}
	if ref := snapshotAtOrBefore(history, now.AddDate(0, 0, -7)); ref != nil {
		summary.PriceChange7d = quote.SellPrice - ref.SellPrice
		if ref.SellPrice > 0 {
			summary.PriceChangePercent7d = float64(summary.PriceChange7d) / float64(ref.SellPrice) * 100
		}
	}

	recentAvg := avgVolume(history, now.AddDate(0, 0, -7), now)
	baselineAvg := avgVolume(history, now.AddDate(0, 0, -14), now.AddDate(0, 0, -7))
	summary.AvgDailyVolume = int64(math.Round(recentAvg))

	if baselineAvg > 0 {
		changePct := (recentAvg - baselineAvg) / baselineAvg * 100
		switch {
		case changePct > ta.ThresholdPercent:
			summary.VolumeTrend = VolumeIncreasing
		case changePct < -ta.ThresholdPercent:
			summary.VolumeTrend = VolumeDecreasing
		}
	}

	return summary, nil
}

// snapshotAtOrBefore returns the latest snapshot not after cutoff, or nil.
// history must be sorted ascending.
func snapshotAtOrBefore(history []market.PricePoint, cutoff time.Time) *market.PricePoint {
	var ref *market.PricePoint
	for i := range history {
		if history[i].Timestamp.After(cutoff) {
			break
		}
		ref = &history[i]
	}
	return ref
}

// avgVolume averages snapshot volumes in (from, to]. Zero when the window
// holds no snapshots.
func avgVolume(history []market.PricePoint, from, to time.Time) float64 {
	var sum int64
	var n int
	for _, p := range history {
		if p.Timestamp.After(from) && !p.Timestamp.After(to) {
			sum += p.Volume
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
