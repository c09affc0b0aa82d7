package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/craimasjien/gw2-economist-sub001/internal/config"
	"github.com/craimasjien/gw2-economist-sub001/internal/market"
)

func testTrendAnalyzer(p market.DataProvider, now time.Time) *TrendAnalyzer {
	ta := NewTrendAnalyzer(p, config.Default())
	ta.now = func() time.Time { return now }
	return ta
}

func TestTrend_PriceDeltasAgainstNearestSnapshots(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	p := newFakeProvider()
	p.addItem(1, "Mithril Ore")
	p.addPrice(1, 100, 110, 1000) // current sell 110
	p.history[1] = []market.PricePoint{
		{Timestamp: now.AddDate(0, 0, -8), SellPrice: 80, Volume: 100},
		{Timestamp: now.Add(-25 * time.Hour), SellPrice: 100, Volume: 120},
		{Timestamp: now.Add(-2 * time.Hour), SellPrice: 108, Volume: 130},
	}

	got, err := testTrendAnalyzer(p, now).Trend(1)
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if got.PriceChange24h != 10 {
		t.Errorf("PriceChange24h = %d, want 10 (110 − 100 at −25h)", got.PriceChange24h)
	}
	if diff := got.PriceChangePercent24h - 10; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("PriceChangePercent24h = %v, want 10", got.PriceChangePercent24h)
	}
	if got.PriceChange7d != 30 {
		t.Errorf("PriceChange7d = %d, want 30 (110 − 80 at −8d)", got.PriceChange7d)
	}
	if diff := got.PriceChangePercent7d - 37.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("PriceChangePercent7d = %v, want 37.5", got.PriceChangePercent7d)
	}
}

func TestTrend_PercentOmittedWhenOlderPriceZero(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	p := newFakeProvider()
	p.addItem(1, "Fresh Listing")
	p.addPrice(1, 50, 60, 1000)
	p.history[1] = []market.PricePoint{
		{Timestamp: now.Add(-30 * time.Hour), SellPrice: 0, Volume: 10},
	}

	got, err := testTrendAnalyzer(p, now).Trend(1)
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if got.PriceChange24h != 60 {
		t.Errorf("PriceChange24h = %d, want 60", got.PriceChange24h)
	}
	if got.PriceChangePercent24h != 0 {
		t.Errorf("PriceChangePercent24h = %v, want 0 (undefined)", got.PriceChangePercent24h)
	}
}

func TestTrend_NoSnapshotAtHorizonLeavesDeltaZero(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	p := newFakeProvider()
	p.addItem(1, "New Material")
	p.addPrice(1, 50, 60, 1000)
	p.history[1] = []market.PricePoint{
		{Timestamp: now.Add(-2 * time.Hour), SellPrice: 59, Volume: 10},
	}

	got, err := testTrendAnalyzer(p, now).Trend(1)
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if got.PriceChange24h != 0 || got.PriceChangePercent24h != 0 {
		t.Errorf("24h change = %d/%v, want 0/0 with no snapshot at horizon",
			got.PriceChange24h, got.PriceChangePercent24h)
	}
}

func volumeHistory(now time.Time, recentDaily, baselineDaily int64) []market.PricePoint {
	var pts []market.PricePoint
	for d := 1; d <= 14; d++ {
		vol := recentDaily
		if d >= 7 {
			vol = baselineDaily
		}
		pts = append(pts, market.PricePoint{
			Timestamp: now.AddDate(0, 0, -d),
			SellPrice: 100,
			Volume:    vol,
		})
	}
	return pts
}

func TestTrend_VolumeClassification(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		recent   int64
		baseline int64
		want     string
	}{
		{"increasing", 200, 100, VolumeIncreasing},
		{"decreasing", 100, 200, VolumeDecreasing},
		{"stable", 105, 100, VolumeStable},
		{"exactly at threshold", 110, 100, VolumeStable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newFakeProvider()
			p.addItem(1, "Mithril Ore")
			p.addPrice(1, 90, 100, 1000)
			p.history[1] = volumeHistory(now, tc.recent, tc.baseline)

			got, err := testTrendAnalyzer(p, now).Trend(1)
			if err != nil {
				t.Fatalf("Trend: %v", err)
			}
			if got.VolumeTrend != tc.want {
				t.Errorf("VolumeTrend = %q, want %q", got.VolumeTrend, tc.want)
			}
			if got.AvgDailyVolume != tc.recent {
				t.Errorf("AvgDailyVolume = %d, want %d", got.AvgDailyVolume, tc.recent)
			}
		})
	}
}

func TestTrend_NoCurrentPrice_DataUnavailable(t *testing.T) {
	p := newFakeProvider()
	p.addItem(1, "Delisted Item")

	_, err := testTrendAnalyzer(p, time.Now()).Trend(1)
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("Trend err = %v, want ErrDataUnavailable", err)
	}
}
