package config

// Config holds application settings (in-memory representation).
// Persistence is handled by the caller; main loads overrides from flags/env.
type Config struct {
	// SalesTaxPercent is the trading post cut taken from sale proceeds.
	// GW2 charges 15% total (10% exchange tax + 5% listing fee).
	SalesTaxPercent float64 `json:"sales_tax_percent"`

	// Scanner settings.
	MinProfit        int64 `json:"min_profit"`        // copper; opportunities below are discarded
	MaxOpportunities int   `json:"max_opportunities"` // cap on the persisted top-N set
	ScanWorkers      int   `json:"scan_workers"`      // parallel phase-2 evaluations

	// Bulk-quantity price impact model (see engine.QuantityAnalyzer).
	ImpactFreeFraction float64 `json:"impact_free_fraction"` // fraction of depth consumable without impact
	ImpactSlope        float64 `json:"impact_slope"`         // price degradation per unit of excess depth ratio
	ImpactWarnPercent  float64 `json:"impact_warn_percent"`  // below this the impact is reported as negligible

	// Trend classification.
	VolumeTrendThresholdPercent float64 `json:"volume_trend_threshold_percent"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		SalesTaxPercent:             15,
		MinProfit:                   1_00, // 1 silver
		MaxOpportunities:            500,
		ScanWorkers:                 8,
		ImpactFreeFraction:          0.10,
		ImpactSlope:                 0.25,
		ImpactWarnPercent:           1.0,
		VolumeTrendThresholdPercent: 10,
	}
}
