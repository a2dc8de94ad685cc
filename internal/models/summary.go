package models

// PortfolioSummary holds portfolio-wide totals over open positions.
type PortfolioSummary struct {
	TotalMarketValue  float64 `json:"total_market_value"`
	TotalUnrealizedPL float64 `json:"total_unrealized_pl"`
}

// TagSummary holds per-tag totals. The percentages are value weighted and
// nil when no position in the tag had a usable baseline.
type TagSummary struct {
	Tag               string   `json:"tag"`
	TotalQuantity     float64  `json:"total_quantity"`
	TotalMarketValue  float64  `json:"total_market_value"`
	TotalUnrealizedPL float64  `json:"total_unrealized_pl"`
	ChangePct         *float64 `json:"change_pct"`
	Change10dPct      *float64 `json:"change_10d_pct"`
}

// TimeSeriesPoint is the valuation of a group of positions on one date.
type TimeSeriesPoint struct {
	Date         string  `json:"date"`
	MarketValue  float64 `json:"market_value"`
	UnrealizedPL float64 `json:"unrealized_pl"`
}

// TagTimeSeries is the per-tag and portfolio-wide valuation history.
type TagTimeSeries struct {
	Tags  map[string][]TimeSeriesPoint `json:"tags"`
	Total []TimeSeriesPoint            `json:"total"`
}
