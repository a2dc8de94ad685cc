package portfolio

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// Summarize totals open positions that have a live price. Closed positions
// and open positions without a quote are left out rather than counted as
// zero.
func Summarize(positions []models.EnrichedPosition) models.PortfolioSummary {
	mv := decimal.Zero
	pl := decimal.Zero

	for _, p := range positions {
		if p.IsClosed || !p.Priced {
			continue
		}
		mv = mv.Add(decimal.NewFromFloat(p.MarketValue))
		pl = pl.Add(decimal.NewFromFloat(p.UnrealizedPL))
	}

	return models.PortfolioSummary{
		TotalMarketValue:  mv.InexactFloat64(),
		TotalUnrealizedPL: pl.InexactFloat64(),
	}
}
