package portfolio

import "github.com/trogers1052/portfolio-service/internal/models"

// Enrich values a position against its quote. tagNames replaces the stored
// tag IDs in the result.
//
// The effective price is the closing price when the position is closed and
// has one, otherwise the live quote, otherwise zero with Priced unset.
// Closed positions never carry intraday or 10-day deltas.
func Enrich(p *models.Position, tagNames []string, q models.Quote) models.EnrichedPosition {
	if tagNames == nil {
		tagNames = []string{}
	}

	e := models.EnrichedPosition{
		ID:           p.ID,
		Symbol:       p.Symbol,
		Quantity:     p.Quantity,
		CostPrice:    p.CostPrice,
		Tags:         tagNames,
		IsClosed:     p.IsClosed,
		ClosingPrice: p.ClosingPrice,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		LongName:     q.LongName,
		Currency:     q.Currency,
	}

	switch {
	case p.IsClosed && p.ClosingPrice != nil:
		e.CurrentPrice = *p.ClosingPrice
		e.Priced = true
	case q.Current != nil:
		e.CurrentPrice = *q.Current
		e.Priced = true
	}

	e.MarketValue = p.Quantity * e.CurrentPrice
	e.UnrealizedPL = p.Quantity * (e.CurrentPrice - p.CostPrice)

	if !p.IsClosed {
		e.Change = q.Change
		e.ChangePct = q.ChangePct
		e.Price10d = q.Price10d
		e.Change10dPct = q.Change10dPct
	}

	return e
}
