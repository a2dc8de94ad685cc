package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ratio accumulates a value-weighted percentage as a ratio of sums.
type ratio struct {
	num decimal.Decimal
	den decimal.Decimal
}

// add contributes (value - base, base) when base is positive.
func (r *ratio) add(value, base decimal.Decimal) {
	if !base.IsPositive() {
		return
	}
	r.num = r.num.Add(value.Sub(base))
	r.den = r.den.Add(base)
}

func (r ratio) percent() *float64 {
	if r.den.IsZero() {
		return nil
	}
	pct := r.num.Div(r.den).Mul(hundred).InexactFloat64()
	return &pct
}

type tagBucket struct {
	quantity    decimal.Decimal
	marketValue decimal.Decimal
	unrealized  decimal.Decimal
	intraday    ratio
	tenDay      ratio
}

// SummarizeTags buckets open positions by tag name. Positions are expected
// to carry tag names, not IDs. A position with several tags counts fully
// in each of them. The result is sorted by tag name.
func SummarizeTags(positions []models.EnrichedPosition) []models.TagSummary {
	buckets := map[string]*tagBucket{}

	for _, p := range positions {
		if p.IsClosed {
			continue
		}

		qty := decimal.NewFromFloat(p.Quantity)
		mv := decimal.NewFromFloat(p.MarketValue)
		pl := decimal.NewFromFloat(p.UnrealizedPL)

		for _, name := range p.Tags {
			b, ok := buckets[name]
			if !ok {
				b = &tagBucket{}
				buckets[name] = b
			}

			b.quantity = b.quantity.Add(qty)
			b.marketValue = b.marketValue.Add(mv)
			b.unrealized = b.unrealized.Add(pl)

			if p.Change != nil {
				base := mv.Sub(qty.Mul(decimal.NewFromFloat(*p.Change)))
				b.intraday.add(mv, base)
			}
			// an unpriced position has zero market value and would read as a total loss
			if p.Priced && p.Price10d != nil {
				base := qty.Mul(decimal.NewFromFloat(*p.Price10d))
				b.tenDay.add(mv, base)
			}
		}
	}

	summaries := make([]models.TagSummary, 0, len(buckets))
	for name, b := range buckets {
		summaries = append(summaries, models.TagSummary{
			Tag:               name,
			TotalQuantity:     b.quantity.InexactFloat64(),
			TotalMarketValue:  b.marketValue.InexactFloat64(),
			TotalUnrealizedPL: b.unrealized.InexactFloat64(),
			ChangePct:         b.intraday.percent(),
			Change10dPct:      b.tenDay.percent(),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Tag < summaries[j].Tag
	})

	return summaries
}
