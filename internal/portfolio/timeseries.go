package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
)

type seriesSum struct {
	marketValue decimal.Decimal
	unrealized  decimal.Decimal
}

type dateSums map[string]*seriesSum

func (d dateSums) add(date string, mv, pl decimal.Decimal) {
	s, ok := d[date]
	if !ok {
		s = &seriesSum{}
		d[date] = s
	}
	s.marketValue = s.marketValue.Add(mv)
	s.unrealized = s.unrealized.Add(pl)
}

func (d dateSums) points() []models.TimeSeriesPoint {
	dates := make([]string, 0, len(d))
	for date := range d {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	points := make([]models.TimeSeriesPoint, 0, len(dates))
	for _, date := range dates {
		s := d[date]
		points = append(points, models.TimeSeriesPoint{
			Date:         date,
			MarketValue:  s.marketValue.InexactFloat64(),
			UnrealizedPL: s.unrealized.InexactFloat64(),
		})
	}
	return points
}

// BuildTimeSeries values open positions on every date in history. tagNames
// maps tag ID to name; unknown IDs are ignored. A symbol without a close
// on some date contributes nothing to that date. The total covers every
// open position whether tagged or not.
func BuildTimeSeries(positions []*models.Position, tagNames map[string]string, history map[string][]models.PricePoint) models.TagTimeSeries {
	total := dateSums{}
	perTag := map[string]dateSums{}

	for _, p := range positions {
		if p.IsClosed {
			continue
		}

		qty := decimal.NewFromFloat(p.Quantity)
		cost := decimal.NewFromFloat(p.CostPrice)
		names := uniqueNames(p.Tags, tagNames)

		for _, point := range history[p.Symbol] {
			price := decimal.NewFromFloat(point.Close)
			mv := qty.Mul(price)
			pl := qty.Mul(price.Sub(cost))

			total.add(point.Date, mv, pl)
			for _, name := range names {
				sums, ok := perTag[name]
				if !ok {
					sums = dateSums{}
					perTag[name] = sums
				}
				sums.add(point.Date, mv, pl)
			}
		}
	}

	series := models.TagTimeSeries{
		Tags:  make(map[string][]models.TimeSeriesPoint, len(perTag)),
		Total: total.points(),
	}
	for name, sums := range perTag {
		series.Tags[name] = sums.points()
	}
	return series
}

func uniqueNames(ids []string, tagNames map[string]string) []string {
	seen := make(map[string]bool, len(ids))
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := tagNames[id]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
