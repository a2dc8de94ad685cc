package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trogers1052/portfolio-service/internal/models"
)

func TestSummarize(t *testing.T) {
	t.Run("only open priced positions count", func(t *testing.T) {
		open := Enrich(&models.Position{Symbol: "A", Quantity: 2, CostPrice: 100}, nil, models.Quote{Current: f(110)})
		closed := Enrich(&models.Position{Symbol: "B", Quantity: 100, CostPrice: 1, IsClosed: true, ClosingPrice: f(999)}, nil, models.Quote{})

		s := Summarize([]models.EnrichedPosition{open, closed})
		assert.Equal(t, 220.0, s.TotalMarketValue)
		assert.Equal(t, 20.0, s.TotalUnrealizedPL)
	})

	t.Run("unpriced open position is excluded, not zeroed", func(t *testing.T) {
		priced := Enrich(&models.Position{Symbol: "A", Quantity: 1, CostPrice: 10}, nil, models.Quote{Current: f(12)})
		unpriced := Enrich(&models.Position{Symbol: "B", Quantity: 5, CostPrice: 10}, nil, models.Quote{})

		s := Summarize([]models.EnrichedPosition{priced, unpriced})
		assert.Equal(t, 12.0, s.TotalMarketValue)
		assert.Equal(t, 2.0, s.TotalUnrealizedPL)
	})

	t.Run("empty", func(t *testing.T) {
		s := Summarize(nil)
		assert.Zero(t, s.TotalMarketValue)
		assert.Zero(t, s.TotalUnrealizedPL)
	})

	t.Run("decimal accumulation", func(t *testing.T) {
		var positions []models.EnrichedPosition
		for i := 0; i < 10; i++ {
			positions = append(positions, Enrich(&models.Position{Symbol: "A", Quantity: 1, CostPrice: 0}, nil, models.Quote{Current: f(0.1)}))
		}
		assert.Equal(t, 1.0, Summarize(positions).TotalMarketValue)
	})
}
