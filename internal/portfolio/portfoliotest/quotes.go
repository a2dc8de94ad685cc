package portfoliotest

import (
	"context"
	"sync"

	"github.com/trogers1052/portfolio-service/internal/models"
)

// Quotes is a canned quote source that records its calls.
type Quotes struct {
	mu           sync.Mutex
	Quotes       map[string]models.Quote
	Series       map[string][]models.PricePoint
	ResolveCalls int
	HistoryCalls int
	LastSymbols  []string
	LastPeriod   string
	LastInterval string
}

// NewQuotes creates an empty quote source
func NewQuotes() *Quotes {
	return &Quotes{
		Quotes: map[string]models.Quote{},
		Series: map[string][]models.PricePoint{},
	}
}

// SetPrice registers a quote carrying only a current price.
func (q *Quotes) SetPrice(symbol string, price float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Quotes[symbol] = models.Quote{Symbol: symbol, Current: &price}
}

func (q *Quotes) Resolve(_ context.Context, symbols []string) map[string]models.Quote {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.ResolveCalls++
	q.LastSymbols = append([]string{}, symbols...)

	out := make(map[string]models.Quote, len(symbols))
	for _, s := range symbols {
		quote, ok := q.Quotes[s]
		if !ok {
			quote = models.Quote{Symbol: s}
		}
		out[s] = quote
	}
	return out
}

func (q *Quotes) History(_ context.Context, symbols []string, period, interval string) map[string][]models.PricePoint {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.HistoryCalls++
	q.LastSymbols = append([]string{}, symbols...)
	q.LastPeriod = period
	q.LastInterval = interval

	out := make(map[string][]models.PricePoint, len(symbols))
	for _, s := range symbols {
		out[s] = q.Series[s]
		if out[s] == nil {
			out[s] = []models.PricePoint{}
		}
	}
	return out
}

// Events records published events.
type Events struct {
	mu     sync.Mutex
	Events []models.PortfolioEvent
	Err    error
}

func (e *Events) Publish(_ context.Context, event models.PortfolioEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Events = append(e.Events, event)
	return e.Err
}

// Types returns the recorded event types in order.
func (e *Events) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]string, 0, len(e.Events))
	for _, ev := range e.Events {
		types = append(types, ev.EventType)
	}
	return types
}
