package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// SymbolSource lists the symbols worth keeping warm
type SymbolSource interface {
	OpenSymbols(ctx context.Context) ([]string, error)
}

// QuoteRefresher fetches quotes past the cache and stores them in it
type QuoteRefresher interface {
	Refresh(ctx context.Context, symbols []string) map[string]models.Quote
}

// QuoteWarmer refreshes quotes for every open symbol so that dashboard
// requests are served from the quote cache.
type QuoteWarmer struct {
	symbols  SymbolSource
	resolver QuoteRefresher
	log      zerolog.Logger
}

// NewQuoteWarmer creates a QuoteWarmer
func NewQuoteWarmer(symbols SymbolSource, resolver QuoteRefresher, log zerolog.Logger) *QuoteWarmer {
	return &QuoteWarmer{
		symbols:  symbols,
		resolver: resolver,
		log:      log.With().Str("job", "quote_warmer").Logger(),
	}
}

func (w *QuoteWarmer) Name() string {
	return "quote_warmer"
}

func (w *QuoteWarmer) Run(ctx context.Context) error {
	symbols, err := w.symbols.OpenSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil
	}

	quotes := w.resolver.Refresh(ctx, symbols)

	priced := 0
	for _, q := range quotes {
		if q.Current != nil {
			priced++
		}
	}
	w.log.Info().
		Int("symbols", len(symbols)).
		Int("priced", priced).
		Msg("Quotes warmed")
	return nil
}
