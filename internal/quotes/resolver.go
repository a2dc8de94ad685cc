// Package quotes resolves best-effort market quotes and price history for
// a set of symbols.
package quotes

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/models"
	"golang.org/x/sync/errgroup"
)

// tenDayWindow is the history range used to find the price ten sessions ago
const tenDayWindow = "1mo"

// Provider is an upstream market data source.
type Provider interface {
	FastQuote(ctx context.Context, symbol string) (*models.MarketSnapshot, error)
	QuoteDetails(ctx context.Context, symbol string) (*models.QuoteDetails, error)
	History(ctx context.Context, symbol, period, interval string) ([]models.PricePoint, error)
}

// Cache stores resolved quotes between requests.
type Cache interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
	SetQuotes(ctx context.Context, quotes []models.Quote) error
}

// Config controls concurrency, timeouts and the details retry.
type Config struct {
	Concurrency   int
	SymbolTimeout time.Duration
	BatchTimeout  time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{
		Concurrency:   8,
		SymbolTimeout: 10 * time.Second,
		BatchTimeout:  20 * time.Second,
		RetryAttempts: 3,
		RetryBackoff:  500 * time.Millisecond,
	}
}

// Resolver fans symbol lookups out to a Provider.
type Resolver struct {
	provider Provider
	cache    Cache
	cfg      Config
	log      zerolog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithCache serves and stores quotes through c.
func WithCache(c Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = log.With().Str("component", "quotes").Logger()
	}
}

// NewResolver creates a Resolver. Zero config fields take their defaults.
func NewResolver(provider Provider, cfg Config, opts ...Option) *Resolver {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.SymbolTimeout <= 0 {
		cfg.SymbolTimeout = def.SymbolTimeout
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}

	r := &Resolver{
		provider: provider,
		cfg:      cfg,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a quote for every distinct symbol. It never fails: a
// symbol that could not be fetched maps to a quote with every field nil.
func (r *Resolver) Resolve(ctx context.Context, symbols []string) map[string]models.Quote {
	symbols = normalize(symbols)
	result := blankQuotes(symbols)
	if len(symbols) == 0 {
		return result
	}

	missing := symbols
	if r.cache != nil {
		cached, err := r.cache.GetQuotes(ctx, symbols)
		if err != nil {
			r.log.Warn().Err(err).Msg("Quote cache lookup failed")
		}
		missing = make([]string, 0, len(symbols))
		for _, s := range symbols {
			if q, ok := cached[s]; ok {
				result[s] = q
				continue
			}
			missing = append(missing, s)
		}
	}

	priced := r.fetch(ctx, missing, result)

	r.log.Debug().
		Int("requested", len(symbols)).
		Int("fetched", len(missing)).
		Int("priced", priced).
		Msg("Resolved quotes")

	return result
}

// Refresh fetches every symbol from the provider, ignoring cached entries,
// and overwrites the cache with the priced results.
func (r *Resolver) Refresh(ctx context.Context, symbols []string) map[string]models.Quote {
	symbols = normalize(symbols)
	result := blankQuotes(symbols)
	if len(symbols) == 0 {
		return result
	}

	priced := r.fetch(ctx, symbols, result)

	r.log.Debug().
		Int("requested", len(symbols)).
		Int("priced", priced).
		Msg("Refreshed quotes")

	return result
}

// fetch resolves symbols from the provider into result and caches the
// quotes that carry a current price. It returns how many did.
func (r *Resolver) fetch(ctx context.Context, symbols []string, result map[string]models.Quote) int {
	fetched := r.fanOut(ctx, symbols, func(ctx context.Context, symbol string) interface{} {
		return r.resolveOne(ctx, symbol)
	})

	fresh := make([]models.Quote, 0, len(fetched))
	for s, v := range fetched {
		q := v.(models.Quote)
		result[s] = q
		if q.Current != nil {
			fresh = append(fresh, q)
		}
	}

	if r.cache != nil && len(fresh) > 0 {
		if err := r.cache.SetQuotes(ctx, fresh); err != nil {
			r.log.Warn().Err(err).Msg("Quote cache store failed")
		}
	}
	return len(fresh)
}

func blankQuotes(symbols []string) map[string]models.Quote {
	result := make(map[string]models.Quote, len(symbols))
	for _, s := range symbols {
		result[s] = models.Quote{Symbol: s}
	}
	return result
}

// History returns chronological closes per symbol. A symbol whose history
// could not be fetched maps to an empty series.
func (r *Resolver) History(ctx context.Context, symbols []string, period, interval string) map[string][]models.PricePoint {
	symbols = normalize(symbols)
	result := make(map[string][]models.PricePoint, len(symbols))
	for _, s := range symbols {
		result[s] = []models.PricePoint{}
	}

	fetched := r.fanOut(ctx, symbols, func(ctx context.Context, symbol string) interface{} {
		points, err := r.provider.History(ctx, symbol, period, interval)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", symbol).Str("period", period).Msg("Failed to fetch history")
			return []models.PricePoint{}
		}
		return points
	})
	for s, v := range fetched {
		if points := v.([]models.PricePoint); points != nil {
			result[s] = points
		}
	}
	return result
}

// fanOut runs fn for each symbol with bounded concurrency, a per-symbol
// timeout and an overall batch timeout.
func (r *Resolver) fanOut(ctx context.Context, symbols []string, fn func(context.Context, string) interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(symbols))
	if len(symbols) == 0 {
		return out
	}

	batchCtx, cancel := context.WithTimeout(ctx, r.cfg.BatchTimeout)
	defer cancel()

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			symCtx, cancel := context.WithTimeout(batchCtx, r.cfg.SymbolTimeout)
			defer cancel()

			v := fn(symCtx, symbol)

			mu.Lock()
			out[symbol] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (r *Resolver) resolveOne(ctx context.Context, symbol string) models.Quote {
	q := models.Quote{Symbol: symbol}

	var price, prev *float64
	fast, err := r.provider.FastQuote(ctx, symbol)
	if err != nil {
		r.log.Debug().Err(err).Str("symbol", symbol).Msg("Fast quote unavailable")
	} else {
		price = fast.Price
		prev = fast.PreviousClose
		q.Currency = fast.Currency
	}

	if details := r.detailsWithRetry(ctx, symbol); details != nil {
		if price == nil {
			price = details.Price
		}
		if prev == nil {
			prev = details.PreviousClose
		}
		if q.Currency == nil {
			q.Currency = details.Currency
		}
		q.LongName = details.LongName
		if q.LongName == nil {
			q.LongName = details.ShortName
		}
	}

	q.Current = price
	if price != nil && prev != nil {
		change := *price - *prev
		q.Change = &change
		if *prev != 0 {
			pct := change / *prev * 100
			q.ChangePct = &pct
		}
	}

	history, err := r.provider.History(ctx, symbol, tenDayWindow, "1d")
	if err != nil {
		r.log.Debug().Err(err).Str("symbol", symbol).Msg("Ten day history unavailable")
	}
	if p10 := PriceTenSessionsAgo(history); p10 != nil {
		q.Price10d = p10
		if price != nil && *price != 0 && *p10 != 0 {
			pct := (*price / *p10 - 1) * 100
			q.Change10dPct = &pct
		}
	}

	return q
}

// detailsWithRetry calls QuoteDetails with exponential backoff. It returns
// nil once every attempt has failed.
func (r *Resolver) detailsWithRetry(ctx context.Context, symbol string) *models.QuoteDetails {
	wait := r.cfg.RetryBackoff
	for attempt := 1; attempt <= r.cfg.RetryAttempts; attempt++ {
		details, err := r.provider.QuoteDetails(ctx, symbol)
		if err == nil {
			return details
		}
		if attempt == r.cfg.RetryAttempts {
			r.log.Warn().Err(err).Str("symbol", symbol).Int("attempts", attempt).Msg("Quote details unavailable")
			return nil
		}

		r.log.Debug().Err(err).
			Str("symbol", symbol).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("Failed to get quote details, retrying")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		wait *= 2
	}
	return nil
}

// PriceTenSessionsAgo picks the close ten sessions before the latest one.
// With fewer than eleven closes it falls back to the earliest close, and
// returns nil when there are fewer than two.
func PriceTenSessionsAgo(history []models.PricePoint) *float64 {
	n := len(history)
	switch {
	case n >= 11:
		v := history[n-11].Close
		return &v
	case n >= 2:
		v := history[0].Close
		return &v
	default:
		return nil
	}
}

func normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
