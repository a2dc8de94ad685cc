package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/quotes"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

type fakeSymbols struct {
	symbols []string
	err     error
}

func (f fakeSymbols) OpenSymbols(context.Context) ([]string, error) {
	return f.symbols, f.err
}

type fakeResolver struct {
	calls   int
	symbols []string
}

func (f *fakeResolver) Refresh(_ context.Context, symbols []string) map[string]models.Quote {
	f.calls++
	f.symbols = symbols
	price := 10.0
	out := map[string]models.Quote{}
	for i, s := range symbols {
		q := models.Quote{Symbol: s}
		if i == 0 {
			q.Current = &price
		}
		out[s] = q
	}
	return out
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop(), 0)
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
	assert.NoError(t, s.AddJob("@every 5m", &countingJob{}))
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop(), time.Second)

	job := &countingJob{}
	require.NoError(t, s.RunNow(context.Background(), job))
	assert.Equal(t, int32(1), job.runs.Load())

	failing := &countingJob{err: errors.New("boom")}
	assert.EqualError(t, s.RunNow(context.Background(), failing), "boom")
}

func TestScheduler_RunFiresJobsUntilCancelled(t *testing.T) {
	s := New(zerolog.Nop(), 0)
	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 1s", job))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestQuoteWarmer(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves open symbols", func(t *testing.T) {
		resolver := &fakeResolver{}
		w := NewQuoteWarmer(fakeSymbols{symbols: []string{"AAPL", "MSFT"}}, resolver, zerolog.Nop())

		require.NoError(t, w.Run(ctx))
		assert.Equal(t, 1, resolver.calls)
		assert.Equal(t, []string{"AAPL", "MSFT"}, resolver.symbols)
	})

	t.Run("nothing open skips resolution", func(t *testing.T) {
		resolver := &fakeResolver{}
		w := NewQuoteWarmer(fakeSymbols{}, resolver, zerolog.Nop())

		require.NoError(t, w.Run(ctx))
		assert.Equal(t, 0, resolver.calls)
	})

	t.Run("store failure", func(t *testing.T) {
		resolver := &fakeResolver{}
		w := NewQuoteWarmer(fakeSymbols{err: errors.New("db down")}, resolver, zerolog.Nop())

		err := w.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
		assert.Equal(t, 0, resolver.calls)
	})

	assert.Equal(t, "quote_warmer", NewQuoteWarmer(fakeSymbols{}, &fakeResolver{}, zerolog.Nop()).Name())
}

type countingProvider struct {
	mu    sync.Mutex
	price float64
	fast  int
}

func (p *countingProvider) FastQuote(context.Context, string) (*models.MarketSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fast++
	price := p.price
	return &models.MarketSnapshot{Price: &price}, nil
}

func (p *countingProvider) QuoteDetails(context.Context, string) (*models.QuoteDetails, error) {
	return &models.QuoteDetails{}, nil
}

func (p *countingProvider) History(context.Context, string, string, string) ([]models.PricePoint, error) {
	return []models.PricePoint{}, nil
}

type mapCache struct {
	mu     sync.Mutex
	quotes map[string]models.Quote
}

func (c *mapCache) GetQuotes(_ context.Context, symbols []string) (map[string]models.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]models.Quote{}
	for _, s := range symbols {
		if q, ok := c.quotes[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

func (c *mapCache) SetQuotes(_ context.Context, qs []models.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range qs {
		c.quotes[q.Symbol] = q
	}
	return nil
}

func TestQuoteWarmer_RefreshesCachedSymbols(t *testing.T) {
	ctx := context.Background()
	stale := 100.0
	cache := &mapCache{quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Current: &stale},
	}}
	provider := &countingProvider{price: 105}
	resolver := quotes.NewResolver(provider, quotes.Config{RetryAttempts: 1}, quotes.WithCache(cache))

	w := NewQuoteWarmer(fakeSymbols{symbols: []string{"AAPL"}}, resolver, zerolog.Nop())
	require.NoError(t, w.Run(ctx))

	assert.Equal(t, 1, provider.fast, "cached symbol is fetched again")
	require.NotNil(t, cache.quotes["AAPL"].Current)
	assert.Equal(t, 105.0, *cache.quotes["AAPL"].Current)

	got := resolver.Resolve(ctx, []string{"AAPL"})
	assert.Equal(t, 105.0, *got["AAPL"].Current)
	assert.Equal(t, 1, provider.fast, "dashboard read is served from the warmed cache")
}
