// Package yahoo provides the market data provider backed by go-yfinance.
package yahoo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/models"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 10 // requests per second

	// previousCloseWindow is the daily history used to find the last
	// completed session's close
	previousCloseWindow = "5d"
)

// Client fetches quotes and history from Yahoo Finance
type Client struct {
	backend backend
	limiter *rate.Limiter
	timeout time.Duration
	log     zerolog.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log.With().Str("client", "yahoo").Logger()
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout bounds each upstream call
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func withBackend(b backend) ClientOption {
	return func(c *Client) {
		c.backend = b
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		backend: tickerBackend{},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FastQuote returns the regular market price and the close of the session
// before the latest one in the daily bars.
func (c *Client) FastQuote(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	var price float64
	priceErr := c.call(ctx, "quote", symbol, func() error {
		var err error
		price, err = c.backend.marketPrice(symbol)
		return err
	})

	var bars []bar
	barsErr := c.call(ctx, "history", symbol, func() error {
		var err error
		bars, err = c.backend.history(symbol, previousCloseWindow, "1d")
		return err
	})

	if priceErr != nil && barsErr != nil {
		return nil, fmt.Errorf("failed to get fast quote for %s: %w", symbol, priceErr)
	}

	snapshot := &models.MarketSnapshot{}
	if priceErr == nil {
		snapshot.Price = positive(price)
	}
	if barsErr == nil {
		if points := toPoints(bars); len(points) >= 2 {
			prev := points[len(points)-2].Close
			snapshot.PreviousClose = &prev
		}
	}
	return snapshot, nil
}

// QuoteDetails returns the info record for symbol
func (c *Client) QuoteDetails(ctx context.Context, symbol string) (*models.QuoteDetails, error) {
	var info *infoFields
	err := c.call(ctx, "info", symbol, func() error {
		var err error
		info, err = c.backend.info(symbol)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get quote details for %s: %w", symbol, err)
	}
	if info == nil {
		return nil, fmt.Errorf("yahoo: no info for %s", symbol)
	}

	return &models.QuoteDetails{
		Price:         positive(info.CurrentPrice),
		PreviousClose: positive(info.PreviousClose),
		Currency:      nonEmpty(info.Currency),
		LongName:      nonEmpty(info.LongName),
		ShortName:     nonEmpty(info.ShortName),
	}, nil
}

// History returns chronological closes for symbol over period at interval.
// Bars without a usable close are skipped and one point is kept per date.
func (c *Client) History(ctx context.Context, symbol, period, interval string) ([]models.PricePoint, error) {
	var bars []bar
	err := c.call(ctx, "history", symbol, func() error {
		var err error
		bars, err = c.backend.history(symbol, period, interval)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", symbol, err)
	}
	return toPoints(bars), nil
}

// call rate limits fn and bounds it by ctx and the client timeout. The
// library calls take no context, so a timed out call is abandoned and its
// result discarded.
func (c *Client) call(ctx context.Context, op, symbol string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		if err != nil {
			c.log.Debug().Err(err).
				Str("op", op).
				Str("symbol", symbol).
				Dur("elapsed", time.Since(start)).
				Msg("Yahoo call failed")
		}
		return err
	case <-ctx.Done():
		c.log.Debug().Str("op", op).Str("symbol", symbol).Msg("Yahoo call abandoned")
		return ctx.Err()
	}
}

func toPoints(bars []bar) []models.PricePoint {
	sorted := make([]bar, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 && !math.IsNaN(b.Close) && !math.IsInf(b.Close, 0) {
			sorted = append(sorted, b)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	points := make([]models.PricePoint, 0, len(sorted))
	for _, b := range sorted {
		date := b.Date.Format("2006-01-02")
		if n := len(points); n > 0 && points[n-1].Date == date {
			points[n-1].Close = b.Close
			continue
		}
		points = append(points, models.PricePoint{Date: date, Close: b.Close})
	}
	return points
}

func positive(v float64) *float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
