package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// QuoteCache stores resolved quotes as msgpack blobs under "quote:{SYMBOL}"
// with a fixed TTL.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

// GetQuotes returns the cached quotes among symbols. Missing or
// undecodable entries are omitted.
func (qc *QuoteCache) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	result := make(map[string]models.Quote, len(symbols))
	if len(symbols) == 0 {
		return result, nil
	}

	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = quoteKey(s)
	}

	vals, err := qc.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return result, fmt.Errorf("redis: get quotes: %w", err)
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		q, err := decodeQuote([]byte(raw))
		if err != nil {
			continue
		}
		result[symbols[i]] = q
	}
	return result, nil
}

// SetQuotes stores quotes in one pipeline.
func (qc *QuoteCache) SetQuotes(ctx context.Context, quotes []models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	pipe := qc.rdb.Pipeline()
	for _, q := range quotes {
		data, err := encodeQuote(q)
		if err != nil {
			return fmt.Errorf("redis: encode quote %s: %w", q.Symbol, err)
		}
		pipe.Set(ctx, quoteKey(q.Symbol), data, qc.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quotes: %w", err)
	}
	return nil
}

func encodeQuote(q models.Quote) ([]byte, error) {
	return msgpack.Marshal(&q)
}

func decodeQuote(data []byte) (models.Quote, error) {
	var q models.Quote
	err := msgpack.Unmarshal(data, &q)
	return q, err
}
