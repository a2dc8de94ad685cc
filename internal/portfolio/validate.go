package portfolio

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/trogers1052/portfolio-service/internal/models"
)

// Default history window for the tag time series
const (
	DefaultPeriod   = "6mo"
	DefaultInterval = "1d"
)

// Column limits of the positions and tags tables
const (
	maxSymbolLen  = 32
	maxTagNameLen = 128
	// NUMERIC(24,8) leaves 16 integer digits
	maxAmount = 1e16
)

var validPeriods = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

var validIntervals = map[string]bool{
	"1d": true, "5d": true, "1wk": true, "1mo": true, "3mo": true,
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func normalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", invalid("symbol is required")
	}
	if utf8.RuneCountInString(s) > maxSymbolLen {
		return "", invalid("symbol must be at most %d characters", maxSymbolLen)
	}
	return s, nil
}

func checkAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= maxAmount {
		return invalid("%s is out of range", field)
	}
	return nil
}

func validateQuantity(q float64) error {
	if q <= 0 {
		return invalid("quantity must be positive")
	}
	return checkAmount("quantity", q)
}

func validateCostPrice(c float64) error {
	if c < 0 {
		return invalid("cost_price must not be negative")
	}
	return checkAmount("cost_price", c)
}

func validateClosingPrice(c *float64) error {
	if c == nil {
		return nil
	}
	if *c < 0 {
		return invalid("closing_price must not be negative")
	}
	return checkAmount("closing_price", *c)
}

// normalizeTagNames trims names and drops duplicates, keeping the first
// occurrence.
func normalizeTagNames(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		name := strings.TrimSpace(n)
		if name == "" {
			return nil, invalid("tag names must not be empty")
		}
		if utf8.RuneCountInString(name) > maxTagNameLen {
			return nil, invalid("tag names must be at most %d characters", maxTagNameLen)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

func validateInput(in *models.PositionInput) error {
	symbol, err := normalizeSymbol(in.Symbol)
	if err != nil {
		return err
	}
	in.Symbol = symbol

	if err := validateQuantity(in.Quantity); err != nil {
		return err
	}
	if err := validateCostPrice(in.CostPrice); err != nil {
		return err
	}
	if err := validateClosingPrice(in.ClosingPrice); err != nil {
		return err
	}

	tags, err := normalizeTagNames(in.Tags)
	if err != nil {
		return err
	}
	in.Tags = tags
	return nil
}

func validatePatch(patch *models.PositionPatch) error {
	if patch.Symbol != nil {
		symbol, err := normalizeSymbol(*patch.Symbol)
		if err != nil {
			return err
		}
		patch.Symbol = &symbol
	}
	if patch.Quantity != nil {
		if err := validateQuantity(*patch.Quantity); err != nil {
			return err
		}
	}
	if patch.CostPrice != nil {
		if err := validateCostPrice(*patch.CostPrice); err != nil {
			return err
		}
	}
	if err := validateClosingPrice(patch.ClosingPrice); err != nil {
		return err
	}
	if patch.Tags != nil {
		tags, err := normalizeTagNames(*patch.Tags)
		if err != nil {
			return err
		}
		patch.Tags = &tags
	}
	return nil
}

// ValidateWindow checks a history period and interval, applying defaults
// for empty values.
func ValidateWindow(period, interval string) (string, string, error) {
	if period == "" {
		period = DefaultPeriod
	}
	if interval == "" {
		interval = DefaultInterval
	}
	if !validPeriods[period] {
		return "", "", invalid("unsupported period %q", period)
	}
	if !validIntervals[interval] {
		return "", "", invalid("unsupported interval %q", interval)
	}
	return period, interval, nil
}

func normalizeTagName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", invalid("tag name is required")
	}
	if utf8.RuneCountInString(n) > maxTagNameLen {
		return "", invalid("tag name must be at most %d characters", maxTagNameLen)
	}
	return n, nil
}
