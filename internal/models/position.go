package models

import "time"

// Position represents a tracked holding. Tags holds tag IDs as stored.
type Position struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	CostPrice    float64   `json:"cost_price"`
	Tags         []string  `json:"tags"`
	IsClosed     bool      `json:"is_closed"`
	ClosingPrice *float64  `json:"closing_price,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PositionInput is the client-supplied payload for creating a position.
// Tags are names; they are upserted into tag IDs before storage.
type PositionInput struct {
	Symbol       string   `json:"symbol"`
	Quantity     float64  `json:"quantity"`
	CostPrice    float64  `json:"cost_price"`
	Tags         []string `json:"tags"`
	IsClosed     bool     `json:"is_closed"`
	ClosingPrice *float64 `json:"closing_price,omitempty"`
}

// PositionPatch is a partial update. Nil fields are left untouched.
// Tags holds names on the way in and tag IDs once resolved.
type PositionPatch struct {
	Symbol       *string   `json:"symbol,omitempty"`
	Quantity     *float64  `json:"quantity,omitempty"`
	CostPrice    *float64  `json:"cost_price,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	IsClosed     *bool     `json:"is_closed,omitempty"`
	ClosingPrice *float64  `json:"closing_price,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p PositionPatch) IsEmpty() bool {
	return p.Symbol == nil && p.Quantity == nil && p.CostPrice == nil &&
		p.Tags == nil && p.IsClosed == nil && p.ClosingPrice == nil
}

// EnrichedPosition is a Position valued against the latest quote.
// Tags holds tag names. CurrentPrice is the effective price: the closing
// price for closed positions that have one, the live quote otherwise, and
// zero when neither is known (Priced is false in that case).
type EnrichedPosition struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	CostPrice    float64   `json:"cost_price"`
	Tags         []string  `json:"tags"`
	IsClosed     bool      `json:"is_closed"`
	ClosingPrice *float64  `json:"closing_price,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	CurrentPrice float64 `json:"current_price"`
	Priced       bool    `json:"priced"`
	MarketValue  float64 `json:"market_value"`
	UnrealizedPL float64 `json:"unrealized_pl"`

	Change       *float64 `json:"change"`
	ChangePct    *float64 `json:"change_pct"`
	LongName     *string  `json:"long_name"`
	Currency     *string  `json:"currency"`
	Price10d     *float64 `json:"price_10d"`
	Change10dPct *float64 `json:"change_10d_pct"`
}
