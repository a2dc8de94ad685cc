package models

// Quote is a best-effort market snapshot for one symbol. Every field is
// independently optional: nil means the value could not be obtained.
// ChangePct and Change10dPct are in percent units (1.27 means +1.27%).
type Quote struct {
	Symbol       string   `json:"symbol" msgpack:"symbol"`
	Current      *float64 `json:"current" msgpack:"current"`
	Change       *float64 `json:"change" msgpack:"change"`
	ChangePct    *float64 `json:"change_pct" msgpack:"change_pct"`
	LongName     *string  `json:"long_name" msgpack:"long_name"`
	Currency     *string  `json:"currency" msgpack:"currency"`
	Price10d     *float64 `json:"price_10d" msgpack:"price_10d"`
	Change10dPct *float64 `json:"change_10d_pct" msgpack:"change_10d_pct"`
}

// PricePoint is one historical close.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// MarketSnapshot is the lightweight price view served by a chart lookup.
type MarketSnapshot struct {
	Price         *float64
	PreviousClose *float64
	Currency      *string
}

// QuoteDetails is the richer quote record. Any field may be missing.
type QuoteDetails struct {
	Price         *float64
	PreviousClose *float64
	Currency      *string
	LongName      *string
	ShortName     *string
}
