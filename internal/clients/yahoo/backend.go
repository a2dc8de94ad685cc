package yahoo

import (
	"time"

	yfmodels "github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// backend is the part of go-yfinance the client needs. Values are copied
// out of the library structs so nothing outside this file depends on them.
type backend interface {
	marketPrice(symbol string) (float64, error)
	info(symbol string) (*infoFields, error)
	history(symbol, period, interval string) ([]bar, error)
}

type infoFields struct {
	CurrentPrice  float64
	PreviousClose float64
	Currency      string
	LongName      string
	ShortName     string
}

type bar struct {
	Date  time.Time
	Close float64
}

type tickerBackend struct{}

func (tickerBackend) marketPrice(symbol string) (float64, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return 0, err
	}
	defer t.Close()

	quote, err := t.Quote()
	if err != nil {
		return 0, err
	}
	if quote == nil {
		return 0, nil
	}
	return quote.RegularMarketPrice, nil
}

func (tickerBackend) info(symbol string) (*infoFields, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	info, err := t.Info()
	if err != nil || info == nil {
		return nil, err
	}
	return &infoFields{
		CurrentPrice:  info.CurrentPrice,
		PreviousClose: info.RegularMarketPreviousClose,
		Currency:      info.Currency,
		LongName:      info.LongName,
		ShortName:     info.ShortName,
	}, nil
}

func (tickerBackend) history(symbol, period, interval string) ([]bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	bars, err := t.History(yfmodels.HistoryParams{
		Period:     period,
		Interval:   interval,
		AutoAdjust: true,
	})
	if err != nil {
		return nil, err
	}

	out := make([]bar, 0, len(bars))
	for _, b := range bars {
		out = append(out, bar{Date: b.Date, Close: b.Close})
	}
	return out, nil
}
