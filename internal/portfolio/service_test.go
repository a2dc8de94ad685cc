package portfolio_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/portfolio"
	"github.com/trogers1052/portfolio-service/internal/portfolio/portfoliotest"
)

func f(v float64) *float64 { return &v }

type fixture struct {
	store  *portfoliotest.Store
	quotes *portfoliotest.Quotes
	events *portfoliotest.Events
	svc    *portfolio.Service
}

func newFixture() *fixture {
	store := portfoliotest.NewStore()
	quotes := portfoliotest.NewQuotes()
	events := &portfoliotest.Events{}
	return &fixture{
		store:  store,
		quotes: quotes,
		events: events,
		svc:    portfolio.NewService(store, store, quotes, portfolio.WithEventPublisher(events)),
	}
}

func TestService_CreatePosition(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes and enriches", func(t *testing.T) {
		fx := newFixture()
		fx.quotes.SetPrice("AAPL", 110)

		e, err := fx.svc.CreatePosition(ctx, models.PositionInput{
			Symbol:    " aapl ",
			Quantity:  2,
			CostPrice: 100,
			Tags:      []string{"Tech", " Growth ", "Tech"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "AAPL", e.Symbol)
		assert.Equal(t, []string{"Tech", "Growth"}, e.Tags)
		assert.Equal(t, 220.0, e.MarketValue)
		assert.Equal(t, 20.0, e.UnrealizedPL)
		assert.Equal(t, 2, fx.store.TagCount())
		assert.Equal(t, []string{models.EventPositionCreated}, fx.events.Types())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		fx := newFixture()
		cases := []models.PositionInput{
			{Symbol: "  ", Quantity: 1},
			{Symbol: "A", Quantity: 0},
			{Symbol: "A", Quantity: 1, CostPrice: -1},
			{Symbol: "A", Quantity: 1, ClosingPrice: f(-1)},
			{Symbol: "A", Quantity: 1, Tags: []string{""}},
			{Symbol: strings.Repeat("X", 33), Quantity: 1},
			{Symbol: "A", Quantity: 1, Tags: []string{strings.Repeat("t", 129)}},
			{Symbol: "A", Quantity: 1e16},
			{Symbol: "A", Quantity: 1, CostPrice: 1e17},
			{Symbol: "A", Quantity: 1, ClosingPrice: f(1e20)},
		}
		for _, in := range cases {
			_, err := fx.svc.CreatePosition(ctx, in)
			assert.True(t, errors.Is(err, portfolio.ErrInvalidInput), "input %+v", in)
		}
		assert.Empty(t, fx.events.Types())
	})

	t.Run("accepts values at the column limits", func(t *testing.T) {
		fx := newFixture()
		e, err := fx.svc.CreatePosition(ctx, models.PositionInput{
			Symbol:    strings.Repeat("X", 32),
			Quantity:  999999999999999,
			CostPrice: 0.00000001,
			Tags:      []string{strings.Repeat("é", 128)},
		})
		require.NoError(t, err)
		assert.Len(t, e.Tags, 1)
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		fx := newFixture()
		fx.events.Err = errors.New("broker down")

		_, err := fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "A", Quantity: 1})
		require.NoError(t, err)
	})
}

func TestService_UpdatePosition(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.quotes.SetPrice("MSFT", 50)

	created, err := fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "MSFT", Quantity: 1, CostPrice: 40, Tags: []string{"a"}})
	require.NoError(t, err)

	t.Run("only supplied fields change", func(t *testing.T) {
		qty := 3.0
		tags := []string{"b"}
		e, err := fx.svc.UpdatePosition(ctx, created.ID, models.PositionPatch{Quantity: &qty, Tags: &tags})
		require.NoError(t, err)
		assert.Equal(t, 3.0, e.Quantity)
		assert.Equal(t, 40.0, e.CostPrice)
		assert.Equal(t, []string{"b"}, e.Tags)
		assert.Equal(t, 150.0, e.MarketValue)
	})

	t.Run("close with closing price", func(t *testing.T) {
		closed := true
		e, err := fx.svc.UpdatePosition(ctx, created.ID, models.PositionPatch{IsClosed: &closed, ClosingPrice: f(60)})
		require.NoError(t, err)
		assert.True(t, e.IsClosed)
		assert.Equal(t, 60.0, e.CurrentPrice)
	})

	t.Run("empty patch returns current state", func(t *testing.T) {
		before := len(fx.events.Types())
		e, err := fx.svc.UpdatePosition(ctx, created.ID, models.PositionPatch{})
		require.NoError(t, err)
		assert.Equal(t, created.ID, e.ID)
		assert.Len(t, fx.events.Types(), before)
	})

	t.Run("unknown id", func(t *testing.T) {
		qty := 1.0
		_, err := fx.svc.UpdatePosition(ctx, "nope", models.PositionPatch{Quantity: &qty})
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("unknown id leaves tags untouched", func(t *testing.T) {
		before := fx.store.TagCount()
		tags := []string{"brand-new"}
		_, err := fx.svc.UpdatePosition(ctx, "nope", models.PositionPatch{Tags: &tags})
		assert.True(t, errors.Is(err, models.ErrNotFound))
		assert.Equal(t, before, fx.store.TagCount())
	})

	t.Run("invalid patch", func(t *testing.T) {
		qty := -1.0
		_, err := fx.svc.UpdatePosition(ctx, created.ID, models.PositionPatch{Quantity: &qty})
		assert.True(t, errors.Is(err, portfolio.ErrInvalidInput))

		long := strings.Repeat("Z", 33)
		_, err = fx.svc.UpdatePosition(ctx, created.ID, models.PositionPatch{Symbol: &long})
		assert.True(t, errors.Is(err, portfolio.ErrInvalidInput))

		huge := 1e16
		_, err = fx.svc.UpdatePosition(ctx, created.ID, models.PositionPatch{CostPrice: &huge})
		assert.True(t, errors.Is(err, portfolio.ErrInvalidInput))
	})
}

func TestService_DeleteRemovesFromListAndSummaries(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.quotes.SetPrice("A", 10)
	fx.quotes.SetPrice("B", 20)

	a, err := fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "A", Quantity: 1, CostPrice: 5, Tags: []string{"t"}})
	require.NoError(t, err)
	_, err = fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "B", Quantity: 1, CostPrice: 5, Tags: []string{"t"}})
	require.NoError(t, err)

	require.NoError(t, fx.svc.DeletePosition(ctx, a.ID))

	list, err := fx.svc.ListPositions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Symbol)

	summary, err := fx.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20.0, summary.TotalMarketValue)

	tags, err := fx.svc.TagSummary(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, 20.0, tags[0].TotalMarketValue)

	allTags, err := fx.svc.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, allTags, 1)

	_, err = fx.svc.GetPosition(ctx, a.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(fx.svc.DeletePosition(ctx, a.ID), models.ErrNotFound))
}

func TestService_SummaryTotals(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.quotes.SetPrice("OPEN", 110)

	_, err := fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "OPEN", Quantity: 2, CostPrice: 100})
	require.NoError(t, err)
	_, err = fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "SHUT", Quantity: 100, CostPrice: 1, IsClosed: true, ClosingPrice: f(999)})
	require.NoError(t, err)
	_, err = fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "DARK", Quantity: 7, CostPrice: 3})
	require.NoError(t, err)

	summary, err := fx.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 220.0, summary.TotalMarketValue)
	assert.Equal(t, 20.0, summary.TotalUnrealizedPL)
}

func TestService_TagTimeSeries(t *testing.T) {
	ctx := context.Background()

	t.Run("no open positions skips history", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "X", Quantity: 1, IsClosed: true})
		require.NoError(t, err)

		series, err := fx.svc.TagTimeSeries(ctx, "", "")
		require.NoError(t, err)
		assert.Empty(t, series.Tags)
		assert.NotNil(t, series.Tags)
		assert.Equal(t, []models.TimeSeriesPoint{}, series.Total)
		assert.Zero(t, fx.quotes.HistoryCalls)
	})

	t.Run("defaults and tagging", func(t *testing.T) {
		fx := newFixture()
		fx.quotes.Series["A"] = []models.PricePoint{{Date: "2024-01-01", Close: 2}}
		_, err := fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "A", Quantity: 3, CostPrice: 1, Tags: []string{"Core"}})
		require.NoError(t, err)

		series, err := fx.svc.TagTimeSeries(ctx, "", "")
		require.NoError(t, err)
		assert.Equal(t, portfolio.DefaultPeriod, fx.quotes.LastPeriod)
		assert.Equal(t, portfolio.DefaultInterval, fx.quotes.LastInterval)
		require.Len(t, series.Tags["Core"], 1)
		assert.Equal(t, 6.0, series.Tags["Core"][0].MarketValue)
		assert.Equal(t, 3.0, series.Total[0].UnrealizedPL)
	})

	t.Run("rejects unknown window", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.svc.TagTimeSeries(ctx, "7mo", "1d")
		assert.True(t, errors.Is(err, portfolio.ErrInvalidInput))
		_, err = fx.svc.TagTimeSeries(ctx, "1mo", "2h")
		assert.True(t, errors.Is(err, portfolio.ErrInvalidInput))
	})
}

func TestService_Tags(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()

	growth, err := fx.svc.CreateTag(ctx, "Growth")
	require.NoError(t, err)

	_, err = fx.svc.CreateTag(ctx, "Growth")
	assert.True(t, errors.Is(err, models.ErrAlreadyExists))

	_, err = fx.svc.CreateTag(ctx, "   ")
	assert.True(t, errors.Is(err, portfolio.ErrInvalidInput))

	_, err = fx.svc.CreateTag(ctx, strings.Repeat("n", 129))
	assert.True(t, errors.Is(err, portfolio.ErrInvalidInput))
	_, err = fx.svc.RenameTag(ctx, growth.ID, strings.Repeat("n", 129))
	assert.True(t, errors.Is(err, portfolio.ErrInvalidInput))

	renamed, err := fx.svc.RenameTag(ctx, growth.ID, "Momentum")
	require.NoError(t, err)
	assert.Equal(t, "Momentum", renamed.Name)

	p, err := fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "A", Quantity: 1, Tags: []string{"Momentum", "Value"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Momentum", "Value"}, p.Tags)

	require.NoError(t, fx.svc.DeleteTag(ctx, growth.ID))
	got, err := fx.svc.GetPosition(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Value"}, got.Tags)

	assert.True(t, errors.Is(fx.svc.DeleteTag(ctx, growth.ID), models.ErrNotFound))
	assert.Contains(t, fx.events.Types(), models.EventTagDeleted)
}

type stripFailingStore struct {
	*portfoliotest.Store
}

func (s stripFailingStore) RemoveTagFromPositions(context.Context, string) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestService_DeleteTagKeepsTagWhenStripFails(t *testing.T) {
	ctx := context.Background()
	store := portfoliotest.NewStore()
	events := &portfoliotest.Events{}
	svc := portfolio.NewService(stripFailingStore{store}, store, portfoliotest.NewQuotes(), portfolio.WithEventPublisher(events))

	p, err := svc.CreatePosition(ctx, models.PositionInput{Symbol: "A", Quantity: 1, Tags: []string{"Value"}})
	require.NoError(t, err)
	tags, err := svc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)

	require.Error(t, svc.DeleteTag(ctx, tags[0].ID))

	got, err := store.GetTagByID(ctx, tags[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Value", got.Name)
	pos, err := svc.GetPosition(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Value"}, pos.Tags)
	assert.NotContains(t, events.Types(), models.EventTagDeleted)
}

func TestService_ClosePositionsBySymbol(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()

	for i := 0; i < 2; i++ {
		_, err := fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "NVDA", Quantity: 1, CostPrice: 100})
		require.NoError(t, err)
	}
	_, err := fx.svc.CreatePosition(ctx, models.PositionInput{Symbol: "AMD", Quantity: 1, CostPrice: 100})
	require.NoError(t, err)

	n, err := fx.svc.ClosePositionsBySymbol(ctx, "nvda", 150)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	symbols, err := fx.svc.OpenSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AMD"}, symbols)

	list, err := fx.svc.ListPositions(ctx)
	require.NoError(t, err)
	for _, p := range list {
		if p.Symbol == "NVDA" {
			assert.True(t, p.IsClosed)
			assert.Equal(t, 150.0, p.CurrentPrice)
		}
	}

	n, err = fx.svc.ClosePositionsBySymbol(ctx, "NVDA", 150)
	require.NoError(t, err)
	assert.Zero(t, n)
}
