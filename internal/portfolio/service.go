package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// Service implements position and tag management plus the valuation
// endpoints. Every read recomputes valuations from the store and the
// quote source.
type Service struct {
	positions PositionStore
	tags      TagStore
	resolver  *TagResolver
	quotes    QuoteSource
	events    EventPublisher
	log       zerolog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithEventPublisher announces every position and tag change on p.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log.With().Str("component", "portfolio").Logger()
	}
}

// NewService creates a Service
func NewService(positions PositionStore, tags TagStore, quotes QuoteSource, opts ...Option) *Service {
	s := &Service{
		positions: positions,
		tags:      tags,
		resolver:  NewTagResolver(tags),
		quotes:    quotes,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPositions returns every position, open and closed, enriched.
func (s *Service) ListPositions(ctx context.Context) ([]models.EnrichedPosition, error) {
	positions, err := s.positions.GetAllPositions(ctx)
	if err != nil {
		return nil, err
	}
	return s.enrichAll(ctx, positions)
}

// GetPosition returns one enriched position.
func (s *Service) GetPosition(ctx context.Context, id string) (*models.EnrichedPosition, error) {
	p, err := s.positions.GetPositionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, p)
}

// CreatePosition validates in, upserts its tags and stores the position.
func (s *Service) CreatePosition(ctx context.Context, in models.PositionInput) (*models.EnrichedPosition, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	tagIDs, err := s.resolver.Upsert(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	p := &models.Position{
		Symbol:       in.Symbol,
		Quantity:     in.Quantity,
		CostPrice:    in.CostPrice,
		Tags:         tagIDs,
		IsClosed:     in.IsClosed,
		ClosingPrice: in.ClosingPrice,
	}
	if err := s.positions.CreatePosition(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("position_id", p.ID).
		Str("symbol", p.Symbol).
		Float64("quantity", p.Quantity).
		Msg("Position created")
	s.publish(ctx, models.PortfolioEvent{
		EventType:  models.EventPositionCreated,
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Position:   p,
	})

	return s.enrichOne(ctx, p)
}

// UpdatePosition applies a partial update. Tags in patch are names.
func (s *Service) UpdatePosition(ctx context.Context, id string, patch models.PositionPatch) (*models.EnrichedPosition, error) {
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}
	if _, err := s.positions.GetPositionByID(ctx, id); err != nil {
		return nil, err
	}

	if patch.Tags != nil {
		tagIDs, err := s.resolver.Upsert(ctx, *patch.Tags)
		if err != nil {
			return nil, err
		}
		patch.Tags = &tagIDs
	}

	if !patch.IsEmpty() {
		if err := s.positions.UpdatePosition(ctx, id, patch); err != nil {
			return nil, err
		}
	}

	p, err := s.positions.GetPositionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !patch.IsEmpty() {
		s.log.Info().Str("position_id", id).Msg("Position updated")
		s.publish(ctx, models.PortfolioEvent{
			EventType:  models.EventPositionUpdated,
			PositionID: p.ID,
			Symbol:     p.Symbol,
			Position:   p,
		})
	}

	return s.enrichOne(ctx, p)
}

// DeletePosition removes a position. Tags are left alone.
func (s *Service) DeletePosition(ctx context.Context, id string) error {
	if err := s.positions.DeletePosition(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("position_id", id).Msg("Position deleted")
	s.publish(ctx, models.PortfolioEvent{
		EventType:  models.EventPositionDeleted,
		PositionID: id,
	})
	return nil
}

// ClosePositionsBySymbol marks every open position in symbol closed at
// price and returns how many were closed.
func (s *Service) ClosePositionsBySymbol(ctx context.Context, symbol string, price float64) (int, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return 0, err
	}
	if err := validateClosingPrice(&price); err != nil {
		return 0, err
	}

	open, err := s.positions.GetOpenPositionsBySymbol(ctx, symbol)
	if err != nil {
		return 0, err
	}

	closed := true
	for _, p := range open {
		closingPrice := price
		patch := models.PositionPatch{IsClosed: &closed, ClosingPrice: &closingPrice}
		if err := s.positions.UpdatePosition(ctx, p.ID, patch); err != nil {
			return 0, fmt.Errorf("failed to close position %s: %w", p.ID, err)
		}

		p.IsClosed = true
		p.ClosingPrice = &closingPrice
		s.publish(ctx, models.PortfolioEvent{
			EventType:  models.EventPositionUpdated,
			PositionID: p.ID,
			Symbol:     p.Symbol,
			Position:   p,
		})
	}

	if len(open) > 0 {
		s.log.Info().
			Str("symbol", symbol).
			Float64("price", price).
			Int("count", len(open)).
			Msg("Closed positions")
	}
	return len(open), nil
}

// Summary totals the open positions that have a live price.
func (s *Service) Summary(ctx context.Context) (models.PortfolioSummary, error) {
	enriched, err := s.openEnriched(ctx)
	if err != nil {
		return models.PortfolioSummary{}, err
	}
	return Summarize(enriched), nil
}

// TagSummary totals open positions per tag name.
func (s *Service) TagSummary(ctx context.Context) ([]models.TagSummary, error) {
	enriched, err := s.openEnriched(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeTags(enriched), nil
}

// TagTimeSeries values open positions over a history window.
func (s *Service) TagTimeSeries(ctx context.Context, period, interval string) (models.TagTimeSeries, error) {
	period, interval, err := ValidateWindow(period, interval)
	if err != nil {
		return models.TagTimeSeries{}, err
	}

	open, err := s.positions.GetOpenPositions(ctx)
	if err != nil {
		return models.TagTimeSeries{}, err
	}
	if len(open) == 0 {
		return models.TagTimeSeries{
			Tags:  map[string][]models.TimeSeriesPoint{},
			Total: []models.TimeSeriesPoint{},
		}, nil
	}

	names, err := s.resolver.NameMap(ctx, collectTagIDs(open))
	if err != nil {
		return models.TagTimeSeries{}, err
	}

	history := s.quotes.History(ctx, collectSymbols(open), period, interval)
	return BuildTimeSeries(open, names, history), nil
}

// OpenSymbols returns the distinct symbols of all open positions.
func (s *Service) OpenSymbols(ctx context.Context) ([]string, error) {
	open, err := s.positions.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	return collectSymbols(open), nil
}

// ListTags returns all tags ordered by name.
func (s *Service) ListTags(ctx context.Context) ([]*models.Tag, error) {
	return s.tags.GetAllTags(ctx)
}

// CreateTag creates a tag. A taken name yields models.ErrAlreadyExists.
func (s *Service) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name, err := normalizeTagName(name)
	if err != nil {
		return nil, err
	}

	tag := &models.Tag{Name: name}
	if err := s.tags.CreateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// RenameTag renames a tag. Positions reference tags by ID so they follow.
func (s *Service) RenameTag(ctx context.Context, id, name string) (*models.Tag, error) {
	name, err := normalizeTagName(name)
	if err != nil {
		return nil, err
	}
	if err := s.tags.RenameTag(ctx, id, name); err != nil {
		return nil, err
	}
	return s.tags.GetTagByID(ctx, id)
}

// DeleteTag strips a tag from every position, then removes the tag. A
// failed strip leaves the tag in place so the delete can be retried.
func (s *Service) DeleteTag(ctx context.Context, id string) error {
	if _, err := s.tags.GetTagByID(ctx, id); err != nil {
		return err
	}

	stripped, err := s.positions.RemoveTagFromPositions(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tags.DeleteTag(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("tag_id", id).Int64("positions", stripped).Msg("Tag deleted")
	s.publish(ctx, models.PortfolioEvent{
		EventType: models.EventTagDeleted,
		TagID:     id,
	})
	return nil
}

func (s *Service) openEnriched(ctx context.Context) ([]models.EnrichedPosition, error) {
	open, err := s.positions.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	return s.enrichAll(ctx, open)
}

func (s *Service) enrichOne(ctx context.Context, p *models.Position) (*models.EnrichedPosition, error) {
	enriched, err := s.enrichAll(ctx, []*models.Position{p})
	if err != nil {
		return nil, err
	}
	return &enriched[0], nil
}

func (s *Service) enrichAll(ctx context.Context, positions []*models.Position) ([]models.EnrichedPosition, error) {
	result := make([]models.EnrichedPosition, 0, len(positions))
	if len(positions) == 0 {
		return result, nil
	}

	names, err := s.resolver.NameMap(ctx, collectTagIDs(positions))
	if err != nil {
		return nil, err
	}

	quotes := s.quotes.Resolve(ctx, collectSymbols(positions))
	for _, p := range positions {
		result = append(result, Enrich(p, namesFor(p.Tags, names), quotes[p.Symbol]))
	}
	return result, nil
}

func (s *Service) publish(ctx context.Context, event models.PortfolioEvent) {
	if s.events == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event_type", event.EventType).Msg("Failed to publish event")
	}
}

func collectSymbols(positions []*models.Position) []string {
	seen := make(map[string]bool, len(positions))
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		if seen[p.Symbol] {
			continue
		}
		seen[p.Symbol] = true
		symbols = append(symbols, p.Symbol)
	}
	return symbols
}

func collectTagIDs(positions []*models.Position) []string {
	seen := map[string]bool{}
	ids := []string{}
	for _, p := range positions {
		for _, id := range p.Tags {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
