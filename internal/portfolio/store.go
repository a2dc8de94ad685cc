package portfolio

import (
	"context"

	"github.com/trogers1052/portfolio-service/internal/models"
)

// PositionStore persists positions. Tags on stored positions are tag IDs.
type PositionStore interface {
	CreatePosition(ctx context.Context, p *models.Position) error
	GetPositionByID(ctx context.Context, id string) (*models.Position, error)
	GetAllPositions(ctx context.Context) ([]*models.Position, error)
	GetOpenPositions(ctx context.Context) ([]*models.Position, error)
	GetOpenPositionsBySymbol(ctx context.Context, symbol string) ([]*models.Position, error)
	UpdatePosition(ctx context.Context, id string, patch models.PositionPatch) error
	DeletePosition(ctx context.Context, id string) error
	RemoveTagFromPositions(ctx context.Context, tagID string) (int64, error)
}

// TagStore persists tags. CreateTag must fail with models.ErrAlreadyExists
// when the name is taken.
type TagStore interface {
	CreateTag(ctx context.Context, t *models.Tag) error
	GetTagByID(ctx context.Context, id string) (*models.Tag, error)
	GetTagByName(ctx context.Context, name string) (*models.Tag, error)
	GetTagsByIDs(ctx context.Context, ids []string) ([]*models.Tag, error)
	GetAllTags(ctx context.Context) ([]*models.Tag, error)
	RenameTag(ctx context.Context, id, name string) error
	DeleteTag(ctx context.Context, id string) error
}

// QuoteSource resolves live quotes and price history. Both calls are best
// effort: failures show up as absent quote fields or empty series.
type QuoteSource interface {
	Resolve(ctx context.Context, symbols []string) map[string]models.Quote
	History(ctx context.Context, symbols []string, period, interval string) map[string][]models.PricePoint
}

// EventPublisher announces position and tag changes.
type EventPublisher interface {
	Publish(ctx context.Context, event models.PortfolioEvent) error
}
