package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/trogers1052/portfolio-service/internal/models"
)

const positionColumns = `id, symbol, quantity, cost_price, tag_ids, is_closed, closing_price, created_at, updated_at`

// CreatePosition inserts a new position and assigns its ID and timestamps
func (db *DB) CreatePosition(ctx context.Context, p *models.Position) error {
	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	now := time.Now().UTC()
	id := uuid.New().String()
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := db.conn.ExecContext(ctx, query,
		id, p.Symbol, p.Quantity, p.CostPrice, pq.Array(tags),
		p.IsClosed, p.ClosingPrice, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}

	p.ID = id
	p.Tags = tags
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPositionByID retrieves a position by ID
func (db *DB) GetPositionByID(ctx context.Context, id string) (*models.Position, error) {
	if !validID(id) {
		return nil, fmt.Errorf("position %w: %s", models.ErrNotFound, id)
	}

	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`
	p, err := scanPosition(db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("position %w: %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// GetAllPositions retrieves every position, oldest first
func (db *DB) GetAllPositions(ctx context.Context) ([]*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions ORDER BY created_at ASC, id ASC`
	return db.scanPositions(db.conn.QueryContext(ctx, query))
}

// GetOpenPositions retrieves positions that are not marked closed
func (db *DB) GetOpenPositions(ctx context.Context) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE is_closed = false
		ORDER BY created_at ASC, id ASC
	`
	return db.scanPositions(db.conn.QueryContext(ctx, query))
}

// GetOpenPositionsBySymbol retrieves the open positions held in one symbol
func (db *DB) GetOpenPositionsBySymbol(ctx context.Context, symbol string) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE symbol = $1 AND is_closed = false
		ORDER BY created_at ASC, id ASC
	`
	return db.scanPositions(db.conn.QueryContext(ctx, query, symbol))
}

// UpdatePosition applies a partial update. Only non-nil patch fields are
// written; patch.Tags must already hold tag IDs.
func (db *DB) UpdatePosition(ctx context.Context, id string, patch models.PositionPatch) error {
	if !validID(id) {
		return fmt.Errorf("position %w: %s", models.ErrNotFound, id)
	}

	sets := []string{}
	args := []interface{}{id}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Symbol != nil {
		add("symbol", *patch.Symbol)
	}
	if patch.Quantity != nil {
		add("quantity", *patch.Quantity)
	}
	if patch.CostPrice != nil {
		add("cost_price", *patch.CostPrice)
	}
	if patch.Tags != nil {
		add("tag_ids", pq.Array(*patch.Tags))
	}
	if patch.IsClosed != nil {
		add("is_closed", *patch.IsClosed)
	}
	if patch.ClosingPrice != nil {
		add("closing_price", *patch.ClosingPrice)
	}
	add("updated_at", time.Now().UTC())

	query := `UPDATE positions SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("position %w: %s", models.ErrNotFound, id)
	}
	return nil
}

// DeletePosition removes a position by ID
func (db *DB) DeletePosition(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("position %w: %s", models.ErrNotFound, id)
	}

	query := `DELETE FROM positions WHERE id = $1`
	result, err := db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("position %w: %s", models.ErrNotFound, id)
	}
	return nil
}

// RemoveTagFromPositions strips a tag ID from every position carrying it
// and returns the number of positions changed
func (db *DB) RemoveTagFromPositions(ctx context.Context, tagID string) (int64, error) {
	if !validID(tagID) {
		return 0, nil
	}

	query := `
		UPDATE positions
		SET tag_ids = array_remove(tag_ids, $1::uuid), updated_at = $2
		WHERE $1::uuid = ANY(tag_ids)
	`
	result, err := db.conn.ExecContext(ctx, query, tagID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to remove tag from positions: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var p models.Position
	var tags pq.StringArray
	var closingPrice sql.NullFloat64

	err := row.Scan(
		&p.ID, &p.Symbol, &p.Quantity, &p.CostPrice, &tags,
		&p.IsClosed, &closingPrice, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Tags = []string(tags)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if closingPrice.Valid {
		p.ClosingPrice = &closingPrice.Float64
	}
	return &p, nil
}

func (db *DB) scanPositions(rows *sql.Rows, err error) ([]*models.Position, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := []*models.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}

	return positions, nil
}
