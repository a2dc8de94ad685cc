package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// CreateTag inserts a new tag. A name that already exists yields
// ErrAlreadyExists and leaves the stored tag untouched.
func (db *DB) CreateTag(ctx context.Context, t *models.Tag) error {
	query := `
		INSERT INTO tags (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING
	`
	now := time.Now().UTC()
	id := uuid.New().String()

	result, err := db.conn.ExecContext(ctx, query, id, t.Name, now, now)
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("tag %w: %s", models.ErrAlreadyExists, t.Name)
	}

	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetTagByID retrieves a tag by ID
func (db *DB) GetTagByID(ctx context.Context, id string) (*models.Tag, error) {
	if !validID(id) {
		return nil, fmt.Errorf("tag %w: %s", models.ErrNotFound, id)
	}

	query := `SELECT id, name, created_at, updated_at FROM tags WHERE id = $1`
	var t models.Tag
	err := db.conn.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tag %w: %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &t, nil
}

// GetTagByName retrieves a tag by exact name
func (db *DB) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	query := `SELECT id, name, created_at, updated_at FROM tags WHERE name = $1`
	var t models.Tag
	err := db.conn.QueryRowContext(ctx, query, name).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tag %w: %s", models.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &t, nil
}

// GetTagsByIDs retrieves the tags whose IDs are in ids. Unknown or
// malformed IDs are skipped; the result is in no particular order.
func (db *DB) GetTagsByIDs(ctx context.Context, ids []string) ([]*models.Tag, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*models.Tag{}, nil
	}

	query := `
		SELECT id, name, created_at, updated_at
		FROM tags
		WHERE id = ANY($1::uuid[])
	`
	return db.scanTags(db.conn.QueryContext(ctx, query, pq.Array(valid)))
}

// GetAllTags retrieves every tag ordered by name
func (db *DB) GetAllTags(ctx context.Context) ([]*models.Tag, error) {
	query := `SELECT id, name, created_at, updated_at FROM tags ORDER BY name ASC`
	return db.scanTags(db.conn.QueryContext(ctx, query))
}

// RenameTag changes the name of an existing tag
func (db *DB) RenameTag(ctx context.Context, id, name string) error {
	if !validID(id) {
		return fmt.Errorf("tag %w: %s", models.ErrNotFound, id)
	}

	query := `UPDATE tags SET name = $2, updated_at = $3 WHERE id = $1`
	result, err := db.conn.ExecContext(ctx, query, id, name, time.Now().UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("tag %w: %s", models.ErrAlreadyExists, name)
	}
	if err != nil {
		return fmt.Errorf("failed to rename tag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("tag %w: %s", models.ErrNotFound, id)
	}
	return nil
}

// DeleteTag removes a tag by ID. References held by positions are not
// touched; see RemoveTagFromPositions.
func (db *DB) DeleteTag(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("tag %w: %s", models.ErrNotFound, id)
	}

	query := `DELETE FROM tags WHERE id = $1`
	result, err := db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("tag %w: %s", models.ErrNotFound, id)
	}
	return nil
}

func (db *DB) scanTags(rows *sql.Rows, err error) ([]*models.Tag, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []*models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return tags, nil
}
