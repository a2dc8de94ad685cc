package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/trogers1052/portfolio-service/internal/models"
)

// TagResolver maps between tag IDs and tag names.
type TagResolver struct {
	store TagStore
}

// NewTagResolver creates a TagResolver backed by store
func NewTagResolver(store TagStore) *TagResolver {
	return &TagResolver{store: store}
}

// NameMap returns id -> name for the ids that exist.
func (r *TagResolver) NameMap(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	tags, err := r.store.GetTagsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tag names: %w", err)
	}
	for _, t := range tags {
		names[t.ID] = t.Name
	}
	return names, nil
}

// Names returns the names of ids in input order. Unknown ids are dropped.
func (r *TagResolver) Names(ctx context.Context, ids []string) ([]string, error) {
	byID, err := r.NameMap(ctx, ids)
	if err != nil {
		return nil, err
	}
	return namesFor(ids, byID), nil
}

// Upsert returns the ids for names in input order, creating tags that do
// not exist yet. A concurrent insert of the same name is resolved by
// re-reading the winner.
func (r *TagResolver) Upsert(ctx context.Context, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := r.upsertOne(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *TagResolver) upsertOne(ctx context.Context, name string) (string, error) {
	existing, err := r.store.GetTagByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return "", fmt.Errorf("failed to look up tag %q: %w", name, err)
	}

	tag := &models.Tag{Name: name}
	err = r.store.CreateTag(ctx, tag)
	if err == nil {
		return tag.ID, nil
	}
	if !errors.Is(err, models.ErrAlreadyExists) {
		return "", fmt.Errorf("failed to create tag %q: %w", name, err)
	}

	existing, err = r.store.GetTagByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to re-read tag %q: %w", name, err)
	}
	return existing.ID, nil
}

func namesFor(ids []string, byID map[string]string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}
