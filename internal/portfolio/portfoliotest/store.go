// Package portfoliotest provides in-memory fakes for portfolio tests.
package portfoliotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// Store is an in-memory position and tag store.
type Store struct {
	mu        sync.Mutex
	positions map[string]*models.Position
	order     []string
	tags      map[string]*models.Tag
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		positions: map[string]*models.Position{},
		tags:      map[string]*models.Tag{},
	}
}

func copyPosition(p *models.Position) *models.Position {
	c := *p
	c.Tags = append([]string{}, p.Tags...)
	if p.ClosingPrice != nil {
		v := *p.ClosingPrice
		c.ClosingPrice = &v
	}
	return &c
}

func (s *Store) CreatePosition(_ context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p.ID = uuid.New().String()
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	s.positions[p.ID] = copyPosition(p)
	s.order = append(s.order, p.ID)
	return nil
}

func (s *Store) GetPositionByID(_ context.Context, id string) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok {
		return nil, fmt.Errorf("position %w: %s", models.ErrNotFound, id)
	}
	return copyPosition(p), nil
}

func (s *Store) list(keep func(*models.Position) bool) []*models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.Position{}
	for _, id := range s.order {
		p, ok := s.positions[id]
		if ok && keep(p) {
			out = append(out, copyPosition(p))
		}
	}
	return out
}

func (s *Store) GetAllPositions(_ context.Context) ([]*models.Position, error) {
	return s.list(func(*models.Position) bool { return true }), nil
}

func (s *Store) GetOpenPositions(_ context.Context) ([]*models.Position, error) {
	return s.list(func(p *models.Position) bool { return !p.IsClosed }), nil
}

func (s *Store) GetOpenPositionsBySymbol(_ context.Context, symbol string) ([]*models.Position, error) {
	return s.list(func(p *models.Position) bool { return !p.IsClosed && p.Symbol == symbol }), nil
}

func (s *Store) UpdatePosition(_ context.Context, id string, patch models.PositionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok {
		return fmt.Errorf("position %w: %s", models.ErrNotFound, id)
	}
	if patch.Symbol != nil {
		p.Symbol = *patch.Symbol
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.CostPrice != nil {
		p.CostPrice = *patch.CostPrice
	}
	if patch.Tags != nil {
		p.Tags = append([]string{}, (*patch.Tags)...)
	}
	if patch.IsClosed != nil {
		p.IsClosed = *patch.IsClosed
	}
	if patch.ClosingPrice != nil {
		v := *patch.ClosingPrice
		p.ClosingPrice = &v
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeletePosition(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[id]; !ok {
		return fmt.Errorf("position %w: %s", models.ErrNotFound, id)
	}
	delete(s.positions, id)
	return nil
}

func (s *Store) RemoveTagFromPositions(_ context.Context, tagID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, p := range s.positions {
		kept := make([]string, 0, len(p.Tags))
		for _, id := range p.Tags {
			if id != tagID {
				kept = append(kept, id)
			}
		}
		if len(kept) != len(p.Tags) {
			p.Tags = kept
			changed++
		}
	}
	return changed, nil
}

func (s *Store) CreateTag(_ context.Context, t *models.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tags {
		if existing.Name == t.Name {
			return fmt.Errorf("tag %w: %s", models.ErrAlreadyExists, t.Name)
		}
	}

	now := time.Now().UTC()
	t.ID = uuid.New().String()
	t.CreatedAt = now
	t.UpdatedAt = now
	c := *t
	s.tags[t.ID] = &c
	return nil
}

func (s *Store) GetTagByID(_ context.Context, id string) (*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tags[id]
	if !ok {
		return nil, fmt.Errorf("tag %w: %s", models.ErrNotFound, id)
	}
	c := *t
	return &c, nil
}

func (s *Store) GetTagByName(_ context.Context, name string) (*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tags {
		if t.Name == name {
			c := *t
			return &c, nil
		}
	}
	return nil, fmt.Errorf("tag %w: %s", models.ErrNotFound, name)
}

func (s *Store) GetTagsByIDs(_ context.Context, ids []string) ([]*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.Tag{}
	for _, id := range ids {
		if t, ok := s.tags[id]; ok {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) GetAllTags(_ context.Context) ([]*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) RenameTag(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tags[id]
	if !ok {
		return fmt.Errorf("tag %w: %s", models.ErrNotFound, id)
	}
	for otherID, other := range s.tags {
		if otherID != id && other.Name == name {
			return fmt.Errorf("tag %w: %s", models.ErrAlreadyExists, name)
		}
	}
	t.Name = name
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteTag(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[id]; !ok {
		return fmt.Errorf("tag %w: %s", models.ErrNotFound, id)
	}
	delete(s.tags, id)
	return nil
}

// TagCount returns the number of stored tags.
func (s *Store) TagCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tags)
}
