package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/park285/gaia-game-search/internal/domain"
	"github.com/park285/gaia-game-search/internal/query"
)

// memrepo is a development-only in-memory repository used when no database is configured.
// Search runs the matcher over every stored game.
type memrepo struct {
	mu sync.RWMutex

	byTable map[int64]*domain.Game
}

func NewMemoryRepository() Repository {
	return &memrepo{byTable: make(map[int64]*domain.Game)}
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.Game) error {
	if game == nil {
		return fmt.Errorf("nil game payload")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byTable[game.TableID]; exists {
		return ErrDuplicateGame
	}
	stored := game.Clone()
	stored.PlayerCount = len(stored.Players)
	m.byTable[game.TableID] = stored
	return nil
}

func (m *memrepo) GetGame(ctx context.Context, tableID int64) (*domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.byTable[tableID]
	if !ok {
		return nil, fmt.Errorf("table %d: %w", tableID, ErrGameNotFound)
	}
	return g.Clone(), nil
}

func (m *memrepo) GameExists(ctx context.Context, tableID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byTable[tableID]
	return ok, nil
}

func (m *memrepo) EachTableID(ctx context.Context, fn func(int64)) error {
	m.mu.RLock()
	ids := make([]int64, 0, len(m.byTable))
	for id := range m.byTable {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		fn(id)
	}
	return nil
}

func (m *memrepo) Search(ctx context.Context, plan *query.Plan, limit, offset int) (*Page, error) {
	m.mu.RLock()
	matched := make([]*domain.Game, 0, len(m.byTable))
	for _, g := range m.byTable {
		if query.Evaluate(plan, g).Matched {
			matched = append(matched, g.Clone())
		}
	}
	m.mu.RUnlock()

	// Same order as the SQL repositories: newest first, then table ID.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].TableID > matched[j].TableID
	})
	page := &Page{Total: len(matched)}
	if offset < len(matched) {
		matched = matched[offset:]
		if limit > 0 && len(matched) > limit {
			matched = matched[:limit]
		}
		page.Games = matched
	}
	return page, nil
}

func (m *memrepo) PlayerNames(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	seen := make(map[string]struct{})
	for _, g := range m.byTable {
		for _, p := range g.Players {
			seen[p.Name] = struct{}{}
		}
	}
	m.mu.RUnlock()
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memrepo) Close() error { return nil }
