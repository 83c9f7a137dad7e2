// Package store persists games and players and runs compiled search plans
// against them.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/gaia-game-search/internal/domain"
	"github.com/park285/gaia-game-search/internal/query"
)

var (
	ErrDuplicateGame      = errors.New("game already exists")
	ErrGameNotFound       = errors.New("game not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Page is one window of search results, newest first.
type Page struct {
	Games []*domain.Game
	// Total counts every matching game, ignoring limit and offset.
	Total int
}

type Repository interface {
	// InsertGame writes the game and all its players or nothing. A game whose
	// table ID is already stored yields ErrDuplicateGame.
	InsertGame(ctx context.Context, game *domain.Game) error
	GetGame(ctx context.Context, tableID int64) (*domain.Game, error)
	GameExists(ctx context.Context, tableID int64) (bool, error)
	// EachTableID streams every stored table ID.
	EachTableID(ctx context.Context, fn func(tableID int64)) error
	Search(ctx context.Context, plan *query.Plan, limit, offset int) (*Page, error)
	// PlayerNames lists distinct player display names in ascending order.
	PlayerNames(ctx context.Context) ([]string, error)
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
