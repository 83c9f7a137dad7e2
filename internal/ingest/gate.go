// Package ingest stores normalized games exactly once per external table ID.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/gaia-game-search/internal/domain"
	"github.com/park285/gaia-game-search/internal/store"
)

var ErrDuplicate = errors.New("game already ingested")

// DuplicateError reports a table that is already stored, with the stored copy.
type DuplicateError struct {
	TableID  int64
	Existing *domain.Game
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("table %d: %s", e.TableID, ErrDuplicate)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

type Options struct {
	// BloomCapacity and BloomFPRate size the seen-table filter.
	BloomCapacity uint
	BloomFPRate   float64
	Now           func() time.Time
	NewID         func() string
}

// Gate checks for known tables before writing and turns uniqueness
// violations into DuplicateError. The bloom filter only decides whether the
// existence query is worth running; the storage constraint is the authority.
type Gate struct {
	repo   store.Repository
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu   sync.Mutex
	seen *bloom.BloomFilter
}

func NewGate(repo store.Repository, opts Options, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BloomCapacity == 0 {
		opts.BloomCapacity = 500000
	}
	if opts.BloomFPRate <= 0 || opts.BloomFPRate >= 1 {
		opts.BloomFPRate = 0.001
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Gate{
		repo:   repo,
		logger: logger,
		now:    opts.Now,
		newID:  opts.NewID,
		seen:   bloom.NewWithEstimates(opts.BloomCapacity, opts.BloomFPRate),
	}
}

func tableKey(id int64) string { return strconv.FormatInt(id, 10) }

// Warm loads every stored table ID into the filter.
func (g *Gate) Warm(ctx context.Context) error {
	n := 0
	err := g.repo.EachTableID(ctx, func(id int64) {
		g.mu.Lock()
		g.seen.AddString(tableKey(id))
		g.mu.Unlock()
		n++
	})
	if err != nil {
		return fmt.Errorf("warm ingest filter: %w", err)
	}
	g.logger.Info("ingest_filter_warmed", zap.Int("tables", n))
	return nil
}

func (g *Gate) maybeSeen(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen.TestString(tableKey(id))
}

func (g *Gate) markSeen(id int64) {
	g.mu.Lock()
	g.seen.AddString(tableKey(id))
	g.mu.Unlock()
}

// Ingest stores pg as a new game. A table that is already stored yields a
// *DuplicateError carrying the existing game; nothing is overwritten.
func (g *Gate) Ingest(ctx context.Context, pg *domain.ParsedGame) (*domain.Game, error) {
	if pg == nil {
		return nil, fmt.Errorf("nil parsed game")
	}
	if pg.WinnerAmbiguous {
		g.logger.Warn("winner_ambiguous",
			zap.Int64("table_id", pg.TableID),
			zap.String("winner_name", pg.WinnerName))
	}

	if g.maybeSeen(pg.TableID) {
		exists, err := g.repo.GameExists(ctx, pg.TableID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, g.duplicate(ctx, pg.TableID)
		}
	}

	game := pg.ToGame(g.newID(), g.now().UTC().Truncate(time.Microsecond))
	if err := g.repo.InsertGame(ctx, game); err != nil {
		if errors.Is(err, store.ErrDuplicateGame) {
			g.markSeen(pg.TableID)
			return nil, g.duplicate(ctx, pg.TableID)
		}
		return nil, err
	}
	g.markSeen(pg.TableID)
	g.logger.Info("game_ingested",
		zap.Int64("table_id", game.TableID),
		zap.String("game_id", game.ID),
		zap.Int("players", len(game.Players)))
	return game, nil
}

func (g *Gate) duplicate(ctx context.Context, tableID int64) error {
	existing, err := g.repo.GetGame(ctx, tableID)
	if err != nil {
		return fmt.Errorf("load existing table %d: %w", tableID, err)
	}
	g.logger.Debug("game_duplicate", zap.Int64("table_id", tableID), zap.String("game_id", existing.ID))
	return &DuplicateError{TableID: tableID, Existing: existing}
}
