// Package search answers search, autocomplete and ingestion calls on top of
// the repository, the ingestion gate and the optional name cache.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/park285/gaia-game-search/internal/domain"
	"github.com/park285/gaia-game-search/internal/ingest"
	"github.com/park285/gaia-game-search/internal/query"
	"github.com/park285/gaia-game-search/internal/store"
	"github.com/park285/gaia-game-search/internal/timeline"
	"github.com/park285/gaia-game-search/internal/vocab"
	"github.com/park285/gaia-game-search/pkg/searchdto"
)

const defaultMaxResults = 100

// NameCache is satisfied by *cache.NameCache.
type NameCache interface {
	Names(ctx context.Context) ([]string, bool, error)
	Generation(ctx context.Context) (int64, error)
	SetNames(ctx context.Context, gen int64, names []string) (bool, error)
	Invalidate(ctx context.Context) error
}

type Config struct {
	// MaxResults caps the page size; it is also the default limit.
	MaxResults int
}

type Service struct {
	vocab      *vocab.Vocabulary
	repo       store.Repository
	normalizer *timeline.Normalizer
	gate       *ingest.Gate
	names      NameCache
	cfg        Config
	logger     *zap.Logger

	namesFlight singleflight.Group
}

// NewService wires the service. names may be nil, in which case every
// autocomplete call reads the repository.
func NewService(v *vocab.Vocabulary, repo store.Repository, gate *ingest.Gate, names NameCache, cfg Config, logger *zap.Logger) (*Service, error) {
	if v == nil || repo == nil || gate == nil {
		return nil, fmt.Errorf("search service requires vocabulary, repository and gate")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	return &Service{
		vocab:      v,
		repo:       repo,
		normalizer: timeline.NewNormalizer(v),
		gate:       gate,
		names:      names,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Search decodes the q parameter and runs it. Malformed q is searched as the
// empty request; a request over the clause limit is refused.
func (s *Service) Search(ctx context.Context, q string, limit, offset int) (*searchdto.SearchResponse, error) {
	req, err := query.Decode(q)
	if errors.Is(err, query.ErrInvalidRequest) {
		return nil, err
	}
	if err != nil {
		s.logger.Debug("search_query_malformed", zap.String("q", q), zap.Error(err))
	}
	return s.Run(ctx, req, limit, offset)
}

// Run compiles req, fetches one page of matching games and annotates each
// with matcher labels.
func (s *Service) Run(ctx context.Context, req query.SearchRequest, limit, offset int) (*searchdto.SearchResponse, error) {
	plan, err := query.Compile(req, s.vocab)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}
	if offset < 0 {
		offset = 0
	}

	page, err := s.repo.Search(ctx, plan, limit, offset)
	if err != nil {
		return nil, err
	}
	resp := &searchdto.SearchResponse{
		Games:  make([]searchdto.Game, 0, len(page.Games)),
		Total:  page.Total,
		Limit:  limit,
		Offset: offset,
	}
	for _, g := range page.Games {
		res := query.Evaluate(plan, g)
		if !res.Matched {
			s.logger.Error("matcher_disagrees_with_store", zap.Int64("table_id", g.TableID))
		}
		resp.Games = append(resp.Games, s.GameDTO(g, res.Labels))
	}
	return resp, nil
}

// Game returns one stored game by its external table ID.
func (s *Service) Game(ctx context.Context, tableID int64) (*searchdto.Game, error) {
	g, err := s.repo.GetGame(ctx, tableID)
	if err != nil {
		return nil, err
	}
	dto := s.GameDTO(g, nil)
	return &dto, nil
}

// Ingest normalizes b and stores it once. Known tables come back as
// *ingest.DuplicateError.
func (s *Service) Ingest(ctx context.Context, b *searchdto.Bundle) (*searchdto.Game, error) {
	pg, err := s.normalizer.Normalize(b)
	if err != nil {
		return nil, err
	}
	g, err := s.gate.Ingest(ctx, pg)
	if err != nil {
		return nil, err
	}
	if s.names != nil {
		if err := s.names.Invalidate(ctx); err != nil {
			s.logger.Warn("name_cache_invalidate_failed", zap.Error(err))
		}
	}
	dto := s.GameDTO(g, nil)
	return &dto, nil
}

// PlayerNames lists distinct player names in ascending order, optionally
// narrowed by a fuzzy filter. Backing-store failures yield an empty list.
func (s *Service) PlayerNames(ctx context.Context, filter string) []string {
	names, err := s.loadNames(ctx)
	if err != nil {
		s.logger.Warn("player_names_unavailable", zap.Error(err))
		return []string{}
	}
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return names
	}
	matches := fuzzy.FindFrom(filter, nameSource(names))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, names[m.Index])
	}
	sort.Strings(out)
	return out
}

func (s *Service) loadNames(ctx context.Context) ([]string, error) {
	v, err, _ := s.namesFlight.Do("names", func() (any, error) {
		fill := false
		var gen int64
		if s.names != nil {
			if cached, ok, err := s.names.Names(ctx); err != nil {
				s.logger.Warn("name_cache_read_failed", zap.Error(err))
			} else if ok {
				return cached, nil
			}
			// The generation must be read before the store so an ingest
			// committed in between voids this fill.
			var err error
			if gen, err = s.names.Generation(ctx); err != nil {
				s.logger.Warn("name_cache_read_failed", zap.Error(err))
			} else {
				fill = true
			}
		}
		names, err := s.repo.PlayerNames(ctx)
		if err != nil {
			return nil, err
		}
		if fill {
			stored, err := s.names.SetNames(ctx, gen, names)
			switch {
			case err != nil:
				s.logger.Warn("name_cache_write_failed", zap.Error(err))
			case !stored:
				s.logger.Debug("name_cache_fill_discarded", zap.Int64("generation", gen))
			}
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

type nameSource []string

func (n nameSource) String(i int) string { return n[i] }
func (n nameSource) Len() int            { return len(n) }

// GameDTO maps a stored game to its wire form. Race names come from the
// vocabulary; labels are keyed by external player ID.
func (s *Service) GameDTO(g *domain.Game, labels map[string][]query.Label) searchdto.Game {
	dto := searchdto.Game{
		ID:              g.ID,
		TableID:         g.TableID,
		Name:            g.Name,
		PlayerCount:     g.PlayerCount,
		WinnerName:      g.WinnerName,
		WinnerAmbiguous: g.WinnerAmbiguous,
		MinPlayerElo:    g.MinPlayerElo,
		CreatedAt:       g.CreatedAt,
		Players:         make([]searchdto.Player, 0, len(g.Players)),
	}
	for _, p := range g.Players {
		pd := searchdto.Player{
			ExternalID: p.ExternalID,
			Name:       p.Name,
			RaceID:     p.RaceID,
			RaceName:   s.vocab.RaceName(p.RaceID),
			FinalScore: p.FinalScore,
			Elo:        p.Elo,
			IsWinner:   p.IsWinner,
			Buildings:  make([][]int, len(p.Buildings)),
		}
		for i, round := range p.Buildings {
			pd.Buildings[i] = append([]int{}, round...)
		}
		for _, l := range labels[p.ExternalID] {
			pd.Labels = append(pd.Labels, searchdto.Label{
				StructureID:   l.StructureID,
				StructureName: l.StructureName,
				Round:         l.Round,
				Text:          l.Text(),
			})
		}
		dto.Players = append(dto.Players, pd)
	}
	return dto
}
