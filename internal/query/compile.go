// Package query holds the search request model and compiles it into a single
// predicate tree that is both lowered to SQL and evaluated in memory.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/park285/gaia-game-search/internal/vocab"
)

var (
	ErrUnknownVocabulary = errors.New("unknown vocabulary")
	ErrEmptyClause       = errors.New("empty search clause")
	ErrInvalidRequest    = errors.New("invalid search request")
)

var validate = validator.New()

// Plan is a compiled SearchRequest.
type Plan struct {
	Root       Expr
	conditions []condition
	vocab      *vocab.Vocabulary
}

// condition is a resolved structure condition kept for match labels.
type condition struct {
	raceID      int
	structureID int
	maxRound    int
}

// MatchAll reports whether the plan accepts every game.
func (p *Plan) MatchAll() bool {
	_, ok := p.Root.(True)
	return ok
}

// Fold is the case folding applied to both stored names and search text.
func Fold(s string) string {
	return strings.ToLower(s)
}

// Compile resolves vocabulary names and builds the predicate tree for req.
// A request whose clauses are all empty compiles to True; an empty clause next
// to non-empty ones is rejected with ErrEmptyClause.
func Compile(req SearchRequest, v *vocab.Vocabulary) (*Plan, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	plan := &Plan{Root: True{}, vocab: v}
	if req.IsEmpty() {
		return plan, nil
	}
	terms := make([]Expr, 0, len(req.Clauses))
	for i, c := range req.Clauses {
		if c.IsEmpty() {
			return nil, fmt.Errorf("%w: clause %d sets no field", ErrEmptyClause, i+1)
		}
		e, err := plan.compileClause(c)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i+1, err)
		}
		terms = append(terms, e)
	}
	if len(terms) == 1 {
		plan.Root = terms[0]
	} else {
		plan.Root = Or{Terms: terms}
	}
	return plan, nil
}

func (p *Plan) compileClause(c SearchClause) (Expr, error) {
	var game, player []Expr

	if c.PlayerCount > 0 {
		game = append(game, PlayerCountEq{N: c.PlayerCount})
	}
	if c.MinPlayerElo != nil {
		game = append(game, MinEloAtLeast{N: *c.MinPlayerElo})
	}
	if text := strings.TrimSpace(c.WinnerName); text != "" {
		game = append(game, WinnerNameContains{Text: Fold(text)})
	}
	if name := strings.TrimSpace(c.WinnerRace.String()); name != "" {
		id, ok := p.vocab.RaceID(name)
		if !ok {
			return nil, fmt.Errorf("%w: race %q", ErrUnknownVocabulary, name)
		}
		game = append(game, AnyPlayer{Pred: And{Terms: []Expr{IsWinner{}, RaceIs{ID: id}}}})
	}

	if text := strings.TrimSpace(c.PlayerName); text != "" {
		player = append(player, NameContains{Text: Fold(text)})
	}
	if c.MinScore != nil {
		player = append(player, ScoreAtLeast{N: *c.MinScore})
	}
	if c.MinPlayerRating != nil {
		player = append(player, RatingAtLeast{N: *c.MinPlayerRating})
	}
	for _, sc := range c.Structures {
		if sc.IsEmpty() {
			continue
		}
		cond, err := p.resolve(sc)
		if err != nil {
			return nil, err
		}
		if cond.raceID > 0 {
			player = append(player, RaceIs{ID: cond.raceID})
		}
		if cond.structureID > 0 {
			player = append(player, Built{StructureID: cond.structureID, MaxRound: cond.maxRound})
			p.conditions = append(p.conditions, cond)
		}
	}

	if len(player) > 0 {
		game = append(game, AnyPlayer{Pred: conjoin(player)})
	}
	return conjoin(game), nil
}

func (p *Plan) resolve(sc StructureCondition) (condition, error) {
	cond := condition{maxRound: sc.MaxRound}
	if cond.maxRound == 0 {
		cond.maxRound = p.vocab.MaxRounds()
	}
	if name := strings.TrimSpace(sc.Race.String()); name != "" {
		id, ok := p.vocab.RaceID(name)
		if !ok {
			return cond, fmt.Errorf("%w: race %q", ErrUnknownVocabulary, name)
		}
		cond.raceID = id
	}
	if name := strings.TrimSpace(sc.Structure.String()); name != "" {
		id, ok := p.vocab.StructureID(name)
		if !ok {
			return cond, fmt.Errorf("%w: structure %q", ErrUnknownVocabulary, name)
		}
		cond.structureID = id
	}
	return cond, nil
}

func conjoin(terms []Expr) Expr {
	if len(terms) == 1 {
		return terms[0]
	}
	return And{Terms: terms}
}
