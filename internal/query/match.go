package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/park285/gaia-game-search/internal/domain"
)

// Label explains one structure condition a player satisfied.
type Label struct {
	StructureID   int
	StructureName string
	// Round is the earliest 1-based round the structure was built in.
	Round int
}

func (l Label) Text() string {
	return fmt.Sprintf("R%d: %s", l.Round, l.StructureName)
}

// Result is the outcome of evaluating a plan against one game.
type Result struct {
	Matched bool
	// Labels is keyed by external player ID and only filled for matched games.
	Labels map[string][]Label
}

// Evaluate interprets the plan against g without touching storage. It agrees
// with the SQL lowering of the same plan on every game.
func Evaluate(p *Plan, g *domain.Game) Result {
	res := Result{Matched: evalGame(p.Root, g)}
	if !res.Matched || len(p.conditions) == 0 {
		return res
	}
	for _, pl := range g.Players {
		if labels := p.labelsFor(pl); len(labels) > 0 {
			if res.Labels == nil {
				res.Labels = make(map[string][]Label)
			}
			res.Labels[pl.ExternalID] = labels
		}
	}
	return res
}

func (p *Plan) labelsFor(pl domain.Player) []Label {
	earliest := make(map[int]int)
	for _, c := range p.conditions {
		if c.raceID > 0 && pl.RaceID != c.raceID {
			continue
		}
		round := pl.Buildings.FirstRound(c.structureID, c.maxRound)
		if round == 0 {
			continue
		}
		if prev, ok := earliest[c.structureID]; !ok || round < prev {
			earliest[c.structureID] = round
		}
	}
	if len(earliest) == 0 {
		return nil
	}
	out := make([]Label, 0, len(earliest))
	for id, round := range earliest {
		out = append(out, Label{StructureID: id, StructureName: p.vocab.StructureName(id), Round: round})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].StructureID < out[j].StructureID
	})
	return out
}

func evalGame(e Expr, g *domain.Game) bool {
	switch n := e.(type) {
	case True:
		return true
	case Or:
		for _, t := range n.Terms {
			if evalGame(t, g) {
				return true
			}
		}
		return false
	case And:
		for _, t := range n.Terms {
			if !evalGame(t, g) {
				return false
			}
		}
		return true
	case PlayerCountEq:
		return g.PlayerCount == n.N
	case MinEloAtLeast:
		return g.MinPlayerElo != nil && *g.MinPlayerElo >= n.N
	case WinnerNameContains:
		return strings.Contains(Fold(g.WinnerName), n.Text)
	case AnyPlayer:
		for i := range g.Players {
			if evalPlayer(n.Pred, &g.Players[i]) {
				return true
			}
		}
		return false
	default:
		panic(fmt.Sprintf("query: %T is not a game predicate", e))
	}
}

func evalPlayer(e Expr, p *domain.Player) bool {
	switch n := e.(type) {
	case True:
		return true
	case Or:
		for _, t := range n.Terms {
			if evalPlayer(t, p) {
				return true
			}
		}
		return false
	case And:
		for _, t := range n.Terms {
			if !evalPlayer(t, p) {
				return false
			}
		}
		return true
	case NameContains:
		return strings.Contains(Fold(p.Name), n.Text)
	case ScoreAtLeast:
		return p.FinalScore >= n.N
	case RatingAtLeast:
		return p.Elo != nil && *p.Elo >= n.N
	case IsWinner:
		return p.IsWinner
	case RaceIs:
		return p.RaceID == n.ID
	case Built:
		return p.Buildings.FirstRound(n.StructureID, n.MaxRound) > 0
	default:
		panic(fmt.Sprintf("query: %T is not a player predicate", e))
	}
}
