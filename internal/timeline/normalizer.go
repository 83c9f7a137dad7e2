// Package timeline turns platform game bundles into per-round building
// timelines and the scalar player facts stored alongside them.
package timeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/park285/gaia-game-search/internal/domain"
	"github.com/park285/gaia-game-search/internal/vocab"
	"github.com/park285/gaia-game-search/pkg/searchdto"
)

var ErrMalformedInput = errors.New("malformed game bundle")

// RoundSlack is how many rounds past the vocabulary maximum a timeline may
// extend before the bundle is rejected.
const RoundSlack = 4

type Normalizer struct {
	vocab *vocab.Vocabulary
}

func NewNormalizer(v *vocab.Vocabulary) *Normalizer {
	return &Normalizer{vocab: v}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

// Normalize validates b and builds a ParsedGame. It either returns a complete
// game or an error wrapping ErrMalformedInput.
func (n *Normalizer) Normalize(b *searchdto.Bundle) (*domain.ParsedGame, error) {
	if b == nil {
		return nil, malformed("nil bundle")
	}
	if b.TableID <= 0 {
		return nil, malformed("table id is required")
	}
	if len(b.Players) == 0 {
		return nil, malformed("table %d: player list is empty", b.TableID)
	}

	index := make(map[string]int, len(b.Players))
	players := make([]domain.Player, len(b.Players))
	for i, bp := range b.Players {
		id := strings.TrimSpace(bp.ExternalPlayerID.String())
		if id == "" {
			return nil, malformed("table %d: player %d has no id", b.TableID, i)
		}
		if _, dup := index[id]; dup {
			return nil, malformed("table %d: duplicate player id %s", b.TableID, id)
		}
		name := strings.TrimSpace(bp.DisplayName)
		if name == "" {
			return nil, malformed("table %d: player %s has no display name", b.TableID, id)
		}
		if !n.vocab.HasRace(bp.RaceID) {
			return nil, malformed("table %d: player %s has unknown race %d", b.TableID, id, bp.RaceID)
		}
		index[id] = i
		players[i] = domain.Player{
			ExternalID: id,
			Name:       name,
			RaceID:     bp.RaceID,
			FinalScore: bp.FinalScore,
		}
	}

	rounds := n.vocab.MaxRounds()
	ceiling := rounds + RoundSlack
	for _, f := range b.Timeline {
		if f.Round > ceiling {
			return nil, malformed("table %d: timeline fact in round %d, at most %d rounds allowed", b.TableID, f.Round, ceiling)
		}
		if f.Round > rounds {
			rounds = f.Round
		}
	}
	built := make([][][]int, len(players))
	for i := range built {
		built[i] = make([][]int, rounds)
	}
	for _, f := range b.Timeline {
		pi, ok := index[strings.TrimSpace(f.ExternalPlayerID.String())]
		if !ok {
			return nil, malformed("table %d: timeline fact for unknown player %s", b.TableID, f.ExternalPlayerID)
		}
		if f.Round < 1 {
			return nil, malformed("table %d: timeline fact with round %d", b.TableID, f.Round)
		}
		if !n.vocab.HasStructure(f.StructureID) {
			return nil, malformed("table %d: unknown structure id %d", b.TableID, f.StructureID)
		}
		built[pi][f.Round-1] = append(built[pi][f.Round-1], f.StructureID)
	}
	for i := range players {
		tl := make(domain.BuildingTimeline, rounds)
		for r, ids := range built[i] {
			tl[r] = domain.NewRoundSet(ids...)
		}
		players[i].Buildings = tl
	}

	for _, r := range b.Ratings {
		pi, ok := index[strings.TrimSpace(r.ExternalPlayerID.String())]
		if !ok {
			continue
		}
		if elo, ok := n.NormalizeRating(r.RawRating); ok {
			players[pi].Elo = domain.IntPtr(elo)
		}
	}

	pg := &domain.ParsedGame{
		TableID:      int64(b.TableID),
		Name:         strings.TrimSpace(b.GameName),
		WinnerName:   strings.TrimSpace(b.WinnerName),
		MinPlayerElo: MinRating(players),
		RawLog:       append(json.RawMessage(nil), b.RawLog...),
		Players:      players,
	}
	if err := markWinner(pg, strings.TrimSpace(b.WinnerPlayerID.String())); err != nil {
		return nil, err
	}
	return pg, nil
}

// NormalizeRating subtracts the platform offset from a raw rating and rounds
// half up. Absent or non-numeric input yields ok=false.
func (n *Normalizer) NormalizeRating(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		v = f
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(math.Floor(v - n.vocab.EloOffset() + 0.5)), true
}

// MinRating is the lowest present player rating, or nil when no player has one.
func MinRating(players []domain.Player) *int {
	var lowest *int
	for _, p := range players {
		if p.Elo == nil {
			continue
		}
		if lowest == nil || *p.Elo < *lowest {
			lowest = domain.IntPtr(*p.Elo)
		}
	}
	return lowest
}

// markWinner flags the winning player. An explicit player id wins over the
// display name; a display name shared by several players flags nobody and
// marks the game ambiguous.
func markWinner(pg *domain.ParsedGame, winnerID string) error {
	if winnerID != "" {
		for i := range pg.Players {
			if pg.Players[i].ExternalID == winnerID {
				pg.Players[i].IsWinner = true
				pg.WinnerName = pg.Players[i].Name
				return nil
			}
		}
		return malformed("table %d: winner %s is not a participant", pg.TableID, winnerID)
	}
	if pg.WinnerName == "" {
		return nil
	}
	match := -1
	for i, p := range pg.Players {
		if p.Name != pg.WinnerName {
			continue
		}
		if match >= 0 {
			pg.WinnerAmbiguous = true
			return nil
		}
		match = i
	}
	if match >= 0 {
		pg.Players[match].IsWinner = true
	}
	return nil
}
