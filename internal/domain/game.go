package domain

import (
	"encoding/json"
	"time"
)

// Game is one finished match as stored.
type Game struct {
	ID          string
	TableID     int64
	Name        string
	PlayerCount int
	WinnerName  string
	// WinnerAmbiguous is set when the winner name matched several players
	// and none was flagged.
	WinnerAmbiguous bool
	MinPlayerElo    *int
	RawLog          json.RawMessage
	CreatedAt       time.Time
	Players         []Player
}

// Player is one participant of a Game. The race display name is derived from
// RaceID through the vocabulary at read time.
type Player struct {
	ExternalID string
	Name       string
	RaceID     int
	FinalScore int
	Elo        *int
	IsWinner   bool
	Buildings  BuildingTimeline
}

// ParsedGame is the normalizer output handed to the ingestion gate.
type ParsedGame struct {
	TableID         int64
	Name            string
	WinnerName      string
	WinnerAmbiguous bool
	MinPlayerElo    *int
	RawLog          json.RawMessage
	Players         []Player
}

// ToGame stamps a parsed game with its storage identity.
func (p *ParsedGame) ToGame(id string, createdAt time.Time) *Game {
	players := make([]Player, len(p.Players))
	for i, pl := range p.Players {
		players[i] = pl.Clone()
	}
	return &Game{
		ID:              id,
		TableID:         p.TableID,
		Name:            p.Name,
		PlayerCount:     len(p.Players),
		WinnerName:      p.WinnerName,
		WinnerAmbiguous: p.WinnerAmbiguous,
		MinPlayerElo:    cloneInt(p.MinPlayerElo),
		RawLog:          append(json.RawMessage(nil), p.RawLog...),
		CreatedAt:       createdAt,
		Players:         players,
	}
}

// Clone returns a deep copy.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g
	out.MinPlayerElo = cloneInt(g.MinPlayerElo)
	out.RawLog = append(json.RawMessage(nil), g.RawLog...)
	out.Players = make([]Player, len(g.Players))
	for i, p := range g.Players {
		out.Players[i] = p.Clone()
	}
	return &out
}

// Clone returns a deep copy.
func (p Player) Clone() Player {
	out := p
	out.Elo = cloneInt(p.Elo)
	out.Buildings = p.Buildings.Clone()
	return out
}

// Winner returns the flagged winner, if any.
func (g *Game) Winner() (Player, bool) {
	for _, p := range g.Players {
		if p.IsWinner {
			return p, true
		}
	}
	return Player{}, false
}

func IntPtr(v int) *int { return &v }

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
