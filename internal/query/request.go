package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/park285/gaia-game-search/pkg/searchdto"
)

// MaxClauses bounds how many clauses one request may carry, including the
// clauses a list-shaped request expands into.
const MaxClauses = 256

// SearchRequest is an OR of clauses. A request without clauses matches every game.
type SearchRequest struct {
	Clauses []SearchClause `json:"clauses" validate:"max=256,dive"`
}

// SearchClause is an AND of every field that is set. All player-level fields
// (name, score, rating and structure conditions) must hold for one player.
type SearchClause struct {
	PlayerName      string               `json:"playerName,omitempty"`
	PlayerCount     int                  `json:"playerCount,omitempty" validate:"gte=0,max=2147483647"`
	Structures      []StructureCondition `json:"structures,omitempty" validate:"max=64,dive"`
	WinnerRace      searchdto.FlexString `json:"winnerRace,omitempty"`
	WinnerName      string               `json:"winnerName,omitempty"`
	MinPlayerElo    *int                 `json:"minPlayerElo,omitempty" validate:"omitempty,min=-2147483648,max=2147483647"`
	MinScore        *int                 `json:"minScore,omitempty" validate:"omitempty,min=-2147483648,max=2147483647"`
	MinPlayerRating *int                 `json:"minPlayerRating,omitempty" validate:"omitempty,min=-2147483648,max=2147483647"`
}

// StructureCondition asks for a player that built Structure within the first
// MaxRound rounds, optionally playing Race. Race and Structure accept display
// names, aliases or numeric IDs. MaxRound 0 means the whole game.
type StructureCondition struct {
	Race      searchdto.FlexString `json:"race,omitempty"`
	Structure searchdto.FlexString `json:"structure,omitempty"`
	MaxRound  int                  `json:"maxRound,omitempty" validate:"gte=0,max=2147483647"`
}

// UnmarshalJSON also takes raceId for race and structureId or buildingId for
// structure.
func (c *StructureCondition) UnmarshalJSON(b []byte) error {
	var aux struct {
		Race        searchdto.FlexString `json:"race"`
		RaceID      searchdto.FlexString `json:"raceId"`
		Structure   searchdto.FlexString `json:"structure"`
		StructureID searchdto.FlexString `json:"structureId"`
		BuildingID  searchdto.FlexString `json:"buildingId"`
		MaxRound    int                  `json:"maxRound"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*c = StructureCondition{
		Race:      firstSet(aux.Race, aux.RaceID),
		Structure: firstSet(aux.Structure, aux.StructureID, aux.BuildingID),
		MaxRound:  aux.MaxRound,
	}
	return nil
}

func firstSet(vals ...searchdto.FlexString) searchdto.FlexString {
	for _, v := range vals {
		if strings.TrimSpace(v.String()) != "" {
			return v
		}
	}
	return ""
}

func (c StructureCondition) IsEmpty() bool {
	return strings.TrimSpace(c.Race.String()) == "" && strings.TrimSpace(c.Structure.String()) == ""
}

// IsEmpty reports whether the clause sets no filter at all.
func (c SearchClause) IsEmpty() bool {
	if strings.TrimSpace(c.PlayerName) != "" || c.PlayerCount != 0 {
		return false
	}
	if strings.TrimSpace(c.WinnerRace.String()) != "" || strings.TrimSpace(c.WinnerName) != "" {
		return false
	}
	if c.MinPlayerElo != nil || c.MinScore != nil || c.MinPlayerRating != nil {
		return false
	}
	for _, s := range c.Structures {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the request matches everything.
func (r SearchRequest) IsEmpty() bool {
	for _, c := range r.Clauses {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// UnmarshalJSON reads three shapes. An object with "clauses" is taken as is.
// An object with any of playerNames, playerCounts or structureConditions is a
// list request: each list holds alternatives and the lists combine by AND, so
// it expands into one clause per combination. Anything else is a flat single
// clause, which also takes race, structure and maxRound as one structure
// condition and winnerPlayerName for winnerName.
func (r *SearchRequest) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	r.Clauses = nil
	if fields == nil {
		return nil
	}
	if raw, ok := fields["clauses"]; ok {
		var clauses []SearchClause
		if err := json.Unmarshal(raw, &clauses); err != nil {
			return err
		}
		r.Clauses = clauses
		return nil
	}
	for _, key := range []string{"playerNames", "playerCounts", "structureConditions"} {
		if _, ok := fields[key]; ok {
			clauses, err := expandLists(b)
			if err != nil {
				return err
			}
			r.Clauses = clauses
			return nil
		}
	}
	c, err := flatClause(b)
	if err != nil {
		return err
	}
	if !c.IsEmpty() {
		r.Clauses = []SearchClause{c}
	}
	return nil
}

func flatClause(b []byte) (SearchClause, error) {
	var c SearchClause
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	var sc StructureCondition
	if err := json.Unmarshal(b, &sc); err != nil {
		return c, err
	}
	var winner struct {
		WinnerPlayerName string `json:"winnerPlayerName"`
	}
	if err := json.Unmarshal(b, &winner); err != nil {
		return c, err
	}
	if !sc.IsEmpty() {
		c.Structures = append(c.Structures, sc)
	}
	if strings.TrimSpace(c.WinnerName) == "" {
		c.WinnerName = winner.WinnerPlayerName
	}
	return c, nil
}

func expandLists(b []byte) ([]SearchClause, error) {
	var lists struct {
		PlayerNames         []string             `json:"playerNames"`
		PlayerCounts        []int                `json:"playerCounts"`
		StructureConditions []StructureCondition `json:"structureConditions"`
	}
	if err := json.Unmarshal(b, &lists); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(lists.PlayerNames))
	for _, n := range lists.PlayerNames {
		if strings.TrimSpace(n) != "" {
			names = append(names, n)
		}
	}
	counts := make([]int, 0, len(lists.PlayerCounts))
	for _, n := range lists.PlayerCounts {
		if n != 0 {
			counts = append(counts, n)
		}
	}
	conds := make([]StructureCondition, 0, len(lists.StructureConditions))
	for _, sc := range lists.StructureConditions {
		if !sc.IsEmpty() {
			conds = append(conds, sc)
		}
	}

	total := max(len(names), 1) * max(len(counts), 1) * max(len(conds), 1)
	if total > MaxClauses {
		return nil, fmt.Errorf("%w: list request expands to %d clauses, limit %d", ErrInvalidRequest, total, MaxClauses)
	}
	if len(names)+len(counts)+len(conds) == 0 {
		return nil, nil
	}

	clauses := []SearchClause{{}}
	if len(names) > 0 {
		next := make([]SearchClause, 0, len(clauses)*len(names))
		for _, c := range clauses {
			for _, n := range names {
				c.PlayerName = n
				next = append(next, c)
			}
		}
		clauses = next
	}
	if len(counts) > 0 {
		next := make([]SearchClause, 0, len(clauses)*len(counts))
		for _, c := range clauses {
			for _, n := range counts {
				c.PlayerCount = n
				next = append(next, c)
			}
		}
		clauses = next
	}
	if len(conds) > 0 {
		next := make([]SearchClause, 0, len(clauses)*len(conds))
		for _, c := range clauses {
			for _, sc := range conds {
				c.Structures = []StructureCondition{sc}
				next = append(next, c)
			}
		}
		clauses = next
	}
	return clauses, nil
}
