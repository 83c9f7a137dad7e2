package domain

import (
	"encoding/json"
	"sort"
)

// RoundSet is the set of structure IDs built in one round, kept sorted and unique.
type RoundSet []int

// NewRoundSet builds a RoundSet from ids in any order, dropping repeats.
func NewRoundSet(ids ...int) RoundSet {
	out := make(RoundSet, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (r RoundSet) Contains(id int) bool {
	i := sort.SearchInts(r, id)
	return i < len(r) && r[i] == id
}

func (r RoundSet) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(r))
}

// BuildingTimeline holds one RoundSet per round; index 0 is round 1.
type BuildingTimeline []RoundSet

func (t BuildingTimeline) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]RoundSet(t))
}

func (t *BuildingTimeline) UnmarshalJSON(b []byte) error {
	var raw [][]int
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(BuildingTimeline, len(raw))
	for i, ids := range raw {
		out[i] = NewRoundSet(ids...)
	}
	*t = out
	return nil
}

// Round returns the set for a 1-based round number; out of range yields nil.
func (t BuildingTimeline) Round(round int) RoundSet {
	if round < 1 || round > len(t) {
		return nil
	}
	return t[round-1]
}

// FirstRound reports the earliest 1-based round within the first maxRound rounds
// whose set contains structureID, or 0 when there is none.
func (t BuildingTimeline) FirstRound(structureID, maxRound int) int {
	for i := 0; i < len(t) && i < maxRound; i++ {
		if t[i].Contains(structureID) {
			return i + 1
		}
	}
	return 0
}

// Count is the total number of structures across all rounds.
func (t BuildingTimeline) Count() int {
	n := 0
	for _, r := range t {
		n += len(r)
	}
	return n
}

func (t BuildingTimeline) Clone() BuildingTimeline {
	if t == nil {
		return nil
	}
	out := make(BuildingTimeline, len(t))
	for i, r := range t {
		out[i] = append(RoundSet{}, r...)
	}
	return out
}
