package domain

import (
	"encoding/json"
	"math/rand/v2"
	"reflect"
	"testing"
)

func TestRoundSetIsSortedAndUnique(t *testing.T) {
	r := NewRoundSet(6, 4, 4, 5)
	if !reflect.DeepEqual(r, RoundSet{4, 5, 6}) {
		t.Fatalf("unexpected set: %v", r)
	}
	if !r.Contains(5) || r.Contains(7) {
		t.Fatalf("Contains mismatch on %v", r)
	}
}

func TestFirstRoundHonoursBound(t *testing.T) {
	tl := BuildingTimeline{NewRoundSet(5), NewRoundSet(4), NewRoundSet(), NewRoundSet(4, 6)}
	if got := tl.FirstRound(4, 1); got != 0 {
		t.Fatalf("mine by round 1: got %d", got)
	}
	if got := tl.FirstRound(4, 2); got != 2 {
		t.Fatalf("mine by round 2: got %d", got)
	}
	if got := tl.FirstRound(6, 6); got != 4 {
		t.Fatalf("lab anywhere: got %d", got)
	}
	if got := tl.FirstRound(6, 0); got != 0 {
		t.Fatalf("zero bound should never match, got %d", got)
	}
}

func TestTimelineJSONEmptyRounds(t *testing.T) {
	tl := BuildingTimeline{nil, NewRoundSet(4), nil}
	raw, err := json.Marshal(tl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "[[],[4],[]]" {
		t.Fatalf("unexpected encoding: %s", raw)
	}
	var nilTL BuildingTimeline
	raw, _ = json.Marshal(nilTL)
	if string(raw) != "[]" {
		t.Fatalf("nil timeline encoding: %s", raw)
	}
}

func TestTimelineJSONRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 200; i++ {
		rounds := 1 + rng.IntN(8)
		tl := make(BuildingTimeline, rounds)
		for r := range tl {
			ids := make([]int, rng.IntN(4))
			for j := range ids {
				ids[j] = 4 + rng.IntN(6)
			}
			tl[r] = NewRoundSet(ids...)
		}
		raw, err := json.Marshal(tl)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back BuildingTimeline
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !reflect.DeepEqual(tl, back) {
			t.Fatalf("round trip mismatch:\n got %v\nwant %v", back, tl)
		}
	}
}
