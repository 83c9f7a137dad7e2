package query

import (
	"testing"

	"github.com/park285/gaia-game-search/internal/domain"
	"github.com/park285/gaia-game-search/internal/vocab"
	"github.com/park285/gaia-game-search/pkg/searchdto"
)

func player(id, name string, race int, rounds ...domain.RoundSet) domain.Player {
	tl := make(domain.BuildingTimeline, 6)
	for i := range tl {
		tl[i] = domain.RoundSet{}
	}
	copy(tl, rounds)
	return domain.Player{ExternalID: id, Name: name, RaceID: race, Buildings: tl}
}

func game(tableID int64, players ...domain.Player) *domain.Game {
	return &domain.Game{TableID: tableID, PlayerCount: len(players), Players: players}
}

func mustCompile(t *testing.T, req SearchRequest) *Plan {
	t.Helper()
	p, err := Compile(req, vocab.Default())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return p
}

func structureReq(structure string, maxRound int) SearchRequest {
	return SearchRequest{Clauses: []SearchClause{{
		Structures: []StructureCondition{{Structure: searchdto.FlexString(structure), MaxRound: maxRound}},
	}}}
}

func TestRoundBound(t *testing.T) {
	plan := mustCompile(t, structureReq("mine", 1))

	early := game(1, player("1", "a", 1, domain.RoundSet{4}))
	if !Evaluate(plan, early).Matched {
		t.Fatalf("mine in round 1 should match maxRound 1")
	}
	late := game(2, player("1", "a", 1, domain.RoundSet{}, domain.RoundSet{4}))
	if Evaluate(plan, late).Matched {
		t.Fatalf("mine only in round 2 should not match maxRound 1")
	}
	if !Evaluate(mustCompile(t, structureReq("mine", 0)), late).Matched {
		t.Fatalf("omitted maxRound should cover the whole game")
	}
}

func TestEarliestLabel(t *testing.T) {
	plan := mustCompile(t, structureReq("Mine", 0))
	g := game(1, player("p1", "a", 1, domain.RoundSet{4}, domain.RoundSet{}, domain.RoundSet{4, 6}))
	res := Evaluate(plan, g)
	if !res.Matched {
		t.Fatalf("expected match")
	}
	labels := res.Labels["p1"]
	if len(labels) != 1 || labels[0].Round != 1 || labels[0].StructureID != 4 {
		t.Fatalf("labels: %+v", labels)
	}
	if got := labels[0].Text(); got != "R1: Mine" {
		t.Fatalf("label text: %q", got)
	}
}

func TestLabelsRespectRace(t *testing.T) {
	req := SearchRequest{Clauses: []SearchClause{{
		Structures: []StructureCondition{{Race: "Gleens", Structure: "pi"}},
	}}}
	plan := mustCompile(t, req)
	g := game(1,
		player("g", "gleen", 4, domain.RoundSet{}, domain.RoundSet{7}),
		player("t", "terran", 1, domain.RoundSet{7}),
	)
	res := Evaluate(plan, g)
	if !res.Matched {
		t.Fatalf("expected match")
	}
	if _, ok := res.Labels["t"]; ok {
		t.Fatalf("player of another race labelled: %+v", res.Labels)
	}
	if l := res.Labels["g"]; len(l) != 1 || l[0].Round != 2 {
		t.Fatalf("gleens label: %+v", l)
	}
}

func TestRaceOnlyConditionHasNoLabel(t *testing.T) {
	req := SearchRequest{Clauses: []SearchClause{{Structures: []StructureCondition{{Race: "10"}}}}}
	plan := mustCompile(t, req)
	res := Evaluate(plan, game(1, player("b", "x", 10, domain.RoundSet{4})))
	if !res.Matched {
		t.Fatalf("race-only condition should match Bal T'aks")
	}
	if len(res.Labels) != 0 {
		t.Fatalf("unexpected labels: %+v", res.Labels)
	}
	if Evaluate(plan, game(2, player("t", "x", 1))).Matched {
		t.Fatalf("race-only condition matched another race")
	}
}

func TestOrUnion(t *testing.T) {
	req := SearchRequest{Clauses: []SearchClause{{PlayerName: "alabesons"}, {PlayerName: "FelipeToito"}}}
	plan := mustCompile(t, req)
	games := []*domain.Game{
		game(1, player("1", "AlabeSons", 1), player("2", "zed", 2)),
		game(2, player("1", "felipetoito", 1)),
		game(3, player("1", "AlabeSons", 1), player("2", "felipetoito", 2)),
		game(4, player("1", "nobody", 1)),
	}
	var matched []int64
	for _, g := range games {
		if Evaluate(plan, g).Matched {
			matched = append(matched, g.TableID)
		}
	}
	if len(matched) != 3 || matched[0] != 1 || matched[1] != 2 || matched[2] != 3 {
		t.Fatalf("matched: %v", matched)
	}
}

func TestMinPlayerElo(t *testing.T) {
	g := game(1, player("1", "a", 1))
	g.MinPlayerElo = domain.IntPtr(1750)
	elo := func(n int) SearchRequest {
		return SearchRequest{Clauses: []SearchClause{{MinPlayerElo: domain.IntPtr(n)}}}
	}
	if Evaluate(mustCompile(t, elo(1800)), g).Matched {
		t.Fatalf("1750 should not pass a 1800 floor")
	}
	if !Evaluate(mustCompile(t, elo(1700)), g).Matched {
		t.Fatalf("1750 should pass a 1700 floor")
	}
	g.MinPlayerElo = nil
	if Evaluate(mustCompile(t, elo(0)), g).Matched {
		t.Fatalf("game without ratings should never pass a rating floor")
	}
}

func TestClauseFieldsBindToOnePlayer(t *testing.T) {
	req := SearchRequest{Clauses: []SearchClause{{
		PlayerName: "alice",
		MinScore:   domain.IntPtr(150),
		Structures: []StructureCondition{{Race: "terrans", Structure: "academy-qic", MaxRound: 3}},
	}}}
	plan := mustCompile(t, req)

	alice := player("a", "Alice", 1, domain.RoundSet{}, domain.RoundSet{}, domain.RoundSet{9})
	alice.FinalScore = 151
	if !Evaluate(plan, game(1, alice)).Matched {
		t.Fatalf("alice satisfies every field")
	}

	split := player("a", "Alice", 1)
	split.FinalScore = 151
	other := player("b", "Bob", 1, domain.RoundSet{9})
	if Evaluate(plan, game(2, split, other)).Matched {
		t.Fatalf("fields satisfied by different players must not match")
	}
}

func TestWinnerFields(t *testing.T) {
	winner := player("w", "felipetoito", 4)
	winner.IsWinner = true
	g := game(1, winner, player("l", "AlabeSons", 10))
	g.WinnerName = "felipetoito"

	hit := SearchRequest{Clauses: []SearchClause{{WinnerRace: "gleens", WinnerName: "TOITO"}}}
	if !Evaluate(mustCompile(t, hit), g).Matched {
		t.Fatalf("winner race and name should match")
	}
	miss := SearchRequest{Clauses: []SearchClause{{WinnerRace: "baltaks"}}}
	if Evaluate(mustCompile(t, miss), g).Matched {
		t.Fatalf("losing Bal T'aks player must not count as winner race")
	}
}

func TestUnmatchedGameHasNoLabels(t *testing.T) {
	req := SearchRequest{Clauses: []SearchClause{{
		PlayerCount: 3,
		Structures:  []StructureCondition{{Structure: "mine"}},
	}}}
	res := Evaluate(mustCompile(t, req), game(1, player("1", "a", 1, domain.RoundSet{4})))
	if res.Matched || res.Labels != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}
