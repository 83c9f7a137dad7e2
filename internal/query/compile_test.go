package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/park285/gaia-game-search/internal/domain"
	"github.com/park285/gaia-game-search/internal/vocab"
)

func TestCompileUnknownVocabulary(t *testing.T) {
	cases := []SearchRequest{
		{Clauses: []SearchClause{{Structures: []StructureCondition{{Structure: "gaiaformer"}}}}},
		{Clauses: []SearchClause{{Structures: []StructureCondition{{Race: "Klingons", Structure: "mine"}}}}},
		{Clauses: []SearchClause{{WinnerRace: "99"}}},
	}
	for i, req := range cases {
		if _, err := Compile(req, vocab.Default()); !errors.Is(err, ErrUnknownVocabulary) {
			t.Fatalf("case %d: expected ErrUnknownVocabulary, got %v", i, err)
		}
	}
}

func TestCompileEmptyClauses(t *testing.T) {
	plan, err := Compile(SearchRequest{}, vocab.Default())
	if err != nil || !plan.MatchAll() {
		t.Fatalf("empty request should match all: %v", err)
	}
	plan, err = Compile(SearchRequest{Clauses: []SearchClause{{}, {PlayerName: "  "}}}, vocab.Default())
	if err != nil || !plan.MatchAll() {
		t.Fatalf("request of empty clauses should match all: %v", err)
	}
	_, err = Compile(SearchRequest{Clauses: []SearchClause{{PlayerName: "x"}, {}}}, vocab.Default())
	if !errors.Is(err, ErrEmptyClause) {
		t.Fatalf("expected ErrEmptyClause, got %v", err)
	}
}

func TestCompileRejectsNegativeRound(t *testing.T) {
	req := SearchRequest{Clauses: []SearchClause{{Structures: []StructureCondition{{Structure: "mine", MaxRound: -1}}}}}
	if _, err := Compile(req, vocab.Default()); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCompileRejectsOutOfRangeIntegers(t *testing.T) {
	big := 1 << 31
	small := -(1 << 31) - 1
	cases := map[string]SearchClause{
		"elo":         {MinPlayerElo: &big},
		"score":       {MinScore: &small},
		"rating":      {MinPlayerRating: &big},
		"playerCount": {PlayerCount: big},
		"maxRound":    {Structures: []StructureCondition{{Structure: "mine", MaxRound: big}}},
	}
	for name, c := range cases {
		req := SearchRequest{Clauses: []SearchClause{c}}
		if _, err := Compile(req, vocab.Default()); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%s: expected ErrInvalidRequest, got %v", name, err)
		}
	}

	edge := (1 << 31) - 1
	req := SearchRequest{Clauses: []SearchClause{{MinPlayerElo: &edge, PlayerCount: edge}}}
	if _, err := Compile(req, vocab.Default()); err != nil {
		t.Fatalf("int32 max should compile: %v", err)
	}

	many := SearchRequest{Clauses: make([]SearchClause, MaxClauses+1)}
	for i := range many.Clauses {
		many.Clauses[i].PlayerName = "x"
	}
	if _, err := Compile(many, vocab.Default()); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("too many clauses: %v", err)
	}
}

func TestCompileShape(t *testing.T) {
	req := SearchRequest{Clauses: []SearchClause{{
		PlayerCount: 4,
		PlayerName:  "Alabe",
		Structures:  []StructureCondition{{Race: "Bal T'aks", Structure: "rl", MaxRound: 3}},
	}}}
	plan := mustCompile(t, req)
	want := And{Terms: []Expr{
		PlayerCountEq{N: 4},
		AnyPlayer{Pred: And{Terms: []Expr{
			NameContains{Text: "alabe"},
			RaceIs{ID: 10},
			Built{StructureID: 6, MaxRound: 3},
		}}},
	}}
	if !reflect.DeepEqual(plan.Root, want) {
		t.Fatalf("root:\n got %#v\nwant %#v", plan.Root, want)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	req := SearchRequest{Clauses: []SearchClause{
		{PlayerName: "a", Structures: []StructureCondition{{Structure: "mine"}}},
		{WinnerRace: "itars", MinPlayerElo: domain.IntPtr(1500)},
	}}
	a, b := mustCompile(t, req), mustCompile(t, req)
	if !reflect.DeepEqual(a.Root, b.Root) {
		t.Fatalf("compilation differs between runs")
	}
	if !reflect.DeepEqual(ToSQL(a, SQLite), ToSQL(b, SQLite)) {
		t.Fatalf("lowering differs between runs")
	}
}

func TestCompileSubstitutedVocabulary(t *testing.T) {
	v, err := vocab.New(vocab.Document{
		MaxRounds:  3,
		Races:      []vocab.Entry{{ID: 1, Name: "Red"}},
		Structures: []vocab.Entry{{ID: 1, Name: "Hut"}},
	})
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	plan, err := Compile(SearchRequest{Clauses: []SearchClause{{Structures: []StructureCondition{{Structure: "hut"}}}}}, v)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := AnyPlayer{Pred: Built{StructureID: 1, MaxRound: 3}}
	if !reflect.DeepEqual(plan.Root, want) {
		t.Fatalf("root: %#v", plan.Root)
	}
	if _, err := Compile(structureReq("mine", 0), v); !errors.Is(err, ErrUnknownVocabulary) {
		t.Fatalf("default names must not leak into a substituted vocabulary: %v", err)
	}
}
