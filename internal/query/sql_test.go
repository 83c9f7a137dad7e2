package query

import (
	"reflect"
	"strings"
	"testing"

	"github.com/park285/gaia-game-search/internal/domain"
)

func TestToSQLMatchAll(t *testing.T) {
	w := ToSQL(mustCompile(t, SearchRequest{}), Postgres)
	if w.SQL != "1 = 1" || len(w.Args) != 0 {
		t.Fatalf("match-all lowering: %+v", w)
	}
}

func TestToSQLPostgres(t *testing.T) {
	req := SearchRequest{Clauses: []SearchClause{
		{PlayerName: "Alabe", Structures: []StructureCondition{{Structure: "mine", MaxRound: 2}}},
		{MinPlayerElo: domain.IntPtr(1800), WinnerRace: "terrans"},
	}}
	w := ToSQL(mustCompile(t, req), Postgres)

	for _, frag := range []string{
		"strpos(p.name_fold, $1) > 0",
		"WITH ORDINALITY AS r(structures, round_no) WHERE r.round_no <= $2 AND r.structures @> jsonb_build_array($3::int)",
		"g.min_player_elo >= $4",
		"p.is_winner AND p.race_id = $5",
		" OR ",
	} {
		if !strings.Contains(w.SQL, frag) {
			t.Fatalf("missing %q in\n%s", frag, w.SQL)
		}
	}
	if want := []any{"alabe", 2, 4, 1800, 1}; !reflect.DeepEqual(w.Args, want) {
		t.Fatalf("args: %v", w.Args)
	}
	if lim, off := w.Bind(Postgres, 10), w.Bind(Postgres, 20); lim != "$6" || off != "$7" {
		t.Fatalf("bound placeholders: %s %s", lim, off)
	}
	if n := len(w.Args); n != 7 || w.Args[5] != 10 || w.Args[6] != 20 {
		t.Fatalf("bound args: %v", w.Args)
	}
}

func TestToSQLSQLite(t *testing.T) {
	req := SearchRequest{Clauses: []SearchClause{{
		PlayerCount: 2,
		Structures:  []StructureCondition{{Race: "gleens", Structure: "pi"}},
	}}}
	w := ToSQL(mustCompile(t, req), SQLite)
	if strings.Contains(w.SQL, "$") {
		t.Fatalf("postgres placeholder in sqlite filter: %s", w.SQL)
	}
	if !strings.Contains(w.SQL, "json_each(p.buildings) AS r WHERE r.key < ?") {
		t.Fatalf("round bound missing: %s", w.SQL)
	}
	if strings.Count(w.SQL, "?") != len(w.Args) {
		t.Fatalf("placeholders and args disagree: %s %v", w.SQL, w.Args)
	}
	if want := []any{2, 4, 6, 7}; !reflect.DeepEqual(w.Args, want) {
		t.Fatalf("args: %v", w.Args)
	}
}
