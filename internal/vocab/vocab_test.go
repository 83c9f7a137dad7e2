package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTables(t *testing.T) {
	v := Default()
	if v.MaxRounds() != 6 {
		t.Fatalf("max rounds: got %d", v.MaxRounds())
	}
	if v.EloOffset() != 1300 {
		t.Fatalf("elo offset: got %v", v.EloOffset())
	}
	if len(v.Races()) != 14 {
		t.Fatalf("expected 14 races, got %d", len(v.Races()))
	}
	if got := v.RaceName(10); got != "Bal T'aks" {
		t.Fatalf("race 10: got %q", got)
	}
	if got := v.StructureName(4); got != "Mine" {
		t.Fatalf("structure 4: got %q", got)
	}
}

func TestResolveAliases(t *testing.T) {
	v := Default()
	cases := []struct {
		name string
		want int
	}{
		{"Bal T'aks", 10},
		{"baltaks", 10},
		{"bal-taks", 10},
		{"GLEENS", 4},
		{"hh", 7},
		{"10", 10},
	}
	for _, c := range cases {
		got, ok := v.RaceID(c.name)
		if !ok || got != c.want {
			t.Fatalf("RaceID(%q) = %d,%v want %d", c.name, got, ok, c.want)
		}
	}

	structures := map[string]int{
		"mine":            4,
		"Trading Station": 5,
		"ts":              5,
		"research-lab":    6,
		"PI":              7,
		"9":               9,
	}
	for name, want := range structures {
		got, ok := v.StructureID(name)
		if !ok || got != want {
			t.Fatalf("StructureID(%q) = %d,%v want %d", name, got, ok, want)
		}
	}

	if _, ok := v.StructureID("gaiaformer"); ok {
		t.Fatalf("unknown structure resolved")
	}
	if _, ok := v.RaceID("99"); ok {
		t.Fatalf("unknown numeric race resolved")
	}
}

func TestNewRejectsConflictingAliases(t *testing.T) {
	_, err := New(Document{
		MaxRounds:  3,
		Races:      []Entry{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Beta", Aliases: []string{"alpha"}}},
		Structures: []Entry{{ID: 1, Name: "Hut"}},
	})
	if err == nil {
		t.Fatalf("expected alias conflict error")
	}
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	doc := []byte(`
game: test
max_rounds: 3
elo_offset: 0
races:
  - id: 1
    name: Red
structures:
  - id: 1
    name: Hut
    aliases: [shack]
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.MaxRounds() != 3 || v.Game() != "test" {
		t.Fatalf("unexpected vocabulary: rounds=%d game=%q", v.MaxRounds(), v.Game())
	}
	if id, ok := v.StructureID("Shack"); !ok || id != 1 {
		t.Fatalf("alias lookup failed: %d %v", id, ok)
	}
	if v.HasRace(4) {
		t.Fatalf("override should replace the embedded tables")
	}
}
