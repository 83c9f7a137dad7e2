package vocab

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	yaml "gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultFiles embed.FS

// Entry is one canonical vocabulary member.
type Entry struct {
	ID      int      `yaml:"id"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// Document is the on-disk shape of a vocabulary.
type Document struct {
	Game       string  `yaml:"game"`
	MaxRounds  int     `yaml:"max_rounds"`
	EloOffset  float64 `yaml:"elo_offset"`
	Races      []Entry `yaml:"races"`
	Structures []Entry `yaml:"structures"`
}

// Vocabulary holds the race and structure tables of one game. It is immutable
// after construction and safe for concurrent use.
type Vocabulary struct {
	game       string
	maxRounds  int
	eloOffset  float64
	races      table
	structures table
}

type table struct {
	kind  string
	byID  map[int]Entry
	byKey map[string]int
	order []int
}

var (
	defaultOnce  sync.Once
	defaultVocab *Vocabulary
	defaultErr   error
)

// Default returns the embedded Gaia Project vocabulary.
func Default() *Vocabulary {
	defaultOnce.Do(func() {
		raw, err := fs.ReadFile(defaultFiles, "vocabulary.yaml")
		if err != nil {
			defaultErr = fmt.Errorf("read embedded vocabulary: %w", err)
			return
		}
		defaultVocab, defaultErr = Parse(raw)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultVocab
}

// Load returns the embedded vocabulary, or the document at overridePath when set.
func Load(overridePath string) (*Vocabulary, error) {
	if strings.TrimSpace(overridePath) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", overridePath, err)
	}
	v, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", overridePath, err)
	}
	return v, nil
}

// Parse decodes a YAML vocabulary document.
func Parse(raw []byte) (*Vocabulary, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return New(doc)
}

// New validates doc and builds the lookup tables.
func New(doc Document) (*Vocabulary, error) {
	if doc.MaxRounds <= 0 {
		return nil, errors.New("max_rounds must be positive")
	}
	races, err := buildTable("race", doc.Races)
	if err != nil {
		return nil, err
	}
	structures, err := buildTable("structure", doc.Structures)
	if err != nil {
		return nil, err
	}
	return &Vocabulary{
		game:       strings.TrimSpace(doc.Game),
		maxRounds:  doc.MaxRounds,
		eloOffset:  doc.EloOffset,
		races:      races,
		structures: structures,
	}, nil
}

func buildTable(kind string, entries []Entry) (table, error) {
	t := table{kind: kind, byID: make(map[int]Entry, len(entries)), byKey: make(map[string]int)}
	if len(entries) == 0 {
		return t, fmt.Errorf("no %s entries", kind)
	}
	for _, e := range entries {
		if e.ID <= 0 {
			return t, fmt.Errorf("%s %q: id must be positive", kind, e.Name)
		}
		if strings.TrimSpace(e.Name) == "" {
			return t, fmt.Errorf("%s %d: empty name", kind, e.ID)
		}
		if _, dup := t.byID[e.ID]; dup {
			return t, fmt.Errorf("duplicate %s id %d", kind, e.ID)
		}
		e.Aliases = append([]string(nil), e.Aliases...)
		t.byID[e.ID] = e
		t.order = append(t.order, e.ID)
		for _, name := range append([]string{e.Name}, e.Aliases...) {
			key := Key(name)
			if key == "" {
				continue
			}
			if prev, ok := t.byKey[key]; ok && prev != e.ID {
				return t, fmt.Errorf("%s name %q is used by ids %d and %d", kind, name, prev, e.ID)
			}
			t.byKey[key] = e.ID
		}
	}
	sort.Ints(t.order)
	return t, nil
}

// Key folds a display name into its lookup form: lower case, letters and digits only.
func Key(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (t table) resolve(name string) (int, bool) {
	s := strings.TrimSpace(name)
	if n, err := strconv.Atoi(s); err == nil {
		_, ok := t.byID[n]
		return n, ok
	}
	id, ok := t.byKey[Key(s)]
	return id, ok
}

func (t table) entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

func (v *Vocabulary) Game() string { return v.game }

// MaxRounds is the number of rounds in a complete game.
func (v *Vocabulary) MaxRounds() int { return v.maxRounds }

// EloOffset is subtracted from platform ratings before they are stored.
func (v *Vocabulary) EloOffset() float64 { return v.eloOffset }

// RaceID resolves a race name, alias or numeric ID.
func (v *Vocabulary) RaceID(name string) (int, bool) { return v.races.resolve(name) }

// StructureID resolves a structure name, alias or numeric ID.
func (v *Vocabulary) StructureID(name string) (int, bool) { return v.structures.resolve(name) }

func (v *Vocabulary) HasRace(id int) bool {
	_, ok := v.races.byID[id]
	return ok
}

func (v *Vocabulary) HasStructure(id int) bool {
	_, ok := v.structures.byID[id]
	return ok
}

// RaceName returns the display name for id, or "" when unknown.
func (v *Vocabulary) RaceName(id int) string { return v.races.byID[id].Name }

// StructureName returns the display name for id, or "" when unknown.
func (v *Vocabulary) StructureName(id int) string { return v.structures.byID[id].Name }

// Races lists race entries ordered by ID.
func (v *Vocabulary) Races() []Entry { return v.races.entries() }

// Structures lists structure entries ordered by ID.
func (v *Vocabulary) Structures() []Entry { return v.structures.entries() }
