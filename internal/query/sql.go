package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders the parts of the filter that differ between SQL engines.
// The filter reads the games table as g and the players table as p; player
// rows carry name_fold (Fold of the name) and buildings (a JSON array of
// round arrays).
type Dialect interface {
	Name() string
	// Placeholder returns the marker for the n-th (1-based) argument.
	Placeholder(n int) string
	Bool(col string) string
	// Contains tests whether the pre-folded column contains the argument.
	Contains(col, arg string) string
	// Built tests whether structureArg appears in one of the first roundArg
	// rounds of the timeline column. Implementations must reference roundArg
	// before structureArg.
	Built(col, roundArg, structureArg string) string
}

type postgresDialect struct{}

func (postgresDialect) Name() string             { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (postgresDialect) Bool(col string) string   { return col }
func (postgresDialect) Contains(col, arg string) string {
	return fmt.Sprintf("strpos(%s, %s) > 0", col, arg)
}
func (postgresDialect) Built(col, roundArg, structureArg string) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements(%s) WITH ORDINALITY AS r(structures, round_no) "+
		"WHERE r.round_no <= %s AND r.structures @> jsonb_build_array(%s::int))", col, roundArg, structureArg)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return "sqlite" }
func (sqliteDialect) Placeholder(int) string { return "?" }
func (sqliteDialect) Bool(col string) string { return col + " = 1" }
func (sqliteDialect) Contains(col, arg string) string {
	return fmt.Sprintf("instr(%s, %s) > 0", col, arg)
}
func (sqliteDialect) Built(col, roundArg, structureArg string) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) AS r WHERE r.key < %s "+
		"AND EXISTS (SELECT 1 FROM json_each(r.value) AS s WHERE s.value = %s))", col, roundArg, structureArg)
}

var (
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

// Where is a lowered filter over the games table aliased g.
type Where struct {
	SQL  string
	Args []any
}

// Bind appends v to the filter's arguments and returns its placeholder, for
// clauses that follow the filter such as LIMIT and OFFSET.
func (w *Where) Bind(d Dialect, v any) string {
	w.Args = append(w.Args, v)
	return d.Placeholder(len(w.Args))
}

// ToSQL lowers the plan into a boolean SQL expression.
func ToSQL(p *Plan, d Dialect) Where {
	b := &sqlBuilder{d: d}
	sql := b.expr(p.Root)
	return Where{SQL: sql, Args: b.args}
}

type sqlBuilder struct {
	d    Dialect
	args []any
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func (b *sqlBuilder) join(terms []Expr, op, empty string) string {
	if len(terms) == 0 {
		return empty
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = b.expr(t)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")"
}

func (b *sqlBuilder) expr(e Expr) string {
	switch n := e.(type) {
	case True:
		return "1 = 1"
	case Or:
		return b.join(n.Terms, "OR", "1 = 0")
	case And:
		return b.join(n.Terms, "AND", "1 = 1")
	case PlayerCountEq:
		return "g.player_count = " + b.bind(n.N)
	case MinEloAtLeast:
		return "g.min_player_elo >= " + b.bind(n.N)
	case WinnerNameContains:
		return b.d.Contains("g.winner_fold", b.bind(n.Text))
	case AnyPlayer:
		return "EXISTS (SELECT 1 FROM players p WHERE p.game_id = g.id AND " + b.expr(n.Pred) + ")"
	case NameContains:
		return b.d.Contains("p.name_fold", b.bind(n.Text))
	case ScoreAtLeast:
		return "p.final_score >= " + b.bind(n.N)
	case RatingAtLeast:
		return "p.elo >= " + b.bind(n.N)
	case IsWinner:
		return b.d.Bool("p.is_winner")
	case RaceIs:
		return "p.race_id = " + b.bind(n.ID)
	case Built:
		round := b.bind(n.MaxRound)
		structure := b.bind(n.StructureID)
		return b.d.Built("p.buildings", round, structure)
	default:
		panic(fmt.Sprintf("query: cannot lower %T", e))
	}
}
