package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/park285/gaia-game-search/internal/domain"
	"github.com/park285/gaia-game-search/internal/query"
)

// flavor carries what differs between the SQL backends.
type flavor struct {
	dialect  query.Dialect
	schema   string
	jsonCast string
	timeArg  func(time.Time) any
	isUnique func(error) bool
	// gameIDs renders a filter on p.game_id for the given IDs, numbering
	// placeholders from 1.
	gameIDs func(ids []string) (string, []any)
}

// SQLRepository is the Repository backed by postgres or sqlite.
type SQLRepository struct {
	db *sql.DB
	f  flavor
}

func (r *SQLRepository) ph(n int) string { return r.f.dialect.Placeholder(n) }

// Migrate creates the schema when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.f.schema); err != nil {
		return fmt.Errorf("apply %s schema: %w", r.f.dialect.Name(), err)
	}
	return nil
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) InsertGame(ctx context.Context, game *domain.Game) (err error) {
	if game == nil {
		return fmt.Errorf("nil game payload")
	}
	if game.ID == "" {
		return fmt.Errorf("game %d has no id", game.TableID)
	}

	var rawLog any
	if len(game.RawLog) > 0 {
		rawLog = string(game.RawLog)
	}
	var minElo any
	if game.MinPlayerElo != nil {
		minElo = *game.MinPlayerElo
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin insert", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertGame := fmt.Sprintf(`
		INSERT INTO games (id, table_id, name, player_count, winner_name, winner_fold, winner_ambiguous, min_player_elo, raw_log, created_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s%s, %s)
		ON CONFLICT (table_id) DO NOTHING
		RETURNING id`,
		r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6), r.ph(7), r.ph(8), r.ph(9), r.f.jsonCast, r.ph(10))

	var id string
	err = tx.QueryRowContext(ctx, insertGame,
		game.ID,
		game.TableID,
		game.Name,
		len(game.Players),
		game.WinnerName,
		query.Fold(game.WinnerName),
		game.WinnerAmbiguous,
		minElo,
		rawLog,
		r.f.timeArg(game.CreatedAt),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err != nil && r.f.isUnique(err)) {
		return ErrDuplicateGame
	}
	if err != nil {
		return unavailable("insert game", err)
	}

	insertPlayer := fmt.Sprintf(`
		INSERT INTO players (game_id, seat, external_id, name, name_fold, race_id, final_score, elo, is_winner, buildings)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s%s)`,
		r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6), r.ph(7), r.ph(8), r.ph(9), r.ph(10), r.f.jsonCast)
	stmt, err := tx.PrepareContext(ctx, insertPlayer)
	if err != nil {
		return unavailable("prepare player insert", err)
	}
	defer stmt.Close()

	for seat, p := range game.Players {
		buildings, merr := json.Marshal(p.Buildings)
		if merr != nil {
			err = fmt.Errorf("marshal buildings of %s: %w", p.ExternalID, merr)
			return err
		}
		var elo any
		if p.Elo != nil {
			elo = *p.Elo
		}
		if _, err = stmt.ExecContext(ctx,
			id, seat, p.ExternalID, p.Name, query.Fold(p.Name), p.RaceID, p.FinalScore, elo, p.IsWinner, string(buildings),
		); err != nil {
			if r.f.isUnique(err) {
				return fmt.Errorf("table %d: player %s listed twice: %w", game.TableID, p.ExternalID, err)
			}
			return unavailable("insert player", err)
		}
	}

	if err = tx.Commit(); err != nil {
		if r.f.isUnique(err) {
			return ErrDuplicateGame
		}
		return unavailable("commit insert", err)
	}
	return nil
}

const gameColumns = `g.id, g.table_id, g.name, g.player_count, g.winner_name, g.winner_ambiguous, g.min_player_elo, g.raw_log, g.created_at`

func (r *SQLRepository) GetGame(ctx context.Context, tableID int64) (*domain.Game, error) {
	q := `SELECT ` + gameColumns + ` FROM games g WHERE g.table_id = ` + r.ph(1)
	rows, err := r.db.QueryContext(ctx, q, tableID)
	if err != nil {
		return nil, unavailable("select game", err)
	}
	games, err := scanGames(rows)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("table %d: %w", tableID, ErrGameNotFound)
	}
	if err := r.loadPlayers(ctx, games); err != nil {
		return nil, err
	}
	return games[0], nil
}

func (r *SQLRepository) GameExists(ctx context.Context, tableID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM games WHERE table_id = `+r.ph(1), tableID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("check game", err)
	}
	return true, nil
}

func (r *SQLRepository) EachTableID(ctx context.Context, fn func(int64)) error {
	rows, err := r.db.QueryContext(ctx, `SELECT table_id FROM games`)
	if err != nil {
		return unavailable("select table ids", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return unavailable("scan table id", err)
		}
		fn(id)
	}
	if err := rows.Err(); err != nil {
		return unavailable("iterate table ids", err)
	}
	return nil
}

func (r *SQLRepository) Search(ctx context.Context, plan *query.Plan, limit, offset int) (*Page, error) {
	where := query.ToSQL(plan, r.f.dialect)

	var total int
	countQ := `SELECT COUNT(*) FROM games g WHERE ` + where.SQL
	if err := r.db.QueryRowContext(ctx, countQ, where.Args...).Scan(&total); err != nil {
		return nil, unavailable("count games", err)
	}

	pageQ := fmt.Sprintf(`SELECT %s FROM games g WHERE %s ORDER BY g.created_at DESC, g.table_id DESC LIMIT %s OFFSET %s`,
		gameColumns, where.SQL, where.Bind(r.f.dialect, limit), where.Bind(r.f.dialect, offset))
	rows, err := r.db.QueryContext(ctx, pageQ, where.Args...)
	if err != nil {
		return nil, unavailable("search games", err)
	}
	games, err := scanGames(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadPlayers(ctx, games); err != nil {
		return nil, err
	}
	return &Page{Games: games, Total: total}, nil
}

func (r *SQLRepository) PlayerNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT name FROM players`)
	if err != nil {
		return nil, unavailable("select player names", err)
	}
	defer rows.Close()
	names := make([]string, 0, 64)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, unavailable("scan player name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate player names", err)
	}
	sort.Strings(names)
	return names, nil
}

func scanGames(rows *sql.Rows) ([]*domain.Game, error) {
	defer rows.Close()
	var games []*domain.Game
	for rows.Next() {
		var (
			g      domain.Game
			minElo sql.NullInt64
			rawLog []byte
		)
		if err := rows.Scan(
			&g.ID,
			&g.TableID,
			&g.Name,
			&g.PlayerCount,
			&g.WinnerName,
			&g.WinnerAmbiguous,
			&minElo,
			&rawLog,
			timeScanner{&g.CreatedAt},
		); err != nil {
			return nil, unavailable("scan game", err)
		}
		if minElo.Valid {
			g.MinPlayerElo = domain.IntPtr(int(minElo.Int64))
		}
		if len(rawLog) > 0 {
			g.RawLog = json.RawMessage(rawLog)
		}
		games = append(games, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate games", err)
	}
	return games, nil
}

func (r *SQLRepository) loadPlayers(ctx context.Context, games []*domain.Game) error {
	if len(games) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Game, len(games))
	ids := make([]string, 0, len(games))
	for _, g := range games {
		byID[g.ID] = g
		ids = append(ids, g.ID)
	}
	filter, args := r.f.gameIDs(ids)
	q := `SELECT p.game_id, p.external_id, p.name, p.race_id, p.final_score, p.elo, p.is_winner, p.buildings
		FROM players p WHERE ` + filter + ` ORDER BY p.game_id, p.seat`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return unavailable("select players", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			gameID    string
			p         domain.Player
			elo       sql.NullInt64
			buildings []byte
		)
		if err := rows.Scan(&gameID, &p.ExternalID, &p.Name, &p.RaceID, &p.FinalScore, &elo, &p.IsWinner, &buildings); err != nil {
			return unavailable("scan player", err)
		}
		if elo.Valid {
			p.Elo = domain.IntPtr(int(elo.Int64))
		}
		if err := json.Unmarshal(buildings, &p.Buildings); err != nil {
			return fmt.Errorf("unmarshal buildings of %s: %w", p.ExternalID, err)
		}
		if g := byID[gameID]; g != nil {
			g.Players = append(g.Players, p)
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable("iterate players", err)
	}
	return nil
}

// timeScanner reads TIMESTAMPTZ values and integer unix microseconds alike.
type timeScanner struct{ t *time.Time }

func (s timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*s.t = v.UTC()
	case int64:
		*s.t = time.UnixMicro(v).UTC()
	case nil:
		*s.t = time.Time{}
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	return nil
}

func placeholders(d query.Dialect, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

// Dialect reports which SQL flavour the repository speaks.
func (r *SQLRepository) Dialect() query.Dialect { return r.f.dialect }

func newSQLRepository(ctx context.Context, db *sql.DB, f flavor) (*SQLRepository, error) {
	repo := &SQLRepository{db: db, f: f}
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}
