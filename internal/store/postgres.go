package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/park285/gaia-game-search/internal/query"
)

const pqUniqueViolation = "23505"

var postgresFlavor = flavor{
	dialect:  query.Postgres,
	schema:   postgresSchema,
	jsonCast: "::jsonb",
	timeArg:  func(t time.Time) any { return t },
	isUnique: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
	},
	gameIDs: func(ids []string) (string, []any) {
		return "p.game_id = ANY($1::uuid[])", []any{pq.Array(ids)}
	},
}

// OpenPostgres connects to databaseURL and returns a migrated repository.
func OpenPostgres(ctx context.Context, databaseURL string) (*SQLRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLRepository(ctx, db, postgresFlavor)
}

// NewPostgres wraps an already opened postgres handle without migrating it.
func NewPostgres(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, f: postgresFlavor}
}
