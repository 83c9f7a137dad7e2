package store

const postgresSchema = `
CREATE TABLE IF NOT EXISTS games (
	id UUID PRIMARY KEY,
	table_id BIGINT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	player_count INTEGER NOT NULL,
	winner_name TEXT NOT NULL DEFAULT '',
	winner_fold TEXT NOT NULL DEFAULT '',
	winner_ambiguous BOOLEAN NOT NULL DEFAULT FALSE,
	min_player_elo INTEGER,
	raw_log JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_games_created ON games (created_at DESC, table_id DESC);
CREATE INDEX IF NOT EXISTS idx_games_min_elo ON games (min_player_elo);
ALTER TABLE games ADD COLUMN IF NOT EXISTS winner_ambiguous BOOLEAN NOT NULL DEFAULT FALSE;

CREATE TABLE IF NOT EXISTS players (
	game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	seat INTEGER NOT NULL,
	external_id TEXT NOT NULL,
	name TEXT NOT NULL,
	name_fold TEXT NOT NULL,
	race_id INTEGER NOT NULL,
	final_score INTEGER NOT NULL DEFAULT 0,
	elo INTEGER,
	is_winner BOOLEAN NOT NULL DEFAULT FALSE,
	buildings JSONB NOT NULL DEFAULT '[]'::jsonb,
	PRIMARY KEY (game_id, seat),
	UNIQUE (game_id, external_id)
);

CREATE INDEX IF NOT EXISTS idx_players_name ON players (name);
CREATE INDEX IF NOT EXISTS idx_players_race ON players (race_id);
CREATE INDEX IF NOT EXISTS idx_players_buildings ON players USING GIN (buildings);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	table_id INTEGER NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	player_count INTEGER NOT NULL,
	winner_name TEXT NOT NULL DEFAULT '',
	winner_fold TEXT NOT NULL DEFAULT '',
	winner_ambiguous INTEGER NOT NULL DEFAULT 0,
	min_player_elo INTEGER,
	raw_log TEXT,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_games_created ON games (created_at DESC, table_id DESC);

CREATE TABLE IF NOT EXISTS players (
	game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	seat INTEGER NOT NULL,
	external_id TEXT NOT NULL,
	name TEXT NOT NULL,
	name_fold TEXT NOT NULL,
	race_id INTEGER NOT NULL,
	final_score INTEGER NOT NULL DEFAULT 0,
	elo INTEGER,
	is_winner INTEGER NOT NULL DEFAULT 0,
	buildings TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (game_id, seat),
	UNIQUE (game_id, external_id)
);

CREATE INDEX IF NOT EXISTS idx_players_name ON players (name);
CREATE INDEX IF NOT EXISTS idx_players_race ON players (race_id);
`
