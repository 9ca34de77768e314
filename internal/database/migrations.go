package database

// migrations by version. Applied versions are recorded in
// schema_migrations and never run again.
var migrations = map[int]string{
	1: migrationV1Documents,
	2: migrationV2ImportRuns,
}

// migrationV1Documents stores each calendar document under the path the
// engine's manifest asks for, e.g. "temporal/lent.json".
const migrationV1Documents = `
CREATE TABLE IF NOT EXISTS calendar_documents (
	path       TEXT PRIMARY KEY,
	format     TEXT NOT NULL CHECK (format IN ('json', 'yaml')),
	body       BLOB NOT NULL,
	size       INTEGER NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// migrationV2ImportRuns keeps a log of cmd/import runs.
const migrationV2ImportRuns = `
CREATE TABLE IF NOT EXISTS import_runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	source          TEXT NOT NULL,
	dataset_version TEXT,
	documents       INTEGER NOT NULL DEFAULT 0,
	success         INTEGER NOT NULL,
	error_message   TEXT,
	duration_ms     INTEGER,
	imported_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_import_runs_imported_at ON import_runs(imported_at);
`
