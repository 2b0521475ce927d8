package snapshot

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = 1

// schemaV1 holds artifact snapshots and historical run records.
var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS snapshots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	artifact_id TEXT NOT NULL,
	taken_at    TEXT NOT NULL,
	content     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_artifact ON snapshots(artifact_id, id);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	config     TEXT NOT NULL,
	report     TEXT NOT NULL
);
`
