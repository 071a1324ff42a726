package history

import (
	"database/sql"
	"time"
)

const SchemaVersion = 1

// RunRecord is one persisted pipeline run.
type RunRecord struct {
	Timestamp     time.Time
	Mode          string
	Language      string
	Status        string
	StagesTotal   int
	StagesFailed  int
	StagesSkipped int
	SnapshotID    string
	RolledBack    bool
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  schema_version  INTEGER NOT NULL,
  ts_utc          TEXT NOT NULL,
  mode            TEXT NOT NULL,
  language        TEXT NOT NULL,
  status          TEXT NOT NULL,
  stages_total    INTEGER NOT NULL,
  stages_failed   INTEGER NOT NULL,
  stages_skipped  INTEGER NOT NULL,
  snapshot_id     TEXT NOT NULL DEFAULT '',
  rolled_back     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs (ts_utc);
`

func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
