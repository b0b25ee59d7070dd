package runlog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wyckoff_watcher/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_records (
	run_id     TEXT PRIMARY KEY,
	mode       TEXT NOT NULL,
	started_at TEXT NOT NULL,
	outcome    TEXT NOT NULL
);`

// Journal keeps an append-only record of invocations in a local sqlite
// file. It exists for operators digging through history; the run itself
// never depends on it.
type Journal struct {
	db *sql.DB
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening run journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing run journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Record(rec models.RunRecord) error {
	_, err := j.db.Exec(
		`INSERT OR REPLACE INTO run_records (run_id, mode, started_at, outcome) VALUES (?, ?, ?, ?)`,
		rec.RunID, string(rec.Mode), rec.StartedAt.Format(time.RFC3339), rec.Outcome,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", rec.RunID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (j *Journal) Recent(limit int) ([]models.RunRecord, error) {
	rows, err := j.db.Query(
		`SELECT run_id, mode, started_at, outcome FROM run_records ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reading run journal: %w", err)
	}
	defer rows.Close()

	var recs []models.RunRecord
	for rows.Next() {
		var rec models.RunRecord
		var mode, started string
		if err := rows.Scan(&rec.RunID, &mode, &started, &rec.Outcome); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		rec.Mode = models.RunMode(mode)
		rec.StartedAt, _ = time.Parse(time.RFC3339, started)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
