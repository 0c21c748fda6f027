package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgJournal is a PostgreSQL-backed Journal using pgx/v5.
type PgJournal struct {
	pool *pgxpool.Pool
}

// NewPgJournal creates a new PostgreSQL publish journal.
func NewPgJournal(pool *pgxpool.Pool) *PgJournal {
	return &PgJournal{pool: pool}
}

// Schema is the DDL for the publish journal table.
const Schema = `
CREATE TABLE IF NOT EXISTS publish_records (
	id          TEXT PRIMARY KEY,
	distro      TEXT NOT NULL,
	groups      JSONB NOT NULL,
	screens_ok  BOOLEAN NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS publish_records_finished_at_idx
	ON publish_records (finished_at DESC);
`

// EnsureSchema creates the journal table when it does not exist.
func (j *PgJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create publish_records schema: %w", err)
	}
	return nil
}

// Append stores a publish record.
func (j *PgJournal) Append(ctx context.Context, rec Record) error {
	groupsJSON, err := json.Marshal(rec.Groups)
	if err != nil {
		return fmt.Errorf("marshal group results: %w", err)
	}

	_, err = j.pool.Exec(ctx, `
		INSERT INTO publish_records (
			id, distro, groups, screens_ok, error, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Distro, groupsJSON, rec.ScreensOK, rec.Error,
		rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert publish record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *PgJournal) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.pool.Query(ctx, `
		SELECT id, distro, groups, screens_ok, error, started_at, finished_at
		FROM publish_records
		ORDER BY finished_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query publish records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var groupsJSON []byte
		if err := rows.Scan(
			&rec.ID, &rec.Distro, &groupsJSON, &rec.ScreensOK, &rec.Error,
			&rec.StartedAt, &rec.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan publish record: %w", err)
		}
		if groupsJSON != nil {
			if err := json.Unmarshal(groupsJSON, &rec.Groups); err != nil {
				return nil, fmt.Errorf("unmarshal group results: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
