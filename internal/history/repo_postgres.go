package history

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo stores archived calls in the call_history table. Use the pgx
// stdlib driver ("pgx") when opening the pool.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// EnsureSchema creates the call_history table when missing. Deployments with
// managed migrations can skip this.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS call_history (
	id               UUID PRIMARY KEY,
	call_id          TEXT NOT NULL UNIQUE,
	caller_email     TEXT NOT NULL,
	caller_name      TEXT NOT NULL DEFAULT '',
	receiver_email   TEXT NOT NULL,
	receiver_name    TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	started_at       TIMESTAMPTZ NOT NULL,
	ended_at         TIMESTAMPTZ,
	duration_seconds BIGINT NOT NULL DEFAULT 0,
	archived_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS call_history_caller_idx ON call_history (caller_email, archived_at DESC);
CREATE INDEX IF NOT EXISTS call_history_receiver_idx ON call_history (receiver_email, archived_at DESC);
`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("history: ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Insert(ctx context.Context, rec CallRecord) error {
	const q = `
INSERT INTO call_history
	(id, call_id, caller_email, caller_name, receiver_email, receiver_name,
	 status, started_at, ended_at, duration_seconds, archived_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (call_id) DO UPDATE SET
	status = EXCLUDED.status,
	ended_at = EXCLUDED.ended_at,
	duration_seconds = EXCLUDED.duration_seconds,
	archived_at = EXCLUDED.archived_at
`
	var endedAt sql.NullTime
	if !rec.EndedAt.IsZero() {
		endedAt = sql.NullTime{Time: rec.EndedAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.CallID, rec.CallerEmail, rec.CallerName,
		rec.ReceiverEmail, rec.ReceiverName, rec.Status,
		rec.StartedAt, endedAt, rec.DurationSeconds, rec.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("history: insert record: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListForUser(ctx context.Context, email string, limit int) ([]CallRecord, error) {
	const q = `
SELECT id, call_id, caller_email, caller_name, receiver_email, receiver_name,
       status, started_at, ended_at, duration_seconds, archived_at
FROM call_history
WHERE caller_email = $1 OR receiver_email = $1
ORDER BY archived_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, email, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list records: %w", err)
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var rec CallRecord
		var endedAt sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.CallID, &rec.CallerEmail, &rec.CallerName,
			&rec.ReceiverEmail, &rec.ReceiverName, &rec.Status,
			&rec.StartedAt, &endedAt, &rec.DurationSeconds, &rec.ArchivedAt,
		); err != nil {
			return nil, fmt.Errorf("history: scan record: %w", err)
		}
		if endedAt.Valid {
			rec.EndedAt = endedAt.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
