package store

import (
	"context"
	"fmt"

	"jobscout-engine/internal/domain"
)

func (d *DB) InsertRun(ctx context.Context, r domain.RunSummary) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO runs(id, job_id, portal, started_at, finished_at, found, added, duplicates, deleted, expired, status, error)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?);`,
		r.ID,
		r.JobID,
		r.Portal,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		r.Found,
		r.Added,
		r.Duplicates,
		r.Deleted,
		r.Expired,
		r.Status,
		r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns the newest run summaries, optionally for a single job.
func (d *DB) ListRuns(ctx context.Context, jobID string, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := `
SELECT id, job_id, portal, started_at, finished_at, found, added, duplicates, deleted, expired, status, error
FROM runs
%s
ORDER BY started_at DESC, rowid DESC
LIMIT ?;`
	args := []any{}
	where := ""
	if jobID != "" {
		where = "WHERE job_id = ?"
		args = append(args, jobID)
	}
	args = append(args, limit)

	rows, err := d.Pool.QueryContext(ctx, fmt.Sprintf(query, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var started, finished string
		if err := rows.Scan(
			&r.ID,
			&r.JobID,
			&r.Portal,
			&started,
			&finished,
			&r.Found,
			&r.Added,
			&r.Duplicates,
			&r.Deleted,
			&r.Expired,
			&r.Status,
			&r.Error,
		); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
