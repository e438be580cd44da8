package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"jobscout-engine/internal/domain"
)

const postingColumns = `id, title, organization, location, description, salary, category, education,
  min_age, max_age, fingerprint, source_portal, source_url, discovered_at, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(r rowScanner) (domain.Posting, error) {
	var p domain.Posting
	var discovered, status string
	err := r.Scan(
		&p.ID,
		&p.Title,
		&p.Organization,
		&p.Location,
		&p.Description,
		&p.Salary,
		&p.Category,
		&p.Education,
		&p.MinAge,
		&p.MaxAge,
		&p.Fingerprint,
		&p.SourcePortal,
		&p.SourceURL,
		&discovered,
		&status,
	)
	if err != nil {
		return p, err
	}
	p.DiscoveredAt = parseTime(discovered)
	p.Status = domain.Status(status)
	return p, nil
}

// InsertPosting adds p unless a posting with the same fingerprint exists.
// Losing a race on the fingerprint is reported as added=false, not an error.
func (d *DB) InsertPosting(ctx context.Context, p domain.Posting) (added bool, err error) {
	if p.ID == "" {
		return false, errors.New("missing id")
	}
	if p.Fingerprint == "" {
		return false, errors.New("missing fingerprint")
	}
	if p.Status == "" {
		p.Status = domain.StatusDraft
	}
	if p.DiscoveredAt.IsZero() {
		p.DiscoveredAt = time.Now()
	}

	res, err := d.Pool.ExecContext(ctx, `
INSERT OR IGNORE INTO postings(`+postingColumns+`)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		p.ID,
		p.Title,
		p.Organization,
		p.Location,
		p.Description,
		p.Salary,
		p.Category,
		p.Education,
		p.MinAge,
		p.MaxAge,
		p.Fingerprint,
		p.SourcePortal,
		p.SourceURL,
		formatTime(p.DiscoveredAt),
		string(p.Status),
	)
	if err != nil {
		return false, fmt.Errorf("insert posting: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (d *DB) FindByFingerprint(ctx context.Context, fingerprint string) (domain.Posting, bool, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE fingerprint = ? LIMIT 1;`, fingerprint)
	p, err := scanPosting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Posting{}, false, nil
	}
	if err != nil {
		return domain.Posting{}, false, err
	}
	return p, true, nil
}

// FindSimilar returns postings of the same organization (case-insensitive)
// whose lowercased, trimmed title starts with titlePrefix. SQLite lower() folds
// ASCII only, which covers the Latin titles the portals publish.
func (d *DB) FindSimilar(ctx context.Context, titlePrefix, organization string) ([]domain.Posting, error) {
	titlePrefix = strings.ToLower(titlePrefix)
	rows, err := d.Pool.QueryContext(ctx, `
SELECT `+postingColumns+`
FROM postings
WHERE organization = ? COLLATE NOCASE
  AND lower(substr(trim(title), 1, ?)) = ?
ORDER BY discovered_at DESC;`, strings.TrimSpace(organization), utf8.RuneCountInString(titlePrefix), titlePrefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) GetPosting(ctx context.Context, id string) (domain.Posting, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE id = ? LIMIT 1;`, id)
	p, err := scanPosting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Posting{}, fmt.Errorf("posting %s: %w", id, ErrNotFound)
	}
	return p, err
}

type ListPostingsOpts struct {
	Status domain.Status // empty = any
	Portal string
	Limit  int
}

func (d *DB) ListPostings(ctx context.Context, opts ListPostingsOpts) ([]domain.Posting, error) {
	if opts.Limit <= 0 || opts.Limit > 5000 {
		opts.Limit = 500
	}

	var where []string
	var args []any
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.Portal != "" {
		where = append(where, "source_portal = ?")
		args = append(args, opts.Portal)
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit)

	rows, err := d.Pool.QueryContext(ctx, `
SELECT `+postingColumns+`
FROM postings
`+clause+`
ORDER BY discovered_at DESC
LIMIT ?;`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPostingStatus is the curation hook that publishes a draft.
func (d *DB) SetPostingStatus(ctx context.Context, id string, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("status %q: invalid", status)
	}
	res, err := d.Pool.ExecContext(ctx, `UPDATE postings SET status = ? WHERE id = ?;`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("posting %s: %w", id, ErrNotFound)
	}
	return nil
}

func (d *DB) DeleteOlderThan(ctx context.Context, status domain.Status, cutoff time.Time) (deleted int64, err error) {
	res, err := d.Pool.ExecContext(ctx, `
DELETE FROM postings
WHERE status = ? AND discovered_at < ?;`, string(status), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete old %s postings: %w", status, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ExpireOlderThan moves published postings discovered before cutoff to expired.
func (d *DB) ExpireOlderThan(ctx context.Context, cutoff time.Time) (expired int64, err error) {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE postings
SET status = ?
WHERE status = ? AND discovered_at < ?;`,
		string(domain.StatusExpired), string(domain.StatusPublished), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("expire postings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
