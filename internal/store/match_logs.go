package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jobscout-engine/internal/domain"
)

func (d *DB) AppendMatchLog(ctx context.Context, e domain.MatchLogEntry) error {
	b, _ := json.Marshal(e.Breakdown)
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO match_logs(id, created_at, candidate_id, candidate_education, candidate_age, candidate_region,
  posting_id, posting_category, posting_region, score, breakdown, outcome)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?);`,
		e.ID,
		formatTime(e.CreatedAt),
		e.CandidateID,
		e.CandidateEducation,
		e.CandidateAge,
		e.CandidateRegion,
		e.PostingID,
		e.PostingCategory,
		e.PostingRegion,
		e.Score,
		string(b),
		string(e.Outcome),
	)
	if err != nil {
		return fmt.Errorf("append match log: %w", err)
	}
	return nil
}

// RecentOutcomes returns the outcomes of the latest limit entries for
// (education, category) that already carry one, newest first.
func (d *DB) RecentOutcomes(ctx context.Context, education, category string, limit int) ([]domain.Outcome, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT outcome
FROM match_logs
WHERE candidate_education = ? AND posting_category = ? AND outcome != ''
ORDER BY created_at DESC, rowid DESC
LIMIT ?;`, education, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Outcome
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		out = append(out, domain.Outcome(o))
	}
	return out, rows.Err()
}

// SetOutcome records o on the most recent entry for the pair that has no
// outcome yet. It reports false when no such entry exists.
func (d *DB) SetOutcome(ctx context.Context, postingID, candidateID string, o domain.Outcome) (bool, error) {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE match_logs
SET outcome = ?
WHERE outcome = ''
  AND id = (
    SELECT id FROM match_logs
    WHERE posting_id = ? AND candidate_id = ? AND outcome = ''
    ORDER BY created_at DESC, rowid DESC
    LIMIT 1
  );`, string(o), postingID, candidateID)
	if err != nil {
		return false, fmt.Errorf("set outcome: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (d *DB) ListMatchLogs(ctx context.Context, candidateID string, limit int) ([]domain.MatchLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, created_at, candidate_id, candidate_education, candidate_age, candidate_region,
  posting_id, posting_category, posting_region, score, breakdown, outcome
FROM match_logs
WHERE candidate_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?;`, candidateID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MatchLogEntry
	for rows.Next() {
		var e domain.MatchLogEntry
		var created, breakdown, outcome string
		if err := rows.Scan(
			&e.ID,
			&created,
			&e.CandidateID,
			&e.CandidateEducation,
			&e.CandidateAge,
			&e.CandidateRegion,
			&e.PostingID,
			&e.PostingCategory,
			&e.PostingRegion,
			&e.Score,
			&breakdown,
			&outcome,
		); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(created)
		e.Outcome = domain.Outcome(outcome)
		_ = json.Unmarshal([]byte(breakdown), &e.Breakdown)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AggregateOutcomes groups every outcome-bearing entry by (education, region).
// AvgSuccessScore averages the scores of applied/saved entries only.
func (d *DB) AggregateOutcomes(ctx context.Context, now time.Time) ([]domain.LearnedPattern, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT candidate_education,
  candidate_region,
  COALESCE(AVG(CASE WHEN outcome IN ('applied','saved') THEN score END), 0),
  SUM(CASE WHEN outcome IN ('applied','saved') THEN 1 ELSE 0 END),
  COUNT(*)
FROM match_logs
WHERE outcome != ''
GROUP BY candidate_education, candidate_region;`)
	if err != nil {
		return nil, fmt.Errorf("aggregate outcomes: %w", err)
	}
	defer rows.Close()

	var out []domain.LearnedPattern
	for rows.Next() {
		var p domain.LearnedPattern
		var successes int
		if err := rows.Scan(&p.Education, &p.Region, &p.AvgSuccessScore, &successes, &p.Samples); err != nil {
			return nil, err
		}
		if p.Samples > 0 {
			p.Confidence = float64(successes) / float64(p.Samples)
		}
		p.UpdatedAt = now
		out = append(out, p)
	}
	return out, rows.Err()
}
