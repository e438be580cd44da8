package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jobscout-engine/internal/domain"
)

func (d *DB) UpsertPattern(ctx context.Context, p domain.LearnedPattern) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO learned_patterns(education, region, avg_success_score, confidence, samples, updated_at)
VALUES(?,?,?,?,?,?)
ON CONFLICT(education, region) DO UPDATE SET
  avg_success_score = excluded.avg_success_score,
  confidence = excluded.confidence,
  samples = excluded.samples,
  updated_at = excluded.updated_at;
`, p.Education, p.Region, p.AvgSuccessScore, p.Confidence, p.Samples, formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert pattern %s/%s: %w", p.Education, p.Region, err)
	}
	return nil
}

func (d *DB) GetPattern(ctx context.Context, education, region string) (domain.LearnedPattern, bool, error) {
	var p domain.LearnedPattern
	var updated string
	err := d.Pool.QueryRowContext(ctx, `
SELECT education, region, avg_success_score, confidence, samples, updated_at
FROM learned_patterns
WHERE education = ? AND region = ?
LIMIT 1;`, education, region).Scan(&p.Education, &p.Region, &p.AvgSuccessScore, &p.Confidence, &p.Samples, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, err
	}
	p.UpdatedAt = parseTime(updated)
	return p, true, nil
}

func (d *DB) ListPatterns(ctx context.Context) ([]domain.LearnedPattern, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT education, region, avg_success_score, confidence, samples, updated_at
FROM learned_patterns
ORDER BY education, region;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LearnedPattern
	for rows.Next() {
		var p domain.LearnedPattern
		var updated string
		if err := rows.Scan(&p.Education, &p.Region, &p.AvgSuccessScore, &p.Confidence, &p.Samples, &updated); err != nil {
			return nil, err
		}
		p.UpdatedAt = parseTime(updated)
		out = append(out, p)
	}
	return out, rows.Err()
}

// HeuristicWeights returns the weight row for a profile class, if one was stored.
func (d *DB) HeuristicWeights(ctx context.Context, key string) (domain.HeuristicWeights, bool, error) {
	var w domain.HeuristicWeights
	err := d.Pool.QueryRowContext(ctx, `
SELECT base, category_bonus, keyword_bonus, keyword_cap, eligibility_bonus
FROM heuristic_weights
WHERE profile_key = ?
LIMIT 1;`, key).Scan(&w.Base, &w.CategoryBonus, &w.KeywordBonus, &w.KeywordCap, &w.EligibilityBonus)
	if errors.Is(err, sql.ErrNoRows) {
		return w, false, nil
	}
	if err != nil {
		return w, false, err
	}
	return w, true, nil
}

func (d *DB) SetHeuristicWeights(ctx context.Context, key string, w domain.HeuristicWeights) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO heuristic_weights(profile_key, base, category_bonus, keyword_bonus, keyword_cap, eligibility_bonus)
VALUES(?,?,?,?,?,?)
ON CONFLICT(profile_key) DO UPDATE SET
  base = excluded.base,
  category_bonus = excluded.category_bonus,
  keyword_bonus = excluded.keyword_bonus,
  keyword_cap = excluded.keyword_cap,
  eligibility_bonus = excluded.eligibility_bonus;
`, key, w.Base, w.CategoryBonus, w.KeywordBonus, w.KeywordCap, w.EligibilityBonus)
	return err
}
