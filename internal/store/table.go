package store

import (
	"database/sql"
	"strconv"
)

// migrations[i] moves the schema from user_version i to i+1.
var migrations = [][]string{
	{
		`
CREATE TABLE IF NOT EXISTS postings (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  organization TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  salary TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT 'General',
  education TEXT NOT NULL DEFAULT 'Any',
  min_age INTEGER NOT NULL DEFAULT 0,
  max_age INTEGER NOT NULL DEFAULT 0,
  fingerprint TEXT NOT NULL,
  source_portal TEXT NOT NULL DEFAULT '',
  source_url TEXT NOT NULL DEFAULT '',
  discovered_at TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft'
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_postings_fingerprint ON postings(fingerprint);`,
		`CREATE INDEX IF NOT EXISTS idx_postings_org ON postings(organization COLLATE NOCASE);`,
		`CREATE INDEX IF NOT EXISTS idx_postings_status_date ON postings(status, discovered_at);`,
		`
CREATE TABLE IF NOT EXISTS match_logs (
  id TEXT PRIMARY KEY,
  created_at TEXT NOT NULL,
  candidate_id TEXT NOT NULL,
  candidate_education TEXT NOT NULL,
  candidate_age INTEGER NOT NULL DEFAULT 0,
  candidate_region TEXT NOT NULL,
  posting_id TEXT NOT NULL,
  posting_category TEXT NOT NULL,
  posting_region TEXT NOT NULL,
  score REAL NOT NULL,
  breakdown TEXT NOT NULL DEFAULT '{}',
  outcome TEXT NOT NULL DEFAULT ''
);`,
		`CREATE INDEX IF NOT EXISTS idx_match_logs_pair ON match_logs(posting_id, candidate_id, outcome);`,
		`CREATE INDEX IF NOT EXISTS idx_match_logs_learning ON match_logs(candidate_education, posting_category, outcome);`,
		`
CREATE TABLE IF NOT EXISTS learned_patterns (
  education TEXT NOT NULL,
  region TEXT NOT NULL,
  avg_success_score REAL NOT NULL,
  confidence REAL NOT NULL,
  samples INTEGER NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (education, region)
);`,
		`
CREATE TABLE IF NOT EXISTS heuristic_weights (
  profile_key TEXT PRIMARY KEY,
  base REAL NOT NULL,
  category_bonus REAL NOT NULL,
  keyword_bonus REAL NOT NULL,
  keyword_cap REAL NOT NULL,
  eligibility_bonus REAL NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  job_id TEXT NOT NULL,
  portal TEXT NOT NULL DEFAULT '',
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  found INTEGER NOT NULL DEFAULT 0,
  added INTEGER NOT NULL DEFAULT 0,
  duplicates INTEGER NOT NULL DEFAULT 0,
  deleted INTEGER NOT NULL DEFAULT 0,
  expired INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT ''
);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_job ON runs(job_id, started_at DESC);`,
	},
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= len(migrations) {
		return tx.Commit()
	}

	for i := v; i < len(migrations); i++ {
		for _, stmt := range migrations[i] {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
	}

	// PRAGMA does not take bind parameters
	if _, err := tx.Exec(`PRAGMA user_version = ` + strconv.Itoa(len(migrations)) + `;`); err != nil {
		return err
	}

	return tx.Commit()
}
