// Package history keeps a record of filtering runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/offres-filter/internal/lexicon"
	"github.com/spigell/offres-filter/internal/stats"
)

// DefaultLimit is the number of runs listed when no limit is given.
const DefaultLimit = 10

// Run is one recorded filtering run.
type Run struct {
	ID           string
	StartedAt    time.Time
	Source       string
	Total        int
	Training     int
	Real         int
	Contracts    map[lexicon.ContractType]int
	QualityScore float64
	Verdict      string
	Degraded     bool
}

// FromStats builds the history row of a run.
func FromStats(startedAt time.Time, source string, s stats.RunStatistics) Run {
	r := Run{
		ID:           s.RunID,
		StartedAt:    startedAt,
		Source:       source,
		Total:        s.Total,
		Training:     s.TrainingOrg.Count,
		Real:         s.Real.Count,
		Contracts:    make(map[lexicon.ContractType]int, len(s.Contracts)),
		QualityScore: s.QualityScore,
		Verdict:      string(s.Verdict),
		Degraded:     s.Degraded(),
	}
	for _, c := range s.Contracts {
		r.Contracts[c.Type] = c.Count
	}
	return r
}

// Store is a run history backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL, -- unix nanoseconds, UTC
	source TEXT,
	total INTEGER NOT NULL,
	training INTEGER NOT NULL,
	real INTEGER NOT NULL,
	alternance INTEGER NOT NULL,
	stage INTEGER NOT NULL,
	cdi INTEGER NOT NULL,
	cdd INTEGER NOT NULL,
	freelance INTEGER NOT NULL,
	non_precise INTEGER NOT NULL,
	quality_score REAL NOT NULL,
	verdict TEXT,
	degraded INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("initializing history schema: %w", err)
	}
	return nil
}

// Record stores a run. Recording the same id twice replaces the previous row.
func (s *Store) Record(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs (
	id, started_at, source, total, training, real,
	alternance, stage, cdi, cdd, freelance, non_precise,
	quality_score, verdict, degraded
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixNano(), r.Source, r.Total, r.Training, r.Real,
		r.Contracts[lexicon.Alternance], r.Contracts[lexicon.Stage], r.Contracts[lexicon.CDI],
		r.Contracts[lexicon.CDD], r.Contracts[lexicon.Freelance], r.Contracts[lexicon.NonPrecise],
		r.QualityScore, r.Verdict, r.Degraded,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", r.ID, err)
	}
	return nil
}

// List returns the most recent runs first. A non-positive limit uses DefaultLimit.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, source, total, training, real,
	alternance, stage, cdi, cdd, freelance, non_precise,
	quality_score, verdict, degraded
FROM runs
ORDER BY started_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                   Run
			startedAt           int64
			source, verdict     sql.NullString
			alternance, stage   int
			cdi, cdd            int
			freelance, unmarked int
		)
		if err := rows.Scan(
			&r.ID, &startedAt, &source, &r.Total, &r.Training, &r.Real,
			&alternance, &stage, &cdi, &cdd, &freelance, &unmarked,
			&r.QualityScore, &verdict, &r.Degraded,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		r.StartedAt = time.Unix(0, startedAt).UTC()
		r.Source = source.String
		r.Verdict = verdict.String
		r.Contracts = map[lexicon.ContractType]int{
			lexicon.Alternance: alternance,
			lexicon.Stage:      stage,
			lexicon.CDI:        cdi,
			lexicon.CDD:        cdd,
			lexicon.Freelance:  freelance,
			lexicon.NonPrecise: unmarked,
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
