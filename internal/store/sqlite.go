package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/splitlab/splitlab/internal/experiment"
)

// SQLite persists experiments, assignments and conversions in a single
// embedded database file.
type SQLite struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    variants TEXT NOT NULL,
    metrics TEXT NOT NULL,
    config TEXT NOT NULL,
    results TEXT,
    started_at INTEGER,
    ended_at INTEGER,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status);

CREATE TABLE IF NOT EXISTS assignments (
    experiment_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    attributes TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    PRIMARY KEY (experiment_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_assignments_variant ON assignments(experiment_id, variant_id);

CREATE TABLE IF NOT EXISTS conversions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    experiment_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    value REAL NOT NULL DEFAULT 0,
    attributes TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_conversions_variant ON conversions(experiment_id, variant_id);
`

// Open opens (creating if necessary) the SQLite database at dbPath.
func Open(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle for health checks.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) SaveExperiment(ctx context.Context, e *experiment.Experiment) error {
	variantsJSON, err := json.Marshal(e.Variants)
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}
	metricsJSON, err := json.Marshal(e.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	configJSON, err := json.Marshal(e.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var resultsJSON sql.NullString
	if e.Results != nil {
		b, err := json.Marshal(e.Results)
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		resultsJSON = sql.NullString{String: string(b), Valid: true}
	}

	now := time.Now().Unix()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Unix(now, 0)
	}
	e.UpdatedAt = time.Unix(now, 0)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, description, type, status, variants, metrics, config, results, started_at, ended_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   type = excluded.type,
		   status = excluded.status,
		   variants = excluded.variants,
		   metrics = excluded.metrics,
		   config = excluded.config,
		   results = excluded.results,
		   started_at = excluded.started_at,
		   ended_at = excluded.ended_at,
		   updated_at = excluded.updated_at`,
		e.ID, e.Name, e.Description, string(e.Type), string(e.Status),
		string(variantsJSON), string(metricsJSON), string(configJSON), resultsJSON,
		nullableUnix(e.StartedAt), nullableUnix(e.EndedAt), e.CreatedAt.Unix(), now,
	)
	if err != nil {
		return fmt.Errorf("failed to save experiment: %w", err)
	}

	return nil
}

const experimentColumns = `id, name, description, type, status, variants, metrics, config, results, started_at, ended_at, created_at, updated_at`

func (s *SQLite) LoadExperiment(ctx context.Context, id string) (*experiment.Experiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE id = ?`, id)

	e, err := scanExperiment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load experiment: %w", err)
	}
	return e, nil
}

func (s *SQLite) ListExperiments(ctx context.Context, statuses ...experiment.Status) ([]*experiment.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments`
	var args []any
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var experiments []*experiment.Experiment
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		experiments = append(experiments, e)
	}
	return experiments, rows.Err()
}

func (s *SQLite) DeleteExperiment(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversions WHERE experiment_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversions: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE experiment_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM experiments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) GetAssignment(ctx context.Context, experimentID, userID string) (*experiment.Assignment, error) {
	var a experiment.Assignment
	var attrsJSON sql.NullString
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT experiment_id, user_id, variant_id, attributes, created_at
		 FROM assignments WHERE experiment_id = ? AND user_id = ?`,
		experimentID, userID,
	).Scan(&a.ExperimentID, &a.UserID, &a.VariantID, &attrsJSON, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if attrsJSON.Valid && attrsJSON.String != "" {
		if err := json.Unmarshal([]byte(attrsJSON.String), &a.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}
	a.CreatedAt = time.Unix(createdAt, 0)
	return &a, nil
}

// GetOrCreateAssignment inserts the assignment unless one already exists for
// (experiment, user). The primary key makes concurrent first assignments
// converge: losers re-read the stored winner.
func (s *SQLite) GetOrCreateAssignment(ctx context.Context, a experiment.Assignment) (*experiment.Assignment, bool, error) {
	var attrsJSON sql.NullString
	if len(a.Attributes) > 0 {
		b, err := json.Marshal(a.Attributes)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal attributes: %w", err)
		}
		attrsJSON = sql.NullString{String: string(b), Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO assignments (experiment_id, user_id, variant_id, attributes, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.ExperimentID, a.UserID, a.VariantID, attrsJSON, time.Now().Unix(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record assignment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	stored, err := s.GetAssignment(ctx, a.ExperimentID, a.UserID)
	if err != nil {
		return nil, false, err
	}
	return stored, affected > 0, nil
}

func (s *SQLite) AppendConversion(ctx context.Context, c experiment.Conversion) error {
	var attrsJSON sql.NullString
	if len(c.Attributes) > 0 {
		b, err := json.Marshal(c.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal attributes: %w", err)
		}
		attrsJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (experiment_id, variant_id, user_id, value, attributes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ExperimentID, c.VariantID, c.UserID, c.Value, attrsJSON, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append conversion: %w", err)
	}
	return nil
}

func (s *SQLite) QueryVariantAggregates(ctx context.Context, experimentID, variantID string, filter *experiment.SegmentFilter) (experiment.Aggregate, error) {
	agg := experiment.Aggregate{VariantID: variantID}

	sampleQuery := `SELECT COUNT(*) FROM assignments WHERE experiment_id = ? AND variant_id = ?`
	sampleArgs := []any{experimentID, variantID}
	convQuery := `
		SELECT COUNT(DISTINCT user_id), COALESCE(SUM(value), 0), COALESCE(SUM(value * value), 0)
		FROM conversions WHERE experiment_id = ? AND variant_id = ?`
	convArgs := []any{experimentID, variantID}

	if filter != nil {
		clause := ` AND json_extract(attributes, '$.' || ?) = ?`
		sampleQuery += clause
		sampleArgs = append(sampleArgs, filter.Dimension, filter.Value)
		convQuery += clause
		convArgs = append(convArgs, filter.Dimension, filter.Value)
	}

	if err := s.db.QueryRowContext(ctx, sampleQuery, sampleArgs...).Scan(&agg.SampleSize); err != nil {
		return agg, fmt.Errorf("failed to count samples: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, convQuery, convArgs...).Scan(&agg.Conversions, &agg.TotalValue, &agg.SumSquares); err != nil {
		return agg, fmt.Errorf("failed to aggregate conversions: %w", err)
	}
	return agg, nil
}

func (s *SQLite) SegmentValues(ctx context.Context, experimentID, dimension string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT json_extract(attributes, '$.' || ?) AS v
		FROM assignments
		WHERE experiment_id = ? AND json_extract(attributes, '$.' || ?) IS NOT NULL
		ORDER BY v`, dimension, experimentID, dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to query segment values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan segment value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func scanExperiment(row interface{ Scan(...any) error }) (*experiment.Experiment, error) {
	var e experiment.Experiment
	var variantsJSON, metricsJSON, configJSON string
	var resultsJSON sql.NullString
	var startedAt, endedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&e.ID, &e.Name, &e.Description, (*string)(&e.Type), (*string)(&e.Status),
		&variantsJSON, &metricsJSON, &configJSON, &resultsJSON, &startedAt, &endedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(variantsJSON), &e.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &e.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(configJSON), &e.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if resultsJSON.Valid && resultsJSON.String != "" {
		if err := json.Unmarshal([]byte(resultsJSON.String), &e.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}

	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0)
		e.StartedAt = &t
	}
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0)
		e.EndedAt = &t
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	e.UpdatedAt = time.Unix(updatedAt, 0)

	return &e, nil
}

func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
