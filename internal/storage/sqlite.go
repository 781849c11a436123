// Package storage persists experiment runs in a SQLite database so
// past evaluations can be listed and compared.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kestrel/textreg/internal/resample"
)

// ErrRunNotFound is returned when a run ID has no stored row.
var ErrRunNotFound = errors.New("run not found")

// Run is a persisted evaluation or grid-search run.
type Run struct {
	ID                string           `json:"id"`
	Kind              string           `json:"kind"` // evaluate, grid
	CreatedAt         time.Time        `json:"created_at"`
	CorpusFingerprint string           `json:"corpus_fingerprint"`
	CorpusSize        int              `json:"corpus_size"`
	ConfigJSON        string           `json:"config_json"`
	PipelineName      string           `json:"pipeline_name"`
	ModelName         string           `json:"model_name"`
	Selected          string           `json:"selected,omitempty"` // grid runs: chosen config name
	Report            *resample.Report `json:"report,omitempty"`
}

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates the run store at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			corpus_fingerprint TEXT NOT NULL,
			corpus_size INTEGER NOT NULL,
			config_json TEXT NOT NULL,
			pipeline_name TEXT NOT NULL,
			model_name TEXT NOT NULL,
			selected TEXT
		);

		CREATE TABLE IF NOT EXISTS fold_metrics (
			run_id TEXT NOT NULL REFERENCES runs(id),
			fold INTEGER NOT NULL,
			metric TEXT NOT NULL,
			estimate REAL NOT NULL,
			PRIMARY KEY (run_id, fold, metric)
		);

		CREATE TABLE IF NOT EXISTS overall_metrics (
			run_id TEXT NOT NULL REFERENCES runs(id),
			metric TEXT NOT NULL,
			mean REAL NOT NULL,
			std_err REAL NOT NULL,
			folds INTEGER NOT NULL,
			PRIMARY KEY (run_id, metric)
		);

		CREATE TABLE IF NOT EXISTS excluded_folds (
			run_id TEXT NOT NULL REFERENCES runs(id),
			fold INTEGER NOT NULL,
			reason TEXT NOT NULL,
			PRIMARY KEY (run_id, fold)
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRun persists a run and its report, returning the generated run ID.
func (d *DB) SaveRun(run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := d.db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, kind, created_at, corpus_fingerprint, corpus_size,
			config_json, pipeline_name, model_name, selected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.CreatedAt.Unix(), run.CorpusFingerprint, run.CorpusSize,
		run.ConfigJSON, run.PipelineName, run.ModelName, run.Selected)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	if run.Report != nil {
		if err := insertReport(tx, run.ID, run.Report); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}

func insertReport(tx *sql.Tx, runID string, report *resample.Report) error {
	foldStmt, err := tx.Prepare(`INSERT INTO fold_metrics (run_id, fold, metric, estimate) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing fold insert: %w", err)
	}
	defer foldStmt.Close()

	for _, fr := range report.PerFold {
		for metric, estimate := range fr.Metrics {
			if _, err := foldStmt.Exec(runID, fr.Fold, metric, estimate); err != nil {
				return fmt.Errorf("inserting fold %d metric %s: %w", fr.Fold, metric, err)
			}
		}
	}

	for _, s := range report.Overall {
		_, err := tx.Exec(`INSERT INTO overall_metrics (run_id, metric, mean, std_err, folds) VALUES (?, ?, ?, ?, ?)`,
			runID, s.Metric, s.Mean, s.StdErr, s.Folds)
		if err != nil {
			return fmt.Errorf("inserting overall metric %s: %w", s.Metric, err)
		}
	}

	for _, ex := range report.Excluded {
		_, err := tx.Exec(`INSERT INTO excluded_folds (run_id, fold, reason) VALUES (?, ?, ?)`,
			runID, ex.Fold, ex.Reason)
		if err != nil {
			return fmt.Errorf("inserting exclusion for fold %d: %w", ex.Fold, err)
		}
	}
	return nil
}

// ListRuns returns runs newest first, without their reports.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.Query(`
		SELECT id, kind, created_at, corpus_fingerprint, corpus_size,
			config_json, pipeline_name, model_name, COALESCE(selected, '')
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads one run with its full report.
func (d *DB) GetRun(id string) (*Run, error) {
	row := d.db.QueryRow(`
		SELECT id, kind, created_at, corpus_fingerprint, corpus_size,
			config_json, pipeline_name, model_name, COALESCE(selected, '')
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	report, err := d.loadReport(id)
	if err != nil {
		return nil, err
	}
	run.Report = report
	return &run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var createdAt int64
	err := row.Scan(&run.ID, &run.Kind, &createdAt, &run.CorpusFingerprint, &run.CorpusSize,
		&run.ConfigJSON, &run.PipelineName, &run.ModelName, &run.Selected)
	if err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.Unix(createdAt, 0)
	return run, nil
}

func (d *DB) loadReport(runID string) (*resample.Report, error) {
	report := &resample.Report{}

	rows, err := d.db.Query(`SELECT fold, metric, estimate FROM fold_metrics WHERE run_id = ? ORDER BY fold, metric`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading fold metrics: %w", err)
	}
	defer rows.Close()

	byFold := make(map[int]map[string]float64)
	var foldOrder []int
	for rows.Next() {
		var fold int
		var metric string
		var estimate float64
		if err := rows.Scan(&fold, &metric, &estimate); err != nil {
			return nil, err
		}
		if byFold[fold] == nil {
			byFold[fold] = make(map[string]float64)
			foldOrder = append(foldOrder, fold)
		}
		byFold[fold][metric] = estimate
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, fold := range foldOrder {
		report.PerFold = append(report.PerFold, resample.FoldResult{Fold: fold, Metrics: byFold[fold]})
	}

	overall, err := d.db.Query(`SELECT metric, mean, std_err, folds FROM overall_metrics WHERE run_id = ? ORDER BY metric`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading overall metrics: %w", err)
	}
	defer overall.Close()
	for overall.Next() {
		var s resample.Summary
		if err := overall.Scan(&s.Metric, &s.Mean, &s.StdErr, &s.Folds); err != nil {
			return nil, err
		}
		report.Overall = append(report.Overall, s)
	}
	if err := overall.Err(); err != nil {
		return nil, err
	}

	excluded, err := d.db.Query(`SELECT fold, reason FROM excluded_folds WHERE run_id = ? ORDER BY fold`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading exclusions: %w", err)
	}
	defer excluded.Close()
	for excluded.Next() {
		var ex resample.ExcludedFold
		if err := excluded.Scan(&ex.Fold, &ex.Reason); err != nil {
			return nil, err
		}
		report.Excluded = append(report.Excluded, ex)
	}
	return report, excluded.Err()
}

// MarshalConfig renders any config value as the JSON stored on a run.
func MarshalConfig(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return string(data), nil
}
