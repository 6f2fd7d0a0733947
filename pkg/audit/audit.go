// Package audit keeps an append-only SQLite log of evaluation decisions.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/codeGROOVE-dev/sivaguard/pkg/graph"
)

// FileName is the database file created inside the audit directory.
const FileName = "audit.db"

// Entry is one audited evaluation.
type Entry struct {
	CreatedAt        time.Time     `json:"created_at"`
	ID               string        `json:"id"`
	Action           string        `json:"action"`
	Reasons          []string      `json:"reasons"`
	Errors           []string      `json:"errors,omitempty"`
	Metrics          graph.Metrics `json:"metrics"`
	SubstitutionRisk float64       `json:"substitution_risk"`
	AuthenticityRisk float64       `json:"authenticity_risk"`
	OverallRisk      float64       `json:"overall_risk"`
	Confidence       float64       `json:"confidence"`
}

// Log is a SQLite-backed audit log.
type Log struct {
	db   *sql.DB
	path string
}

// Open opens or creates the audit database inside dir.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	path := filepath.Join(dir, FileName)

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	l := &Log{db: db, path: path}
	if err := l.createTables(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return l, nil
}

// Path returns the database file path.
func (l *Log) Path() string { return l.path }

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) createTables(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS evaluations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		action TEXT NOT NULL,
		substitution_risk REAL NOT NULL,
		authenticity_risk REAL NOT NULL,
		overall_risk REAL NOT NULL,
		confidence REAL NOT NULL,
		reasons_json TEXT NOT NULL,
		metrics_json TEXT NOT NULL,
		errors_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at);
	CREATE INDEX IF NOT EXISTS idx_evaluations_action ON evaluations(action);
	`
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

// Record appends e to the log.
func (l *Log) Record(ctx context.Context, e Entry) error {
	reasons, err := json.Marshal(nonNil(e.Reasons))
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}
	metrics, err := json.Marshal(e.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	errs, err := json.Marshal(nonNil(e.Errors))
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}

	const query = `
	INSERT INTO evaluations (id, created_at, action, substitution_risk, authenticity_risk,
		overall_risk, confidence, reasons_json, metrics_json, errors_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = l.db.ExecContext(ctx, query,
		e.ID, e.CreatedAt.UTC().Format(time.RFC3339Nano), e.Action,
		e.SubstitutionRisk, e.AuthenticityRisk, e.OverallRisk, e.Confidence,
		string(reasons), string(metrics), string(errs))
	if err != nil {
		return fmt.Errorf("insert evaluation %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	const query = `
	SELECT id, created_at, action, substitution_risk, authenticity_risk,
		overall_risk, confidence, reasons_json, metrics_json, errors_json
	FROM evaluations ORDER BY seq DESC LIMIT ?`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var out []Entry
	for rows.Next() {
		var (
			e                        Entry
			created                  string
			reasons, metrics, errors string
		)
		if err := rows.Scan(&e.ID, &created, &e.Action, &e.SubstitutionRisk, &e.AuthenticityRisk,
			&e.OverallRisk, &e.Confidence, &reasons, &metrics, &errors); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		if err := json.Unmarshal([]byte(reasons), &e.Reasons); err != nil {
			return nil, fmt.Errorf("decode reasons: %w", err)
		}
		if err := json.Unmarshal([]byte(metrics), &e.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics: %w", err)
		}
		if err := json.Unmarshal([]byte(errors), &e.Errors); err != nil {
			return nil, fmt.Errorf("decode errors: %w", err)
		}
		if len(e.Errors) == 0 {
			e.Errors = nil
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
