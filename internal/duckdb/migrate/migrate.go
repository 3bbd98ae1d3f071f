// Package migrate applies the embedded history schema to a DuckDB database.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var files embed.FS

// Step is one versioned schema change, named NNN_description.sql.
type Step struct {
	Version int
	Name    string
	SQL     string
}

// Runner applies pending steps in version order and records each one in
// schema_migrations.
type Runner struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// NewRunner creates a runner for db.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, log: logrus.WithField("component", "migrate")}
}

// Steps returns the embedded steps sorted by version.
func Steps() ([]Step, error) {
	entries, err := fs.ReadDir(files, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}
	steps := make([]Step, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version prefix: %w", name, err)
		}
		body, err := files.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		steps = append(steps, Step{Version: version, Name: name, SQL: string(body)})
	}
	slices.SortFunc(steps, func(a, b Step) int { return a.Version - b.Version })
	return steps, nil
}

func (r *Runner) ensureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT current_timestamp
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// Version returns the highest applied version, 0 for a fresh database.
func (r *Runner) Version(ctx context.Context) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, err
	}
	var v sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// Pending returns the steps newer than the applied version.
func (r *Runner) Pending(ctx context.Context) ([]Step, error) {
	current, err := r.Version(ctx)
	if err != nil {
		return nil, err
	}
	steps, err := Steps()
	if err != nil {
		return nil, err
	}
	var pending []Step
	for _, s := range steps {
		if s.Version > current {
			pending = append(pending, s)
		}
	}
	return pending, nil
}

// Run applies every pending step, each in its own transaction.
func (r *Runner) Run() error {
	return r.RunContext(context.Background())
}

// RunContext is Run with a caller-supplied context.
func (r *Runner) RunContext(ctx context.Context) error {
	pending, err := r.Pending(ctx)
	if err != nil {
		return err
	}
	for _, s := range pending {
		if err := r.apply(ctx, s); err != nil {
			return err
		}
		r.log.WithField("version", s.Version).Debugf("applied %s", s.Name)
	}
	return nil
}

func (r *Runner) apply(ctx context.Context, s Step) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: begin: %w", s.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.SQL); err != nil {
		return fmt.Errorf("migration %s: %w", s.Name, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES (?, ?)", s.Version, s.Name); err != nil {
		return fmt.Errorf("migration %s: record: %w", s.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %s: commit: %w", s.Name, err)
	}
	return nil
}
