// Package journal records optimizer runs in a SQLite database so successive
// runs over the same assembly can be compared.
package journal

import (
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/chazu/inliner/optimizer"
)

// ErrRunNotFound indicates the requested run doesn't exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded optimizer invocation.
type Run struct {
	ID                 string
	Started            time.Time
	Input              string
	Output             string
	Assembly           string
	Methods            int
	Inlined            int
	InstructionsBefore int
	InstructionsAfter  int
	Passes             map[string]int
}

// NewRun builds a Run from optimizer counters with a fresh ID.
func NewRun(input, output, assembly string, started time.Time, stats optimizer.Stats) *Run {
	passes := make(map[string]int, len(stats.Passes))
	for name, n := range stats.Passes {
		passes[name] = n
	}
	return &Run{
		ID:                 uuid.NewString(),
		Started:            started.UTC(),
		Input:              input,
		Output:             output,
		Assembly:           assembly,
		Methods:            stats.Methods,
		Inlined:            stats.Inlined,
		InstructionsBefore: stats.InstructionsBefore,
		InstructionsAfter:  stats.InstructionsAfter,
		Passes:             passes,
	}
}

// Journal handles SQLite storage for runs.
type Journal struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started INTEGER NOT NULL,
	input TEXT NOT NULL,
	output TEXT NOT NULL,
	assembly TEXT NOT NULL,
	methods INTEGER NOT NULL,
	inlined INTEGER NOT NULL,
	instructions_before INTEGER NOT NULL,
	instructions_after INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS pass_counts (
	run_id TEXT NOT NULL REFERENCES runs(id),
	pass TEXT NOT NULL,
	fired INTEGER NOT NULL,
	PRIMARY KEY (run_id, pass)
);`

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening journal")
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "setting busy timeout")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating tables")
	}

	return &Journal{db: db, path: path}, nil
}

// Path returns the database file the journal was opened on.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record stores a run and its per-pass counts in one transaction.
func (j *Journal) Record(r *Run) error {
	if r == nil || r.ID == "" {
		return errors.New("recording run: missing id")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		return errors.Wrap(err, "recording run")
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, started, input, output, assembly, methods, inlined,
			instructions_before, instructions_after) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Started.UnixNano(), r.Input, r.Output, r.Assembly,
		r.Methods, r.Inlined, r.InstructionsBefore, r.InstructionsAfter,
	)
	if err != nil {
		return errors.Wrap(err, "inserting run")
	}

	for name, n := range r.Passes {
		if _, err := tx.Exec("INSERT INTO pass_counts (run_id, pass, fired) VALUES (?, ?, ?)", r.ID, name, n); err != nil {
			return errors.Wrapf(err, "inserting count for %s", name)
		}
	}

	return errors.Wrap(tx.Commit(), "committing run")
}

// Get retrieves one run by ID.
func (j *Journal) Get(id string) (*Run, error) {
	row := j.db.QueryRow(
		`SELECT id, started, input, output, assembly, methods, inlined,
			instructions_before, instructions_after FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, errors.Wrap(err, "querying run")
	}
	if r.Passes, err = j.PassCounts(id); err != nil {
		return nil, err
	}
	return r, nil
}

// Runs returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (j *Journal) Runs(limit int) ([]*Run, error) {
	query := `SELECT id, started, input, output, assembly, methods, inlined,
		instructions_before, instructions_after FROM runs ORDER BY started DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}

	for _, r := range runs {
		if r.Passes, err = j.PassCounts(r.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// PassCounts returns how often each pass fired during the given run.
func (j *Journal) PassCounts(id string) (map[string]int, error) {
	rows, err := j.db.Query("SELECT pass, fired FROM pass_counts WHERE run_id = ?", id)
	if err != nil {
		return nil, errors.Wrap(err, "querying pass counts")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, errors.Wrap(err, "scanning pass count")
		}
		counts[name] = n
	}
	return counts, errors.Wrap(rows.Err(), "querying pass counts")
}

// Totals sums pass counts over every recorded run.
func (j *Journal) Totals() (map[string]int, error) {
	rows, err := j.db.Query("SELECT pass, SUM(fired) FROM pass_counts GROUP BY pass")
	if err != nil {
		return nil, errors.Wrap(err, "summing pass counts")
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, errors.Wrap(err, "scanning pass total")
		}
		totals[name] = n
	}
	return totals, errors.Wrap(rows.Err(), "summing pass counts")
}

// PassNames returns the names in counts, sorted.
func PassNames(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var started int64
	err := s.Scan(&r.ID, &started, &r.Input, &r.Output, &r.Assembly,
		&r.Methods, &r.Inlined, &r.InstructionsBefore, &r.InstructionsAfter)
	if err != nil {
		return nil, err
	}
	r.Started = time.Unix(0, started).UTC()
	return &r, nil
}
