package solutions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a solution id does not exist.
var ErrNotFound = errors.New("solution not found")

// partialPrefixLen bounds the normalized-error prefix used for
// substring fallback matching.
const partialPrefixLen = 100

const schema = `
CREATE TABLE IF NOT EXISTS solutions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	error_message    TEXT NOT NULL,
	solution_text    TEXT NOT NULL,
	timestamp        TEXT NOT NULL,
	error_clean      TEXT NOT NULL,
	confidence_score REAL DEFAULT 1.0,
	success_count    INTEGER DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_solutions_error_clean ON solutions(error_clean);
`

// Store persists solutions in a SQLite database. One store backs one
// scope; personal and team scopes use separate database files.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	path   string
}

// OpenStore opens or creates the solutions database at path, applying
// pragmas and the schema.
func OpenStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening solutions database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing solutions schema: %w", err)
	}

	return &Store{db: db, logger: logger, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Insert stores a new solution and returns its id.
func (s *Store) Insert(ctx context.Context, errorMessage, solutionText, errorClean string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO solutions (error_message, solution_text, timestamp, error_clean)
		 VALUES (?, ?, ?, ?)`,
		errorMessage, solutionText, time.Now().UTC().Format(time.RFC3339), errorClean)
	if err != nil {
		return 0, fmt.Errorf("inserting solution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading solution id: %w", err)
	}
	return id, nil
}

// Get returns the solution with the given id.
func (s *Store) Get(ctx context.Context, id int64) (Solution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, error_message, solution_text, timestamp, error_clean, confidence_score, success_count
		 FROM solutions WHERE id = ?`, id)
	sol, err := scanSolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Solution{}, ErrNotFound
	}
	return sol, err
}

// FindExact returns the solution whose normalized error equals
// errorClean, preferring the most successful and most recent.
func (s *Store) FindExact(ctx context.Context, errorClean string) (Solution, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, error_message, solution_text, timestamp, error_clean, confidence_score, success_count
		 FROM solutions WHERE error_clean = ?
		 ORDER BY success_count DESC, id DESC LIMIT 1`, errorClean)
	sol, err := scanSolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Solution{}, false, nil
	}
	if err != nil {
		return Solution{}, false, err
	}
	return sol, true, nil
}

// FindPartial returns a solution whose normalized error contains the
// first partialPrefixLen characters of errorClean.
func (s *Store) FindPartial(ctx context.Context, errorClean string) (Solution, bool, error) {
	prefix := errorClean
	if len(prefix) > partialPrefixLen {
		prefix = prefix[:partialPrefixLen]
	}
	if prefix == "" {
		return Solution{}, false, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, error_message, solution_text, timestamp, error_clean, confidence_score, success_count
		 FROM solutions WHERE error_clean LIKE ? ESCAPE '\'
		 ORDER BY success_count DESC, id DESC LIMIT 1`,
		"%"+escapeLike(prefix)+"%")
	sol, err := scanSolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Solution{}, false, nil
	}
	if err != nil {
		return Solution{}, false, err
	}
	return sol, true, nil
}

// All returns every stored solution in insertion order. Used to
// hydrate matchers at startup.
func (s *Store) All(ctx context.Context) ([]Solution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, error_message, solution_text, timestamp, error_clean, confidence_score, success_count
		 FROM solutions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing solutions: %w", err)
	}
	defer rows.Close()

	var out []Solution
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sol)
	}
	return out, rows.Err()
}

// List returns up to limit solutions, newest first. limit <= 0 means
// no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Solution, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, error_message, solution_text, timestamp, error_clean, confidence_score, success_count
		 FROM solutions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing solutions: %w", err)
	}
	defer rows.Close()

	var out []Solution
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sol)
	}
	return out, rows.Err()
}

// IncrementSuccess bumps the success counter for a solution.
func (s *Store) IncrementSuccess(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE solutions SET success_count = success_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("incrementing success count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a solution. Returns false when the id did not exist.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM solutions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting solution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of stored solutions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM solutions`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSolution(row rowScanner) (Solution, error) {
	var (
		sol Solution
		ts  string
	)
	err := row.Scan(&sol.ID, &sol.ErrorMessage, &sol.SolutionText, &ts,
		&sol.ErrorClean, &sol.ConfidenceScore, &sol.SuccessCount)
	if err != nil {
		return Solution{}, err
	}
	if parsed, perr := time.Parse(time.RFC3339, ts); perr == nil {
		sol.Timestamp = parsed
	}
	return sol, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
