package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/mergeq/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = newULID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("encode run stats: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, repo, dry_run, stats, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Repo, boolToInt(run.DryRun), string(statsJSON), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, id string, stats models.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode run stats: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stats = ?, finished_at = ? WHERE id = ?`,
		string(statsJSON), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

const runColumns = `id, repo, dry_run, stats, started_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (*models.Run, error) {
	run := &models.Run{}
	var statsJSON string
	var finishedAt sql.NullTime
	if err := row.Scan(&run.ID, &run.Repo, &run.DryRun, &statsJSON, &run.StartedAt, &finishedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return nil, fmt.Errorf("decode stats of run %s: %w", run.ID, err)
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- PR Results ---

func (s *SQLiteStore) RecordPRResult(ctx context.Context, r *models.PRResult) error {
	if r.ID == "" {
		r.ID = newULID()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pr_results (id, run_id, number, title, outcome, reason, approvals, total_opinions, confidence, merge_strategy, conflicts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RunID, r.Number, r.Title, string(r.Outcome), r.Reason,
		r.Approvals, r.TotalOpinions, r.Confidence, r.MergeStrategy, r.Conflicts, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record PR result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListPRResults(ctx context.Context, runID string) ([]*models.PRResult, error) {
	return s.scanPRResults(ctx, `SELECT `+prResultColumns+` FROM pr_results WHERE run_id = ? ORDER BY created_at, rowid`, runID)
}

func (s *SQLiteStore) ListPRHistory(ctx context.Context, number int) ([]*models.PRResult, error) {
	return s.scanPRResults(ctx, `SELECT `+prResultColumns+` FROM pr_results WHERE number = ? ORDER BY created_at DESC, rowid DESC`, number)
}

const prResultColumns = `id, run_id, number, title, outcome, reason, approvals, total_opinions, confidence, merge_strategy, conflicts, created_at`

func (s *SQLiteStore) scanPRResults(ctx context.Context, query string, args ...any) ([]*models.PRResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list PR results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*models.PRResult
	for rows.Next() {
		r := &models.PRResult{}
		var outcome string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Number, &r.Title, &outcome, &r.Reason,
			&r.Approvals, &r.TotalOpinions, &r.Confidence, &r.MergeStrategy, &r.Conflicts, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan PR result: %w", err)
		}
		r.Outcome = models.PROutcome(outcome)
		results = append(results, r)
	}
	return results, rows.Err()
}
