package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/junior/internal/models"

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

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent jobs.
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

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
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

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

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

// RecordOutcome inserts one terminal outcome for the subject.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, subject models.ReviewSubject, outcome models.Outcome) error {
	var (
		recommendation models.Recommendation
		findingCount   int
		resultJSON     string
	)
	if outcome.Result != nil {
		recommendation = outcome.Result.Recommendation
		findingCount = len(outcome.Result.Findings)
		data, err := json.Marshal(outcome.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO reviews
		(id, host, repo, number, head_sha, outcome, recommendation, finding_count, reason, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newULID(), subject.Host, subject.Repo, subject.Number, subject.HeadSHA,
		string(outcome.Kind), string(recommendation), findingCount, outcome.Reason, resultJSON,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// LookupOutcome returns the most recent outcome recorded for the exact
// subject (including commit), or nil when the commit was never reviewed.
func (s *SQLiteStore) LookupOutcome(ctx context.Context, subject models.ReviewSubject) (*models.Outcome, error) {
	row := s.db.QueryRowContext(ctx, `SELECT outcome, reason, result_json FROM reviews
		WHERE host = ? AND repo = ? AND number = ? AND head_sha = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		subject.Host, subject.Repo, subject.Number, subject.HeadSHA)

	var kind, reason, resultJSON string
	if err := row.Scan(&kind, &reason, &resultJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup review: %w", err)
	}

	outcome := &models.Outcome{Kind: models.OutcomeKind(kind), Reason: reason}
	if resultJSON != "" {
		var result models.ReviewResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		outcome.Result = &result
	}
	return outcome, nil
}

const recordColumns = `id, host, repo, number, head_sha, outcome, recommendation, finding_count, reason, result_json, created_at`

func scanRecord(row interface{ Scan(...any) error }) (*ReviewRecord, error) {
	var (
		rec            ReviewRecord
		outcome        string
		recommendation string
		resultJSON     string
		createdAt      string
	)
	if err := row.Scan(&rec.ID, &rec.Host, &rec.Repo, &rec.Number, &rec.HeadSHA,
		&outcome, &recommendation, &rec.FindingCount, &rec.Reason, &resultJSON, &createdAt); err != nil {
		return nil, err
	}
	rec.Outcome = models.OutcomeKind(outcome)
	rec.Recommendation = models.Recommendation(recommendation)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if resultJSON != "" {
		var result models.ReviewResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		rec.Result = &result
	}
	return &rec, nil
}

// ListReviews returns recent records, newest first, optionally filtered by
// repository. limit <= 0 means 50.
func (s *SQLiteStore) ListReviews(ctx context.Context, repo string, limit int) ([]*ReviewRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + recordColumns + ` FROM reviews`
	args := []any{}
	if repo != "" {
		query += ` WHERE repo = ?`
		args = append(args, repo)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var records []*ReviewRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetReview returns one record by ID, or an error containing "not found".
func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*ReviewRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM reviews WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("review not found: %s", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rec, nil
}
