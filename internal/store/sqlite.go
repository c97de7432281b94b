package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

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
	// preventing "database is locked" errors.
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

// --- Credentials ---

func (s *SQLiteStore) SetCredential(ctx context.Context, kind CredentialKind, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (kind, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(kind), value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set credential %s: %w", kind, err)
	}
	return nil
}

func (s *SQLiteStore) GetCredential(ctx context.Context, kind CredentialKind) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE kind = ?`, string(kind),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("credential %s: %w", kind, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get credential %s: %w", kind, err)
	}
	return value, nil
}

// --- Session handles ---

func (s *SQLiteStore) SaveSessionHandle(ctx context.Context, repoFullName string, issueNumber int, sessionID string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_handles (id, repo_full_name, issue_number, session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_full_name, issue_number) DO UPDATE SET session_id = excluded.session_id, updated_at = excluded.updated_at`,
		newULID(), repoFullName, issueNumber, sessionID, now, now,
	)
	if err != nil {
		return fmt.Errorf("save session handle: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSessionHandle(ctx context.Context, repoFullName string, issueNumber int) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id FROM session_handles WHERE repo_full_name = ? AND issue_number = ?`,
		repoFullName, issueNumber,
	).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("session handle %s#%d: %w", repoFullName, issueNumber, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get session handle: %w", err)
	}
	return sessionID, nil
}

func (s *SQLiteStore) ListSessionHandles(ctx context.Context, repoFullName string) ([]*SessionHandle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, repo_full_name, issue_number, session_id, created_at, updated_at
		FROM session_handles WHERE repo_full_name = ? ORDER BY issue_number`,
		repoFullName,
	)
	if err != nil {
		return nil, fmt.Errorf("list session handles: %w", err)
	}
	defer rows.Close()

	var handles []*SessionHandle
	for rows.Next() {
		h := &SessionHandle{}
		if err := rows.Scan(&h.ID, &h.RepoFullName, &h.IssueNumber, &h.SessionID, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session handle: %w", err)
		}
		handles = append(handles, h)
	}
	return handles, rows.Err()
}

func (s *SQLiteStore) DeleteSessionHandle(ctx context.Context, repoFullName string, issueNumber int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_handles WHERE repo_full_name = ? AND issue_number = ?`,
		repoFullName, issueNumber,
	)
	if err != nil {
		return fmt.Errorf("delete session handle: %w", err)
	}
	return nil
}
