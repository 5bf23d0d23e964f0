package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"

	"kanban/internal/models"
	"kanban/internal/storage"
)

const defaultTimeout = 5 * time.Second

// Store is the local board backend: list documents in a single SQLite file.
type Store struct {
	db      *sql.DB
	lock    *flock.Flock
	logger  *slog.Logger
	timeout time.Duration
}

// Option customises a Store.
type Option func(*Store)

// WithTimeout bounds every backend call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

var _ storage.Backend = (*Store)(nil)

// Open initializes the SQLite backend and runs the required migrations.
// A lock file next to the database keeps a second process from opening it.
func Open(dbPath string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Store{logger: logger, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(s)
	}

	if dbPath != ":memory:" {
		if err := ensureDir(dbPath); err != nil {
			return nil, err
		}
		s.lock = flock.New(dbPath + ".lock")
		locked, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock database: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("database %s is in use by another process", dbPath)
		}
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath))
	if err != nil {
		s.unlock()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s.db = conn
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		s.unlock()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources and the process lock.
func (s *Store) Close() error {
	defer s.unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) unlock() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("release database lock", slog.String("error", err.Error()))
	}
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lists (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            name TEXT NOT NULL,
            projects TEXT NOT NULL DEFAULT '[]',
            created_at INTEGER NOT NULL DEFAULT 0,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(user_id, id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_lists_user ON lists(user_id);`,
		`CREATE TRIGGER IF NOT EXISTS trg_lists_updated
            AFTER UPDATE OF name, projects ON lists
            FOR EACH ROW BEGIN
                UPDATE lists SET updated_at = CURRENT_TIMESTAMP WHERE seq = OLD.seq;
            END;`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
}

// GetAll returns the user's live list documents in creation order.
func (s *Store) GetAll(ctx context.Context, userID string) ([]models.ListDocument, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	userID = storage.UserOrLocal(userID)
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, name, projects, created_at
        FROM lists WHERE user_id = ? AND name <> ? ORDER BY created_at, seq`, userID, storage.DeletedSentinel)
	if err != nil {
		return nil, unavailable("list documents", err)
	}
	defer rows.Close()

	var docs []models.ListDocument
	for rows.Next() {
		var (
			doc      models.ListDocument
			projects string
		)
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Name, &projects, &doc.CreatedAt); err != nil {
			return nil, unavailable("scan document", err)
		}
		if err := json.Unmarshal([]byte(projects), &doc.Projects); err != nil {
			return nil, fmt.Errorf("decode projects of list %s: %w", doc.ID, err)
		}
		if doc.Projects == nil {
			doc.Projects = []models.ProjectDocument{}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list documents", err)
	}
	return docs, nil
}

// Put inserts or replaces a list document.
func (s *Store) Put(ctx context.Context, doc models.ListDocument) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	projects, err := encodeProjects(doc.Projects)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO lists(id, user_id, name, projects, created_at) VALUES(?, ?, ?, ?, ?)
        ON CONFLICT(user_id, id) DO UPDATE SET name = excluded.name, projects = excluded.projects, created_at = excluded.created_at`,
		doc.ID, storage.UserOrLocal(doc.UserID), doc.Name, projects, doc.CreatedAt)
	if err != nil {
		return unavailable("put document", err)
	}
	s.logger.Debug("list document stored", slog.String("list", doc.ID), slog.String("user", doc.UserID))
	return nil
}

// Patch overwrites the named fields of an existing document.
func (s *Store) Patch(ctx context.Context, userID, listID string, patch storage.ListPatch) error {
	if patch.Empty() {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Projects != nil {
		projects, err := encodeProjects(*patch.Projects)
		if err != nil {
			return err
		}
		sets = append(sets, "projects = ?")
		args = append(args, projects)
	}
	args = append(args, storage.UserOrLocal(userID), listID)

	res, err := s.db.ExecContext(ctx, `UPDATE lists SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND id = ?`, args...)
	if err != nil {
		return unavailable("patch document", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("patch document", err)
	}
	if affected == 0 {
		return fmt.Errorf("list %s: %w", listID, storage.ErrNotFound)
	}
	return nil
}

func encodeProjects(projects []models.ProjectDocument) (string, error) {
	if projects == nil {
		projects = []models.ProjectDocument{}
	}
	data, err := json.Marshal(projects)
	if err != nil {
		return "", fmt.Errorf("encode projects: %w", err)
	}
	return string(data), nil
}
