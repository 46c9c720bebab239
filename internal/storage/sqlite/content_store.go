// Package sqlite provides a single-file content.Store backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/linkstash/internal/clock/system"
	"github.com/JakeFAU/linkstash/internal/content"
)

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS content_items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	url        TEXT    NOT NULL UNIQUE,
	title      TEXT,
	author     TEXT,
	body       TEXT,
	created_at INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS content_items_created_idx ON content_items (created_at DESC, id DESC)`,
}

// Open opens the database at path, applies pragmas and ensures the schema.
// A single connection is used so writers are serialized and ":memory:"
// databases stay shared.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage.sqlite.path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the content table and its listing index when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ContentStore implements content.Store on SQLite. Timestamps are stored as
// unix microseconds.
type ContentStore struct {
	db    *sql.DB
	clock content.Clock
}

// New opens path and returns a ready store.
func New(ctx context.Context, path string, clock content.Clock) (*ContentStore, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db, clock), nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sql.DB, clock content.Clock) *ContentStore {
	if clock == nil {
		clock = system.New()
	}
	return &ContentStore{db: db, clock: clock}
}

const selectColumns = `SELECT id, url, title, author, body, created_at FROM content_items`

// FindByURL returns the item owning canonicalURL.
func (s *ContentStore) FindByURL(ctx context.Context, canonicalURL string) (content.Item, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE url = ?`, canonicalURL)
	return scanItem(row)
}

// FindByID returns the item with the given id.
func (s *ContentStore) FindByID(ctx context.Context, id int64) (content.Item, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	return scanItem(row)
}

// Create inserts item. The creation time never goes below the newest stored
// row so insertion order and time order agree.
func (s *ContentStore) Create(ctx context.Context, item content.NewItem) (content.Item, error) {
	now := s.clock.Now().UTC().UnixMicro()
	row := s.db.QueryRowContext(ctx, `
INSERT INTO content_items (url, title, author, body, created_at)
VALUES (?, ?, ?, ?, MAX(?, (SELECT COALESCE(MAX(created_at), 0) FROM content_items)))
RETURNING id, created_at`,
		item.URL, nullString(item.Title), nullString(item.Author), nullString(item.Body), now)

	var (
		id        int64
		createdAt int64
	)
	if err := row.Scan(&id, &createdAt); err != nil {
		if isUniqueConstraint(err) {
			return content.Item{}, content.ErrDuplicateURL
		}
		return content.Item{}, fmt.Errorf("insert content: %w", err)
	}
	return content.Item{
		ID:        id,
		URL:       item.URL,
		Title:     content.NormalizeField(item.Title),
		Author:    content.NormalizeField(item.Author),
		Body:      content.NormalizeField(item.Body),
		CreatedAt: time.UnixMicro(createdAt).UTC(),
	}, nil
}

// List counts and pages the matching rows inside one read transaction.
func (s *ContentStore) List(ctx context.Context, params content.ListParams) (content.Page, error) {
	var (
		clauses []string
		args    []any
	)
	if params.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, params.Since.UTC().UnixMicro())
	}
	if params.Until != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, params.Until.UTC().UnixMicro())
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return content.Page{}, fmt.Errorf("begin list: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	page := content.Page{Items: []content.Item{}}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_items`+where, args...).Scan(&page.Total); err != nil {
		return content.Page{}, fmt.Errorf("count content: %w", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = -1
	}
	pageArgs := append(append([]any{}, args...), limit, params.Offset)
	rows, err := tx.QueryContext(ctx,
		selectColumns+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return content.Page{}, fmt.Errorf("list content: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return content.Page{}, err
		}
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return content.Page{}, fmt.Errorf("iterate content: %w", err)
	}
	return page, tx.Commit()
}

// Ping checks the database handle.
func (s *ContentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *ContentStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (content.Item, error) {
	var (
		item                content.Item
		title, author, body sql.NullString
		createdAt           int64
	)
	if err := row.Scan(&item.ID, &item.URL, &title, &author, &body, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return content.Item{}, content.ErrNotFound
		}
		return content.Item{}, fmt.Errorf("scan content: %w", err)
	}
	item.Title = fromNull(title)
	item.Author = fromNull(author)
	item.Body = fromNull(body)
	item.CreatedAt = time.UnixMicro(createdAt).UTC()
	return item, nil
}

func nullString(v *string) sql.NullString {
	v = content.NormalizeField(v)
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func fromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	out := v.String
	return &out
}

func isUniqueConstraint(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
