// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/linkstash/internal/clock/system"
	"github.com/JakeFAU/linkstash/internal/content"
)

const uniqueViolation = "23505"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for content rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
	Ping(context.Context) error
	Close()
}

// ContentStore implements content.Store on Postgres.
type ContentStore struct {
	pool  pool
	table string
	clock content.Clock
}

// NewContentStore connects to Postgres using cfg.
func NewContentStore(ctx context.Context, cfg Config, clock content.Clock) (*ContentStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewContentStoreWithPool(p, cfg.Table, clock)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewContentStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewContentStoreWithPool(p pool, table string, clock content.Clock) (*ContentStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "content_items"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if clock == nil {
		clock = system.New()
	}
	return &ContentStore{pool: p, table: table, clock: clock}, nil
}

// EnsureSchema creates the content table and listing index when missing.
func (s *ContentStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id         BIGSERIAL PRIMARY KEY,
	url        TEXT NOT NULL UNIQUE,
	title      TEXT,
	author     TEXT,
	body       TEXT,
	created_at TIMESTAMPTZ NOT NULL
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_idx ON %s (created_at DESC, id DESC)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *ContentStore) selectColumns() string {
	return fmt.Sprintf(`SELECT id, url, title, author, body, created_at FROM %s`, s.table)
}

// FindByURL returns the item owning canonicalURL.
func (s *ContentStore) FindByURL(ctx context.Context, canonicalURL string) (content.Item, error) {
	return scanItem(s.pool.QueryRow(ctx, s.selectColumns()+` WHERE url = $1`, canonicalURL))
}

// FindByID returns the item with the given id.
func (s *ContentStore) FindByID(ctx context.Context, id int64) (content.Item, error) {
	return scanItem(s.pool.QueryRow(ctx, s.selectColumns()+` WHERE id = $1`, id))
}

// Create inserts item and maps unique violations to content.ErrDuplicateURL.
func (s *ContentStore) Create(ctx context.Context, item content.NewItem) (content.Item, error) {
	query := fmt.Sprintf(`
INSERT INTO %[1]s (url, title, author, body, created_at)
VALUES ($1, $2, $3, $4, GREATEST($5, COALESCE((SELECT MAX(created_at) FROM %[1]s), $5)))
RETURNING id, created_at`, s.table)

	out := content.Item{
		URL:    item.URL,
		Title:  content.NormalizeField(item.Title),
		Author: content.NormalizeField(item.Author),
		Body:   content.NormalizeField(item.Body),
	}
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	err := s.pool.QueryRow(ctx, query, out.URL, out.Title, out.Author, out.Body, now).
		Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return content.Item{}, content.ErrDuplicateURL
		}
		return content.Item{}, fmt.Errorf("insert content: %w", err)
	}
	out.CreatedAt = out.CreatedAt.UTC()
	return out, nil
}

// List counts and pages the filtered set inside one repeatable-read
// snapshot so Total and Items agree.
func (s *ContentStore) List(ctx context.Context, params content.ListParams) (content.Page, error) {
	var (
		clauses []string
		args    []any
	)
	if params.Since != nil {
		args = append(args, params.Since.UTC())
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if params.Until != nil {
		args = append(args, params.Until.UTC())
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return content.Page{}, fmt.Errorf("begin list: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	page := content.Page{Items: []content.Item{}}
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table) + where
	if err := tx.QueryRow(ctx, countQuery, args...).Scan(&page.Total); err != nil {
		return content.Page{}, fmt.Errorf("count content: %w", err)
	}

	pageQuery := s.selectColumns() + where + ` ORDER BY created_at DESC, id DESC`
	pageArgs := append([]any{}, args...)
	if params.Limit > 0 {
		pageArgs = append(pageArgs, params.Limit)
		pageQuery += fmt.Sprintf(" LIMIT $%d", len(pageArgs))
	}
	pageArgs = append(pageArgs, params.Offset)
	pageQuery += fmt.Sprintf(" OFFSET $%d", len(pageArgs))

	rows, err := tx.Query(ctx, pageQuery, pageArgs...)
	if err != nil {
		return content.Page{}, fmt.Errorf("list content: %w", err)
	}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return content.Page{}, err
		}
		page.Items = append(page.Items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return content.Page{}, fmt.Errorf("iterate content: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return content.Page{}, fmt.Errorf("commit list: %w", err)
	}
	return page, nil
}

// Ping checks connectivity.
func (s *ContentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the underlying pool resources.
func (s *ContentStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func scanItem(row pgx.Row) (content.Item, error) {
	var (
		item                content.Item
		title, author, body sql.NullString
	)
	if err := row.Scan(&item.ID, &item.URL, &title, &author, &body, &item.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return content.Item{}, content.ErrNotFound
		}
		return content.Item{}, fmt.Errorf("scan content: %w", err)
	}
	item.Title = fromNull(title)
	item.Author = fromNull(author)
	item.Body = fromNull(body)
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

func fromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	out := v.String
	return &out
}
