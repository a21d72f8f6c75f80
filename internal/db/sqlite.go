// Package db provides a SQLite-backed store for the search result cache.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thesavant42/grit-find/internal/cache"
	"github.com/thesavant42/grit-find/internal/models"

	_ "modernc.org/sqlite"
)

// DefaultFileName is the database name inside the cache directory
const DefaultFileName = "cache.db"

// DB wraps the SQLite database connection. It implements cache.Store.
type DB struct {
	conn *sql.DB
	path string
}

var _ cache.Store = (*DB)(nil)

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent
	conn.SetMaxOpenConns(1)

	for name, ddl := range map[string]string{
		"queries":      createQueriesTable,
		"pages":        createPagesTable,
		"repositories": createRepositoriesTable,
	} {
		if _, err := conn.Exec(ddl); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", name, err)
		}
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Load reads the whole cache
func (db *DB) Load(ctx context.Context) (*cache.Cache, error) {
	c := cache.New()

	entry := func(query string) *cache.QueryEntry {
		e, ok := c.Queries[query]
		if !ok {
			e = &cache.QueryEntry{Pages: make(map[int][]models.Repository)}
			c.Queries[query] = e
		}
		return e
	}

	rows, err := db.conn.QueryContext(ctx, selectQueries)
	if err != nil {
		return nil, db.wrap("load", fmt.Errorf("failed to query cached queries: %w", err))
	}
	for rows.Next() {
		var query string
		var fully bool
		if err := rows.Scan(&query, &fully); err != nil {
			rows.Close()
			return nil, db.wrap("load", fmt.Errorf("failed to scan query: %w", err))
		}
		entry(query).FullyFetched = fully
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, db.wrap("load", err)
	}

	rows, err = db.conn.QueryContext(ctx, selectPages)
	if err != nil {
		return nil, db.wrap("load", fmt.Errorf("failed to query cached pages: %w", err))
	}
	for rows.Next() {
		var query string
		var page int
		if err := rows.Scan(&query, &page); err != nil {
			rows.Close()
			return nil, db.wrap("load", fmt.Errorf("failed to scan page: %w", err))
		}
		entry(query).Pages[page] = []models.Repository{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, db.wrap("load", err)
	}

	rows, err = db.conn.QueryContext(ctx, selectRepositories)
	if err != nil {
		return nil, db.wrap("load", fmt.Errorf("failed to query cached repositories: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var query string
		var page int
		var desc sql.NullString
		var r models.Repository
		if err := rows.Scan(&query, &page, &r.FullName, &desc, &r.StargazersCount); err != nil {
			return nil, db.wrap("load", fmt.Errorf("failed to scan repository: %w", err))
		}
		if desc.Valid {
			d := desc.String
			r.Description = &d
		}
		e := entry(query)
		e.Pages[page] = append(e.Pages[page], r)
	}
	if err := rows.Err(); err != nil {
		return nil, db.wrap("load", err)
	}

	return c, nil
}

// Save replaces the stored cache with c in one transaction
func (db *DB) Save(ctx context.Context, c *cache.Cache) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return db.wrap("save", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	for _, stmt := range []string{deleteRepositories, deletePages, deleteQueries} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return db.wrap("save", fmt.Errorf("failed to clear cache: %w", err))
		}
	}

	qStmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return db.wrap("save", fmt.Errorf("failed to prepare statement: %w", err))
	}
	defer qStmt.Close()
	pStmt, err := tx.PrepareContext(ctx, insertPage)
	if err != nil {
		return db.wrap("save", fmt.Errorf("failed to prepare statement: %w", err))
	}
	defer pStmt.Close()
	rStmt, err := tx.PrepareContext(ctx, insertRepository)
	if err != nil {
		return db.wrap("save", fmt.Errorf("failed to prepare statement: %w", err))
	}
	defer rStmt.Close()

	for query, e := range c.Queries {
		if e == nil {
			continue
		}
		if _, err := qStmt.ExecContext(ctx, query, e.FullyFetched); err != nil {
			return db.wrap("save", fmt.Errorf("failed to insert query %q: %w", query, err))
		}
		for page, repos := range e.Pages {
			if _, err := pStmt.ExecContext(ctx, query, page); err != nil {
				return db.wrap("save", fmt.Errorf("failed to insert page %d: %w", page, err))
			}
			for pos, r := range repos {
				var desc sql.NullString
				if r.Description != nil {
					desc = sql.NullString{String: *r.Description, Valid: true}
				}
				if _, err := rStmt.ExecContext(ctx, query, page, pos, r.FullName, desc, r.StargazersCount); err != nil {
					return db.wrap("save", fmt.Errorf("failed to insert repository %s: %w", r.FullName, err))
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return db.wrap("save", fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (db *DB) wrap(op string, err error) error {
	return &cache.CacheError{Op: op, Path: db.path, Err: err}
}
