// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/rs/zerolog"
)

// DuckDBOptions tunes the embedded analytical database.
type DuckDBOptions struct {
	// Path is the database file. ":memory:" opens an in-memory database.
	Path string
	// Threads caps DuckDB worker threads. Zero means NumCPU.
	Threads int
	// MaxMemory is DuckDB's memory ceiling, e.g. "512MB".
	MaxMemory string
}

// DB wraps the DuckDB connection shared by the product and interaction
// stores.
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// OpenDuckDB opens (creating if needed) the catalog database and ensures the
// schema exists.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func OpenDuckDB(opts DuckDBOptions, logger zerolog.Logger) (*DB, error) {
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := opts.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	if opts.Path != ":memory:" && opts.Path != "" {
		dir := filepath.Dir(opts.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		opts.Path, threads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// DuckDB is embedded; a small pool avoids contention on the single file.
	conn.SetMaxOpenConns(threads)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{
		conn:   conn,
		logger: logger.With().Str("component", "store").Logger(),
	}

	if err := db.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info().Str("path", opts.Path).Int("threads", threads).Msg("catalog database ready")
	return db, nil
}

// Conn exposes the underlying connection for health checks.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close releases the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id          VARCHAR PRIMARY KEY,
			name        VARCHAR NOT NULL,
			slug        VARCHAR NOT NULL DEFAULT '',
			description VARCHAR NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id             VARCHAR PRIMARY KEY,
			slug           VARCHAR NOT NULL DEFAULT '',
			name           VARCHAR NOT NULL,
			tagline        VARCHAR NOT NULL DEFAULT '',
			description    VARCHAR NOT NULL DEFAULT '',
			status         VARCHAR NOT NULL DEFAULT 'draft',
			category_id    VARCHAR NOT NULL DEFAULT '',
			tags           VARCHAR NOT NULL DEFAULT '[]',
			maker_id       VARCHAR NOT NULL DEFAULT '',
			thumbnail      VARCHAR NOT NULL DEFAULT '',
			upvote_count   INTEGER NOT NULL DEFAULT 0,
			view_count     INTEGER NOT NULL DEFAULT 0,
			bookmark_count INTEGER NOT NULL DEFAULT 0,
			comment_count  INTEGER NOT NULL DEFAULT 0,
			created_at     TIMESTAMP NOT NULL,
			updated_at     TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS product_tags (
			product_id VARCHAR NOT NULL,
			tag        VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS interaction_events (
			id                  VARCHAR PRIMARY KEY,
			user_id             VARCHAR NOT NULL,
			product_id          VARCHAR NOT NULL,
			type                VARCHAR NOT NULL,
			recommendation_type VARCHAR NOT NULL DEFAULT '',
			position            INTEGER NOT NULL DEFAULT -1,
			score               DOUBLE NOT NULL DEFAULT 0,
			metadata            VARCHAR NOT NULL DEFAULT '{}',
			created_at          TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_status_created
			ON products (status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_products_category
			ON products (category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_product_tags_tag
			ON product_tags (tag)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_created
			ON interaction_events (user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_product_type_created
			ON interaction_events (product_id, type, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
