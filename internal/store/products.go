// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/curata-io/curata/internal/models"
)

// productColumns is the scan order shared by every product read.
const productColumns = `id, slug, name, tagline, description, status,
	category_id, tags, maker_id, thumbnail,
	upvote_count, view_count, bookmark_count, comment_count, created_at`

// ProductCatalog is the DuckDB-backed ProductStore.
type ProductCatalog struct {
	db *DB
}

var _ ProductStore = (*ProductCatalog)(nil)

// NewProductCatalog wraps the shared DuckDB handle.
func NewProductCatalog(db *DB) *ProductCatalog {
	return &ProductCatalog{db: db}
}

// Upsert writes a product projection and its tag rows. Used by the catalog
// sync path and by tests; the engine itself only reads.
func (c *ProductCatalog) Upsert(ctx context.Context, p models.Product) error {
	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	tx, err := c.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO products
			(id, slug, name, tagline, description, status, category_id, tags,
			 maker_id, thumbnail, upvote_count, view_count, bookmark_count,
			 comment_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Name, p.Tagline, p.Description, string(p.Status),
		p.CategoryID, string(tagsJSON), p.MakerID, p.Thumbnail,
		p.UpvoteCount, p.ViewCount, p.BookmarkCount, p.CommentCount,
		p.CreatedAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM product_tags WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to clear tags for %s: %w", p.ID, err)
	}
	for _, tag := range p.Tags {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO product_tags (product_id, tag) VALUES (?, ?)`,
			p.ID, strings.ToLower(tag)); err != nil {
			return fmt.Errorf("failed to insert tag for %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// UpsertCategory writes a category projection.
func (c *ProductCatalog) UpsertCategory(ctx context.Context, cat models.Category) error {
	_, err := c.db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO categories (id, name, slug) VALUES (?, ?, ?)`,
		cat.ID, cat.Name, cat.Slug)
	if err != nil {
		return fmt.Errorf("failed to upsert category %s: %w", cat.ID, err)
	}
	return nil
}

// Query runs a filtered catalog read.
func (c *ProductCatalog) Query(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	var (
		where []string
		args  []interface{}
	)

	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, q.CategoryID)
	}
	if len(q.CategoryIDs) > 0 {
		where = append(where, "category_id IN ("+placeholders(len(q.CategoryIDs))+")")
		for _, id := range q.CategoryIDs {
			args = append(args, id)
		}
	}
	if len(q.Tags) > 0 {
		where = append(where,
			"id IN (SELECT product_id FROM product_tags WHERE tag IN ("+placeholders(len(q.Tags))+"))")
		for _, tag := range q.Tags {
			args = append(args, strings.ToLower(tag))
		}
	}
	if q.MakerID != "" {
		where = append(where, "maker_id = ?")
		args = append(args, q.MakerID)
	}
	if len(q.ExcludeIDs) > 0 {
		where = append(where, "id NOT IN ("+placeholders(len(q.ExcludeIDs))+")")
		for _, id := range q.ExcludeIDs {
			args = append(args, id)
		}
	}
	if !q.CreatedAfter.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, q.CreatedAfter.UTC())
	}
	if q.MinUpvotes > 0 {
		where = append(where, "upvote_count >= ?")
		args = append(args, q.MinUpvotes)
	}
	if q.HasEngagement {
		where = append(where, "(upvote_count > 0 OR bookmark_count > 0 OR view_count > 0)")
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	switch q.Sort {
	case SortUpvotes:
		query += " ORDER BY upvote_count DESC, created_at DESC, id"
	case SortNewest:
		query += " ORDER BY created_at DESC, id"
	case SortViews:
		query += " ORDER BY view_count DESC, created_at DESC, id"
	case SortRandom:
		query += " ORDER BY random()"
	default:
		query += " ORDER BY created_at DESC, id"
	}

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := c.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("product query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanProducts(rows)
}

// GetByID fetches one product or ErrProductNotFound.
func (c *ProductCatalog) GetByID(ctx context.Context, id string) (*models.Product, error) {
	row := c.db.conn.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ?", id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	return p, nil
}

// GetByIDs fetches products by id, preserving the input order. Missing ids
// are silently skipped.
func (c *ProductCatalog) GetByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := c.db.conn.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id IN ("+placeholders(len(ids))+")",
		args...)
	if err != nil {
		return nil, fmt.Errorf("product batch query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	fetched, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	ordered := make([]models.Product, 0, len(fetched))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// GetCategory fetches one category or ErrCategoryNotFound.
func (c *ProductCatalog) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var cat models.Category
	err := c.db.conn.QueryRowContext(ctx,
		"SELECT id, name, slug FROM categories WHERE id = ?", id).
		Scan(&cat.ID, &cat.Name, &cat.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load category %s: %w", id, err)
	}
	return &cat, nil
}

// CategoryEngagement aggregates published inventory per category.
func (c *ProductCatalog) CategoryEngagement(ctx context.Context, minProducts int) ([]CategoryEngagement, error) {
	rows, err := c.db.conn.QueryContext(ctx, `
		SELECT category_id, COUNT(*) AS product_count, AVG(upvote_count) AS avg_upvotes
		FROM products
		WHERE status = ? AND category_id != ''
		GROUP BY category_id
		HAVING COUNT(*) >= ?
		ORDER BY avg_upvotes DESC, category_id`,
		string(models.StatusPublished), minProducts)
	if err != nil {
		return nil, fmt.Errorf("category engagement query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CategoryEngagement
	for rows.Next() {
		var ce CategoryEngagement
		if err := rows.Scan(&ce.CategoryID, &ce.ProductCount, &ce.AvgUpvotes); err != nil {
			return nil, fmt.Errorf("failed to scan category engagement: %w", err)
		}
		out = append(out, ce)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p        models.Product
		status   string
		tagsJSON string
	)
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Tagline, &p.Description, &status,
		&p.CategoryID, &tagsJSON, &p.MakerID, &p.Thumbnail,
		&p.UpvoteCount, &p.ViewCount, &p.BookmarkCount, &p.CommentCount, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.Status = models.ProductStatus(status)
	if tagsJSON != "" && tagsJSON != "[]" {
		if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	var out []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
