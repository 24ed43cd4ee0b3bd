// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/curata-io/curata/internal/models"
)

// InteractionLog is the DuckDB-backed append-only interaction event store.
type InteractionLog struct {
	db *DB
}

var _ InteractionStore = (*InteractionLog)(nil)

// NewInteractionLog wraps the shared DuckDB handle.
func NewInteractionLog(db *DB) *InteractionLog {
	return &InteractionLog{db: db}
}

// Append records a single interaction event.
func (l *InteractionLog) Append(ctx context.Context, ev models.InteractionEvent) error {
	metaJSON, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode event metadata: %w", err)
	}

	_, err = l.db.conn.ExecContext(ctx, `
		INSERT INTO interaction_events
			(id, user_id, product_id, type, recommendation_type, position, score, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.ProductID, string(ev.Type), ev.RecommendationType,
		ev.Position, ev.Score, string(metaJSON), ev.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append interaction event: %w", err)
	}
	return nil
}

// BulkAppend records a batch of events in one transaction. Used by the
// impression writer to amortize write cost.
func (l *InteractionLog) BulkAppend(ctx context.Context, evs []models.InteractionEvent) error {
	if len(evs) == 0 {
		return nil
	}

	tx, err := l.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin bulk append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO interaction_events
			(id, user_id, product_id, type, recommendation_type, position, score, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare bulk append: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ev := range evs {
		metaJSON, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode event metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, ev.ID, ev.UserID, ev.ProductID,
			string(ev.Type), ev.RecommendationType, ev.Position, ev.Score,
			string(metaJSON), ev.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to append event %s: %w", ev.ID, err)
		}
	}

	return tx.Commit()
}

// RecentByUser returns a user's events newest first.
func (l *InteractionLog) RecentByUser(ctx context.Context, userID string, since time.Time, types []models.InteractionType, limit int) ([]models.InteractionEvent, error) {
	query := `
		SELECT id, user_id, product_id, type, recommendation_type, position, score, metadata, created_at
		FROM interaction_events
		WHERE user_id = ? AND created_at >= ?`
	args := []interface{}{userID, since.UTC()}

	if len(types) > 0 {
		query += " AND type IN (" + placeholders(len(types)) + ")"
		for _, t := range types {
			args = append(args, string(t))
		}
	}

	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := l.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent events query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.InteractionEvent
	for rows.Next() {
		var (
			ev       models.InteractionEvent
			evType   string
			metaJSON string
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.ProductID, &evType,
			&ev.RecommendationType, &ev.Position, &ev.Score, &metaJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Type = models.InteractionType(evType)
		if metaJSON != "" && metaJSON != "{}" {
			if err := json.Unmarshal([]byte(metaJSON), &ev.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode event metadata: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// History aggregates a user's events since the given time: per-product view
// stats, category and tag tallies via the catalog join, and the hour-of-week
// activity matrix.
func (l *InteractionLog) History(ctx context.Context, userID string, since time.Time) (*UserHistory, error) {
	h := &UserHistory{
		CategoryViews:   make(map[string]int),
		TagViews:        make(map[string]int),
		HourlyByWeekday: make(map[time.Weekday]map[int]int),
	}

	// Per-product view stats. Views and clicks both count as consumption.
	rows, err := l.db.conn.QueryContext(ctx, `
		SELECT product_id, COUNT(*) AS views, MAX(created_at) AS last_viewed
		FROM interaction_events
		WHERE user_id = ? AND created_at >= ? AND type IN ('view', 'click')
		GROUP BY product_id
		ORDER BY last_viewed DESC`,
		userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("history views query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var stat ProductViewStat
		if err := rows.Scan(&stat.ProductID, &stat.ViewCount, &stat.LastViewed); err != nil {
			return nil, fmt.Errorf("failed to scan view stat: %w", err)
		}
		h.ViewedProducts = append(h.ViewedProducts, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Category tallies via the catalog join.
	catRows, err := l.db.conn.QueryContext(ctx, `
		SELECT p.category_id, COUNT(*)
		FROM interaction_events e
		JOIN products p ON p.id = e.product_id
		WHERE e.user_id = ? AND e.created_at >= ?
			AND e.type IN ('view', 'click') AND p.category_id != ''
		GROUP BY p.category_id`,
		userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("history categories query failed: %w", err)
	}
	defer func() { _ = catRows.Close() }()

	for catRows.Next() {
		var (
			categoryID string
			count      int
		)
		if err := catRows.Scan(&categoryID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category tally: %w", err)
		}
		h.CategoryViews[categoryID] = count
	}
	if err := catRows.Err(); err != nil {
		return nil, err
	}

	// Tag tallies.
	tagRows, err := l.db.conn.QueryContext(ctx, `
		SELECT pt.tag, COUNT(*)
		FROM interaction_events e
		JOIN product_tags pt ON pt.product_id = e.product_id
		WHERE e.user_id = ? AND e.created_at >= ? AND e.type IN ('view', 'click')
		GROUP BY pt.tag`,
		userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("history tags query failed: %w", err)
	}
	defer func() { _ = tagRows.Close() }()

	for tagRows.Next() {
		var (
			tag   string
			count int
		)
		if err := tagRows.Scan(&tag, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tag tally: %w", err)
		}
		h.TagViews[strings.ToLower(tag)] = count
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	// Hour-of-week activity matrix. DuckDB dow: 0 = Sunday, matching
	// time.Weekday.
	hourRows, err := l.db.conn.QueryContext(ctx, `
		SELECT CAST(EXTRACT(dow FROM created_at) AS INTEGER),
		       CAST(EXTRACT(hour FROM created_at) AS INTEGER),
		       COUNT(*)
		FROM interaction_events
		WHERE user_id = ? AND created_at >= ?
		GROUP BY 1, 2`,
		userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("history hours query failed: %w", err)
	}
	defer func() { _ = hourRows.Close() }()

	for hourRows.Next() {
		var dow, hour, count int
		if err := hourRows.Scan(&dow, &hour, &count); err != nil {
			return nil, fmt.Errorf("failed to scan hour tally: %w", err)
		}
		wd := time.Weekday(dow)
		if h.HourlyByWeekday[wd] == nil {
			h.HourlyByWeekday[wd] = make(map[int]int)
		}
		h.HourlyByWeekday[wd][hour] = count
		h.TotalEvents += count
	}
	return h, hourRows.Err()
}

// UpvoteCounts returns net per-product upvotes within [since, until).
func (l *InteractionLog) UpvoteCounts(ctx context.Context, since, until time.Time) (map[string]int, error) {
	rows, err := l.db.conn.QueryContext(ctx, `
		SELECT product_id,
		       COUNT(*) FILTER (WHERE type = 'upvote') - COUNT(*) FILTER (WHERE type = 'remove_upvote')
		FROM interaction_events
		WHERE created_at >= ? AND created_at < ?
			AND type IN ('upvote', 'remove_upvote')
		GROUP BY product_id`,
		since.UTC(), until.UTC())
	if err != nil {
		return nil, fmt.Errorf("upvote counts query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var (
			productID string
			count     int
		)
		if err := rows.Scan(&productID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan upvote count: %w", err)
		}
		if count > 0 {
			out[productID] = count
		}
	}
	return out, rows.Err()
}

// ExistsAtMinute reports whether an equivalent event landed in the same
// minute, for duplicate suppression on ingest.
func (l *InteractionLog) ExistsAtMinute(ctx context.Context, userID, productID string, t models.InteractionType, at time.Time) (bool, error) {
	minute := at.UTC().Truncate(time.Minute)

	var count int
	err := l.db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM interaction_events
		WHERE user_id = ? AND product_id = ? AND type = ?
			AND created_at >= ? AND created_at < ?`,
		userID, productID, string(t), minute, minute.Add(time.Minute)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("duplicate check failed: %w", err)
	}
	return count > 0, nil
}
