// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package models defines the shared data types consumed and produced by the
// recommendation engine: product and user projections, interaction events,
// and the API response envelope.
//
// The engine never owns product or user persistence; these types are
// read-only projections of what the product and auth subsystems store.
package models

import "time"

// ProductStatus is the publication state of a product.
type ProductStatus string

const (
	// StatusDraft marks a product that is not yet visible.
	StatusDraft ProductStatus = "draft"
	// StatusPublished marks a product eligible for recommendation.
	StatusPublished ProductStatus = "published"
	// StatusArchived marks a product removed from circulation.
	StatusArchived ProductStatus = "archived"
)

// Product is the read-only projection of a product record that the
// recommendation engine consumes. Only Published products are ever
// recommended.
type Product struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Name        string        `json:"name"`
	Tagline     string        `json:"tagline,omitempty"`
	Description string        `json:"description,omitempty"`
	CategoryID  string        `json:"category_id"`
	Tags        []string      `json:"tags"`
	MakerID     string        `json:"maker_id"`
	Thumbnail   string        `json:"thumbnail,omitempty"`
	Status      ProductStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`

	// Engagement counters maintained by the product subsystem.
	ViewCount     int `json:"view_count"`
	UpvoteCount   int `json:"upvote_count"`
	BookmarkCount int `json:"bookmark_count"`
	CommentCount  int `json:"comment_count"`
}

// HasTag reports whether the product carries the given tag,
// compared case-insensitively by the caller's normalization.
func (p *Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Category is a minimal category projection used for lookups and
// category-spotlight aggregation.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Interest is a user-declared interest with a strength in [0, 10].
type Interest struct {
	Name     string  `json:"name"`
	Strength float64 `json:"strength"`
}

// User is the projection of an authenticated user that the engine consumes.
// Identity and display fields are owned by the auth subsystem; the engine
// reads declared interests only.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username,omitempty"`
	Interests []Interest `json:"interests,omitempty"`
}

// IsAnonymous reports whether the user reference denotes an anonymous session.
func (u *User) IsAnonymous() bool {
	return u == nil || u.ID == ""
}
