// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package scoring

import (
	"math/rand"
	"testing"
	"time"

	"github.com/curata-io/curata/internal/models"
)

var testNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func product(upvotes, views, bookmarks, comments int, age time.Duration) *models.Product {
	return &models.Product{
		ID:            "p1",
		CategoryID:    "cat-dev",
		Tags:          []string{"ai", "devtools"},
		Status:        models.StatusPublished,
		CreatedAt:     testNow.Add(-age),
		UpvoteCount:   upvotes,
		ViewCount:     views,
		BookmarkCount: bookmarks,
		CommentCount:  comments,
	}
}

func TestEngagement_Bounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    *models.Product
	}{
		{"nil product", nil},
		{"zero counters", product(0, 0, 0, 0, time.Hour)},
		{"small counts", product(3, 20, 1, 2, time.Hour)},
		{"viral product", product(50000, 900000, 20000, 8000, time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Engagement(tt.p)
			if got < MinScore || got > 1 {
				t.Errorf("Engagement() = %f, want in [%f, 1]", got, MinScore)
			}
		})
	}
}

func TestEngagement_Monotone(t *testing.T) {
	t.Parallel()

	low := Engagement(product(2, 10, 1, 0, time.Hour))
	high := Engagement(product(200, 1000, 100, 50, time.Hour))
	if high <= low {
		t.Errorf("more engagement should score higher: low=%f high=%f", low, high)
	}
}

func TestRecency_DecaysWithAge(t *testing.T) {
	t.Parallel()

	fresh := Recency(testNow.Add(-1*time.Hour), testNow, 30)
	week := Recency(testNow.Add(-7*24*time.Hour), testNow, 30)
	month := Recency(testNow.Add(-30*24*time.Hour), testNow, 30)
	ancient := Recency(testNow.Add(-365*24*time.Hour), testNow, 30)

	if !(fresh > week && week > month) {
		t.Errorf("recency should decay: fresh=%f week=%f month=%f", fresh, week, month)
	}
	if ancient < MinScore {
		t.Errorf("ancient product fell below floor: %f", ancient)
	}
	if fresh <= week {
		t.Errorf("fresh product should carry the recent-window boost: fresh=%f", fresh)
	}
}

func TestRecency_FutureCreatedAt(t *testing.T) {
	t.Parallel()

	// Clock skew: createdAt slightly in the future must not explode.
	got := Recency(testNow.Add(10*time.Minute), testNow, 30)
	if got < MinScore || got > 1 {
		t.Errorf("Recency() with future createdAt = %f, want in [%f, 1]", got, MinScore)
	}
}

func TestTrending_DeterministicWithSeed(t *testing.T) {
	t.Parallel()

	p := product(40, 600, 12, 5, 36*time.Hour)

	a := Trending(p, testNow, 7, rand.New(rand.NewSource(42)))
	b := Trending(p, testNow, 7, rand.New(rand.NewSource(42)))
	if a != b {
		t.Errorf("same seed must give same trending score: %f != %f", a, b)
	}

	// Nil rng uses the midpoint estimate and stays in bounds.
	c := Trending(p, testNow, 7, nil)
	if c < MinScore || c > 1 {
		t.Errorf("Trending() = %f, want in [%f, 1]", c, MinScore)
	}
}

func TestTrending_PrefersRecentEngagement(t *testing.T) {
	t.Parallel()

	recent := product(100, 2000, 30, 10, 24*time.Hour)
	stale := product(100, 2000, 30, 10, 60*24*time.Hour)

	rs := Trending(recent, testNow, 7, nil)
	ss := Trending(stale, testNow, 7, nil)
	if rs <= ss {
		t.Errorf("recent product should trend higher: recent=%f stale=%f", rs, ss)
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	base := &models.Product{CategoryID: "c1", Tags: []string{"AI", "ml"}}

	tests := []struct {
		name  string
		other *models.Product
		want  func(float64) bool
	}{
		{
			name:  "identical tags and category",
			other: &models.Product{CategoryID: "c1", Tags: []string{"ai", "ML"}},
			want:  func(s float64) bool { return s == 1.0 },
		},
		{
			name:  "category only",
			other: &models.Product{CategoryID: "c1", Tags: []string{"fintech"}},
			want:  func(s float64) bool { return s > MinScore && s < 0.5 },
		},
		{
			name:  "no overlap",
			other: &models.Product{CategoryID: "c2", Tags: []string{"fintech"}},
			want:  func(s float64) bool { return s == MinScore },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Similarity(base, tt.other)
			if !tt.want(got) {
				t.Errorf("Similarity() = %f", got)
			}
		})
	}
}

func TestPersonalized_RanksMatchingHigher(t *testing.T) {
	t.Parallel()

	prefs := Preferences{
		Categories: map[string]float64{"cat-dev": 2.4},
		Tags:       map[string]float64{"ai": 1.6},
	}

	both := Personalized(product(10, 100, 5, 2, 48*time.Hour), prefs, testNow)

	catOnly := &models.Product{CategoryID: "cat-dev", Tags: []string{"fintech"}, CreatedAt: testNow.Add(-48 * time.Hour)}
	neither := &models.Product{CategoryID: "cat-other", Tags: []string{"fintech"}, CreatedAt: testNow.Add(-48 * time.Hour)}

	co := Personalized(catOnly, prefs, testNow)
	no := Personalized(neither, prefs, testNow)

	if !(both > co && co > no) {
		t.Errorf("want both(%f) > catOnly(%f) > neither(%f)", both, co, no)
	}
}

func TestPsychologicalMultiplier_Bounds(t *testing.T) {
	t.Parallel()

	// Sweep every hour of a week; the multiplier must stay in [0.1, 1.3]
	// and never hit zero.
	start := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*7; h++ {
		at := start.Add(time.Duration(h) * time.Hour)
		m := PsychologicalMultiplier(at)
		if m < 0.1 || m > 1.3 {
			t.Fatalf("multiplier out of bounds at %v: %f", at, m)
		}
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want func(float64) bool
	}{
		{"negative", -3, func(v float64) bool { return v == 0 }},
		{"zero", 0, func(v float64) bool { return v == 0 }},
		{"one", 1, func(v float64) bool { return v == 0.5 }},
		{"large saturates", 1e9, func(v float64) bool { return v > 0.999 && v <= 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.in); !tt.want(got) {
				t.Errorf("Normalize(%f) = %f", tt.in, got)
			}
		})
	}
}

func TestNormalize_Monotone(t *testing.T) {
	t.Parallel()

	prev := -1.0
	for _, x := range []float64{0, 0.1, 0.5, 1, 2, 10, 100} {
		v := Normalize(x)
		if v < prev {
			t.Fatalf("Normalize must be monotone: f(%f)=%f < %f", x, v, prev)
		}
		prev = v
	}
}
