// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

import "testing"

func TestCoerceBlend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		blend         Blend
		authenticated bool
		want          Blend
	}{
		{"empty defaults to standard", "", true, BlendStandard},
		{"anonymous personalized coerced", BlendPersonalized, false, BlendStandard},
		{"authenticated personalized kept", BlendPersonalized, true, BlendPersonalized},
		{"anonymous trending kept", BlendTrending, false, BlendTrending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CoerceBlend(tt.blend, tt.authenticated); got != tt.want {
				t.Errorf("CoerceBlend(%q, %v) = %q, want %q", tt.blend, tt.authenticated, got, tt.want)
			}
		})
	}
}

func TestBlendWeights_AnonymousExcludesProfileSources(t *testing.T) {
	t.Parallel()

	w := BlendWeights(BlendStandard, BlendSignals{Authenticated: false})

	for _, r := range []Reason{ReasonPersonalized, ReasonCollaborative, ReasonInterests, ReasonSimilar} {
		if _, ok := w[r]; ok {
			t.Errorf("anonymous weights include %s", r)
		}
	}
	if w[ReasonTrending] <= 0 || w[ReasonNew] <= 0 || w[ReasonDiscovery] <= 0 {
		t.Errorf("anonymous core sources missing weight: %v", w)
	}
}

func TestBlendWeights_EveningShiftsTrendingToDiscovery(t *testing.T) {
	t.Parallel()

	day := BlendWeights(BlendStandard, BlendSignals{Authenticated: true})
	evening := BlendWeights(BlendStandard, BlendSignals{Authenticated: true, IsEveningHours: true})

	if diff := day[ReasonTrending] - evening[ReasonTrending]; diff < 0.049 || diff > 0.051 {
		t.Errorf("trending shift = %v, want 0.05", diff)
	}
	if diff := evening[ReasonDiscovery] - day[ReasonDiscovery]; diff < 0.049 || diff > 0.051 {
		t.Errorf("discovery gain = %v, want 0.05", diff)
	}
}

func TestBlendWeights_StrongPreferencesBoostPersonalized(t *testing.T) {
	t.Parallel()

	base := BlendWeights(BlendStandard, BlendSignals{Authenticated: true})
	strong := BlendWeights(BlendStandard, BlendSignals{Authenticated: true, HasStrongPreferences: true})

	if strong[ReasonPersonalized] <= base[ReasonPersonalized] {
		t.Errorf("personalized = %v, want > %v", strong[ReasonPersonalized], base[ReasonPersonalized])
	}
	if strong[ReasonTrending] >= base[ReasonTrending] {
		t.Errorf("trending = %v, want < %v", strong[ReasonTrending], base[ReasonTrending])
	}
}

func TestBlendWeights_FloorNeverCrossed(t *testing.T) {
	t.Parallel()

	w := BlendWeights(BlendPersonalized, BlendSignals{
		Authenticated:        true,
		HasStrongPreferences: true,
		HasRecentActivity:    true,
		IsEveningHours:       true,
	})
	for r, v := range w {
		if v < minBlendWeight {
			t.Errorf("weight for %s = %v, below floor %v", r, v, minBlendWeight)
		}
	}
}

func TestBlendWeights_UnknownPresetFallsBack(t *testing.T) {
	t.Parallel()

	got := BlendWeights(Blend("chaotic"), BlendSignals{Authenticated: true})
	want := BlendWeights(BlendStandard, BlendSignals{Authenticated: true})
	if len(got) != len(want) {
		t.Errorf("unknown preset weights = %v, want standard %v", got, want)
	}
}

func TestTypeMultiplier(t *testing.T) {
	t.Parallel()

	if m := TypeMultiplier(ReasonPersonalized); m <= 1.0 {
		t.Errorf("personalized multiplier = %v, want > 1", m)
	}
	if m := TypeMultiplier(Reason("unknown")); m != 1.0 {
		t.Errorf("unknown multiplier = %v, want 1", m)
	}
}
