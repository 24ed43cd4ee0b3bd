// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

// Weights maps each source to its blend weight. Weights are relative, not
// normalized; the engine multiplies them into candidate scores before the
// final normalization.
type Weights map[Reason]float64

// BlendSignals are the user-state inputs that adjust a preset's weights.
type BlendSignals struct {
	Authenticated        bool
	HasStrongPreferences bool
	HasRecentActivity    bool
	IsEveningHours       bool
}

// authBlendTable holds the per-preset base weights for authenticated users.
// Spotlight and serendipity share the backup weight.
var authBlendTable = map[Blend]Weights{
	BlendStandard: {
		ReasonTrending: 0.18, ReasonNew: 0.15, ReasonPersonalized: 0.12,
		ReasonCollaborative: 0.15, ReasonInterests: 0.15, ReasonSimilar: 0.10,
		ReasonDiscovery: 0.10, ReasonSpotlight: 0.05, ReasonSerendipity: 0.05,
	},
	BlendPersonalized: {
		ReasonTrending: 0.10, ReasonNew: 0.10, ReasonPersonalized: 0.20,
		ReasonCollaborative: 0.20, ReasonInterests: 0.15, ReasonSimilar: 0.12,
		ReasonDiscovery: 0.10, ReasonSpotlight: 0.05, ReasonSerendipity: 0.05,
	},
	BlendDiscovery: {
		ReasonTrending: 0.15, ReasonNew: 0.15, ReasonPersonalized: 0.18,
		ReasonCollaborative: 0.15, ReasonInterests: 0.15, ReasonSimilar: 0.12,
		ReasonDiscovery: 0.15, ReasonSpotlight: 0.05, ReasonSerendipity: 0.05,
	},
	BlendTrending: {
		ReasonTrending: 0.25, ReasonNew: 0.15, ReasonPersonalized: 0.15,
		ReasonCollaborative: 0.10, ReasonInterests: 0.10, ReasonSimilar: 0.08,
		ReasonDiscovery: 0.10, ReasonSpotlight: 0.05, ReasonSerendipity: 0.05,
	},
	BlendNew: {
		ReasonTrending: 0.15, ReasonNew: 0.25, ReasonPersonalized: 0.12,
		ReasonCollaborative: 0.10, ReasonInterests: 0.12, ReasonSimilar: 0.08,
		ReasonDiscovery: 0.13, ReasonSpotlight: 0.05, ReasonSerendipity: 0.05,
	},
}

// anonBlendTable holds the per-preset base weights for anonymous sessions,
// restricted to the sources that work without a profile.
var anonBlendTable = map[Blend]Weights{
	BlendStandard: {
		ReasonTrending: 0.32, ReasonNew: 0.25, ReasonDiscovery: 0.33,
		ReasonSpotlight: 0.10, ReasonSerendipity: 0.10,
	},
	BlendDiscovery: {
		ReasonTrending: 0.25, ReasonNew: 0.20, ReasonDiscovery: 0.40,
		ReasonSpotlight: 0.10, ReasonSerendipity: 0.10,
	},
	BlendTrending: {
		ReasonTrending: 0.40, ReasonNew: 0.25, ReasonDiscovery: 0.25,
		ReasonSpotlight: 0.10, ReasonSerendipity: 0.10,
	},
	BlendNew: {
		ReasonTrending: 0.25, ReasonNew: 0.40, ReasonDiscovery: 0.25,
		ReasonSpotlight: 0.10, ReasonSerendipity: 0.10,
	},
}

// typeMultipliers bias sources independently of the blend, reflecting how
// reliable each source's raw scores are.
var typeMultipliers = Weights{
	ReasonTrending:      1.10,
	ReasonPersonalized:  1.20,
	ReasonInterests:     1.05,
	ReasonNew:           1.00,
	ReasonDiscovery:     0.95,
	ReasonCollaborative: 1.00,
	ReasonSimilar:       1.00,
	ReasonSpotlight:     0.90,
	ReasonSerendipity:   0.85,
}

// minBlendWeight is the floor after signal adjustments; an active source
// never drops to zero.
const minBlendWeight = 0.02

// CoerceBlend normalizes the requested preset: empty means standard, and
// anonymous sessions cannot request the personalized blend.
func CoerceBlend(b Blend, authenticated bool) Blend {
	if b == "" {
		b = BlendStandard
	}
	if !authenticated && b == BlendPersonalized {
		return BlendStandard
	}
	return b
}

// BlendWeights resolves the weight distribution for a preset and the user's
// current signals.
//
// Signal adjustments, applied in order:
//   - strong preferences shift 0.05 from trending to personalized
//   - recent activity shifts 0.05 from new to similar
//   - evening hours shift 0.05 from trending to discovery
func BlendWeights(b Blend, signals BlendSignals) Weights {
	b = CoerceBlend(b, signals.Authenticated)

	table := anonBlendTable
	if signals.Authenticated {
		table = authBlendTable
	}
	base, ok := table[b]
	if !ok {
		base = table[BlendStandard]
	}

	weights := make(Weights, len(base))
	for reason, w := range base {
		weights[reason] = w
	}

	if signals.Authenticated && signals.HasStrongPreferences {
		shift(weights, ReasonTrending, ReasonPersonalized, 0.05)
	}
	if signals.Authenticated && signals.HasRecentActivity {
		shift(weights, ReasonNew, ReasonSimilar, 0.05)
	}
	if signals.IsEveningHours {
		shift(weights, ReasonTrending, ReasonDiscovery, 0.05)
	}

	return weights
}

// shift moves amount from one source to another, respecting the floor. A
// missing destination (e.g. similar for anonymous users) leaves the weights
// untouched.
func shift(w Weights, from, to Reason, amount float64) {
	fromW, okFrom := w[from]
	_, okTo := w[to]
	if !okFrom || !okTo {
		return
	}
	if fromW-amount < minBlendWeight {
		amount = fromW - minBlendWeight
	}
	if amount <= 0 {
		return
	}
	w[from] -= amount
	w[to] += amount
}

// TypeMultiplier returns the source-reliability multiplier for a reason.
func TypeMultiplier(r Reason) float64 {
	if m, ok := typeMultipliers[r]; ok {
		return m
	}
	return 1.0
}
