// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

import (
	"math"
	"sort"
)

// scoreEpsilon is the threshold under which two scores count as tied and the
// product id decides ordering. Keeps page composition stable across runs.
const scoreEpsilon = 1e-4

// sortCandidates orders candidates by score descending, breaking near-ties
// lexicographically by product id.
func sortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if math.Abs(cands[i].Score-cands[j].Score) < scoreEpsilon {
			return cands[i].ProductID < cands[j].ProductID
		}
		return cands[i].Score > cands[j].Score
	})
}

// diversify selects up to limit candidates while spreading picks across
// sources and capping per-category repetition.
//
// Selection runs in three passes over per-source queues sorted by score:
//
//  1. one pick per source, walking sources in priority order, so every
//     source that produced anything gets representation;
//  2. round-robin up to an even per-source quota, enforcing the category cap;
//  3. best remaining candidates regardless of source, still capped.
//
// If the page is still short after pass 3 the category cap is relaxed and the
// best leftovers fill the remainder.
func diversify(cands []Candidate, limit, categoryCap int) []Candidate {
	if limit <= 0 || len(cands) == 0 {
		return nil
	}
	if categoryCap <= 0 {
		categoryCap = len(cands)
	}

	bySource := make(map[Reason][]Candidate)
	for _, c := range cands {
		bySource[c.Reason] = append(bySource[c.Reason], c)
	}
	for r := range bySource {
		sortCandidates(bySource[r])
	}

	// Sources in priority order first, then any unknown sources in id order
	// so selection stays deterministic.
	sources := make([]Reason, 0, len(bySource))
	seen := make(map[Reason]bool, len(bySource))
	for _, r := range priorityOrder {
		if _, ok := bySource[r]; ok {
			sources = append(sources, r)
			seen[r] = true
		}
	}
	extra := make([]Reason, 0)
	for r := range bySource {
		if !seen[r] {
			extra = append(extra, r)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	sources = append(sources, extra...)

	picked := make([]Candidate, 0, limit)
	pickedIDs := make(map[string]bool, limit)
	catCounts := make(map[string]int)
	cursor := make(map[Reason]int, len(sources))

	take := func(c Candidate, enforceCap bool) bool {
		if pickedIDs[c.ProductID] {
			return false
		}
		if enforceCap && c.Product.CategoryID != "" && catCounts[c.Product.CategoryID] >= categoryCap {
			return false
		}
		picked = append(picked, c)
		pickedIDs[c.ProductID] = true
		if c.Product.CategoryID != "" {
			catCounts[c.Product.CategoryID]++
		}
		return true
	}

	// Pass 1: one per source. The cap is not enforced here so a single
	// dominant category cannot silence an entire source.
	for _, r := range sources {
		if len(picked) >= limit {
			break
		}
		queue := bySource[r]
		for cursor[r] < len(queue) {
			c := queue[cursor[r]]
			cursor[r]++
			if take(c, false) {
				break
			}
		}
	}

	// Pass 2: even quota per source with the category cap.
	quota := limit / minInt(len(sources), len(priorityOrder))
	if quota < 1 {
		quota = 1
	}
	perSource := make(map[Reason]int, len(sources))
	for _, c := range picked {
		perSource[c.Reason]++
	}
	progress := true
	for progress && len(picked) < limit {
		progress = false
		for _, r := range sources {
			if len(picked) >= limit {
				break
			}
			if perSource[r] >= quota {
				continue
			}
			queue := bySource[r]
			for cursor[r] < len(queue) {
				c := queue[cursor[r]]
				cursor[r]++
				if take(c, true) {
					perSource[r]++
					progress = true
					break
				}
			}
		}
	}

	// Pass 3: best leftovers across all sources, still capped.
	if len(picked) < limit {
		for _, c := range leftoverCandidates(bySource, pickedIDs) {
			if len(picked) >= limit {
				break
			}
			take(c, true)
		}
	}

	// Cap relaxation: better to repeat a category than serve a short page.
	if len(picked) < limit {
		for _, c := range leftoverCandidates(bySource, pickedIDs) {
			if len(picked) >= limit {
				break
			}
			take(c, false)
		}
	}

	return picked
}

// leftoverCandidates collects every unpicked candidate sorted by score.
func leftoverCandidates(bySource map[Reason][]Candidate, pickedIDs map[string]bool) []Candidate {
	leftovers := make([]Candidate, 0)
	for _, queue := range bySource {
		for _, c := range queue {
			if !pickedIDs[c.ProductID] {
				leftovers = append(leftovers, c)
			}
		}
	}
	sortCandidates(leftovers)
	return leftovers
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
