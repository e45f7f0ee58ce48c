// ============================================================================
// Priority Score Calculation
// ============================================================================
//
// Package: internal/scoring
// File: scoring.go
// Purpose: Pure scoring policy for adaptive test scheduling
//
// Formula:
//   score = base_priority
//         + new_elements * 15
//         + (unseen target_url ? 20 : 0)
//         + (recently failed  ? 10 : 0)
//         - (no_dom_change    ? 25 : 0)
//   floored at 0.
//
// Priority policy split:
//   An absent priority defaults to MAY (base 30). An unknown non-empty
//   priority string scores base 0: scoring and the "default priority"
//   ingestion policy are deliberately independent, so a producer sending a
//   typo'd priority is de-prioritized rather than silently promoted.
//
// Both functions are pure: no side effects, deterministic for a fixed
// (item, state) pair.
//
// ============================================================================

package scoring

import (
	"github.com/gaiaqa/gaia-scheduler/internal/state"
	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// Base scores per priority level.
const (
	ScoreMust   = 100
	ScoreShould = 60
	ScoreMay    = 30
)

// Bonus and penalty weights.
const (
	BonusNewElements   = 15 // Per newly discovered interactive element
	BonusUnseenURL     = 20 // For exploring a URL not yet visited
	BonusRecentFail    = 10 // Retry incentive for recently failed items
	PenaltyNoDOMChange = 25 // Stagnation penalty
)

// BaseScore maps a priority level to its base score. The empty string
// defaults to MAY; any other unknown value scores 0.
func BaseScore(p types.Priority) int {
	switch p {
	case types.PriorityMust:
		return ScoreMust
	case types.PriorityShould:
		return ScoreShould
	case types.PriorityMay, "":
		return ScoreMay
	default:
		return 0
	}
}

// Score computes the priority score for a test item against the current
// exploration state. The result is always >= 0.
func Score(item types.TestItem, st *state.State) int {
	score := BaseScore(item.Priority)

	score += item.NewElements * BonusNewElements

	if item.TargetURL != "" && st.IsURLNew(item.TargetURL) {
		score += BonusUnseenURL
	}

	if st.WasTestFailed(string(item.ID)) {
		score += BonusRecentFail
	}

	if item.NoDOMChange {
		score -= PenaltyNoDOMChange
	}

	if score < 0 {
		return 0
	}
	return score
}

// Breakdown carries the total score plus each additive/subtractive term,
// for logging. The penalty term is reported as a negative number.
type Breakdown struct {
	Total           int `json:"total_score"`
	Base            int `json:"base_priority_score"`
	DOMBonus        int `json:"dom_bonus"`
	URLBonus        int `json:"url_bonus"`
	FailBonus       int `json:"fail_bonus"`
	NoChangePenalty int `json:"no_change_penalty"` // <= 0
	NewElements     int `json:"new_elements_count"`
}

// ComputeBreakdown returns the same total as Score together with the
// individual terms that produced it.
func ComputeBreakdown(item types.TestItem, st *state.State) Breakdown {
	b := Breakdown{
		Base:        BaseScore(item.Priority),
		DOMBonus:    item.NewElements * BonusNewElements,
		NewElements: item.NewElements,
	}

	if item.TargetURL != "" && st.IsURLNew(item.TargetURL) {
		b.URLBonus = BonusUnseenURL
	}

	if st.WasTestFailed(string(item.ID)) {
		b.FailBonus = BonusRecentFail
	}

	if item.NoDOMChange {
		b.NoChangePenalty = -PenaltyNoDOMChange
	}

	total := b.Base + b.DOMBonus + b.URLBonus + b.FailBonus + b.NoChangePenalty
	if total < 0 {
		total = 0
	}
	b.Total = total

	return b
}
