// Package confidence is the Confidence Calculator (C9): a pure function
// blending the AI categorizer's own confidence with agreement/disagreement
// against the Historical Pattern Learner's suggestion.
package confidence

import (
	"github.com/google/uuid"

	"txledger/internal/module/ingest/history"
)

// Weights carries the configurable constants spec section 4.9 and
// section 6 name. Weights must sum to 1.0 +-0.01 (enforced by
// internal/config, not re-validated here).
type Weights struct {
	AIWeight             float64
	HistoricalWeight     float64
	ConsensusBonus       float64
	ConflictPenalty      float64
	MinHistoricalMatches int
	ManualOverrideBoost  float64
}

func DefaultWeights() Weights {
	return Weights{
		AIWeight:             0.6,
		HistoricalWeight:     0.4,
		ConsensusBonus:       15,
		ConflictPenalty:      -15,
		MinHistoricalMatches: 2,
		ManualOverrideBoost:  5,
	}
}

// Inputs is calculate()'s argument set.
type Inputs struct {
	AIConfidence         float64
	AICategoryID         uuid.UUID
	HistoricalMatches    []history.SimilarityMatch
	HistoricalSuggestion *history.Suggestion
}

// Breakdown is calculate()'s result, exposing every intermediate term so
// callers (and tests) can audit how the final score was reached.
type Breakdown struct {
	AIScore          float64
	HistoricalScore  float64
	ConsensusBonus   float64
	ConflictPenalty  float64
	Final            float64
}

// matchCountDamping implements the 1:0.7, 2:0.85, >=3:1.0 table.
func matchCountDamping(n int) float64 {
	switch {
	case n <= 0:
		return 0
	case n == 1:
		return 0.7
	case n == 2:
		return 0.85
	default:
		return 1.0
	}
}

// Calculate implements C9's calculate(inputs) -> Breakdown.
func Calculate(in Inputs, w Weights) Breakdown {
	aiScore := clamp(in.AIConfidence, 0, 100)

	historicalScore := historicalScore(in.HistoricalMatches, w)

	var consensus, conflictPenalty float64
	if len(in.HistoricalMatches) >= w.MinHistoricalMatches && in.HistoricalSuggestion != nil && in.HistoricalSuggestion.Found {
		manualBacking := countManualOverrideMatches(in.HistoricalMatches, in.HistoricalSuggestion.CategoryID)
		if in.AICategoryID == in.HistoricalSuggestion.CategoryID {
			bonus := w.ConsensusBonus + float64(manualBacking)*w.ManualOverrideBoost
			if bonus > w.ConsensusBonus+10 {
				bonus = w.ConsensusBonus + 10
			}
			consensus = bonus
		} else {
			penalty := w.ConflictPenalty
			if manualBacking > 0 {
				penalty *= 1.5
			}
			conflictPenalty = penalty
		}
	}

	final := aiScore*w.AIWeight + historicalScore*w.HistoricalWeight + consensus + conflictPenalty
	final = clamp(final, 0, 100)

	return Breakdown{
		AIScore:         aiScore,
		HistoricalScore: historicalScore,
		ConsensusBonus:  consensus,
		ConflictPenalty: conflictPenalty,
		Final:           final,
	}
}

// historicalScore averages weighted match scores, normalizes against the
// theoretical max (2x from manual-override weighting), and applies the
// match-count damping factor.
func historicalScore(matches []history.SimilarityMatch, w Weights) float64 {
	if len(matches) == 0 {
		return 0
	}
	var total float64
	for _, m := range matches {
		total += m.WeightedScore
	}
	avg := total / float64(len(matches))
	const theoreticalMax = 200.0 // score 100 * 2x manual-override weighting
	normalized := (avg / theoreticalMax) * 100
	return clamp(normalized, 0, 100) * matchCountDamping(len(matches))
}

func countManualOverrideMatches(matches []history.SimilarityMatch, categoryID uuid.UUID) int {
	n := 0
	for _, m := range matches {
		if m.Candidate.CategoryID == categoryID && m.Candidate.IsManualOverride {
			n++
		}
	}
	if n > 2 {
		n = 2 // bonus capped at +10 total (2 x ManualOverrideBoost=5)
	}
	return n
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
