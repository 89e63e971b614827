// Package history is the Historical Pattern Learner (C8): finds similar
// past transactions for a target and aggregates them into a category
// suggestion with a confidence estimate.
package history

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"txledger/internal/module/ingest/txdomain"
)

// MatchType ranks which rule produced a SimilarityMatch; exact beats fuzzy
// beats amount-range when deduplicating (spec section 4.8).
type MatchType int

const (
	MatchExact MatchType = iota
	MatchFuzzy
	MatchAmountRange
)

// Target is the transaction being matched against history.
type Target struct {
	NormalizedDescription string
	GBPAmount             float64
}

// Candidate is one past CATEGORISED transaction eligible for matching.
type Candidate struct {
	TransactionID         uuid.UUID
	NormalizedDescription string
	GBPAmount             float64
	TransactionDate       time.Time
	CategoryID            uuid.UUID
	CategoryName          string
	IsManualOverride      bool
}

// SimilarityMatch is one scored candidate after dedup and weighting.
type SimilarityMatch struct {
	Candidate      Candidate
	Type           MatchType
	Score          float64
	WeightedScore  float64
}

// Params carries the tunable knobs spec section 6 names for C8.
type Params struct {
	LookbackDays         int
	FuzzyThreshold       float64 // 0-1 fraction (config stores 0.6, not 60)
	AmountTolerance      float64
	ManualOverrideWeight float64
}

func DefaultParams() Params {
	return Params{LookbackDays: 90, FuzzyThreshold: 0.6, AmountTolerance: 0.10, ManualOverrideWeight: 2.0}
}

// FilterCandidatePool keeps only candidates dated within lookback_days of
// asOf (spec section 4.8's candidate pool definition). It does not look at
// status; callers pass candidates already restricted to CATEGORISED rows.
func FilterCandidatePool(all []Candidate, asOf time.Time, lookbackDays int) []Candidate {
	cutoff := asOf.AddDate(0, 0, -lookbackDays)
	out := make([]Candidate, 0, len(all))
	for _, c := range all {
		if !c.TransactionDate.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out
}

// FindSimilar implements find_similar(target, history, limit).
func FindSimilar(target Target, pool []Candidate, limit int, params Params) []SimilarityMatch {
	byCandidate := make(map[uuid.UUID]SimilarityMatch, len(pool))

	for _, c := range pool {
		match, ok := scoreCandidate(target, c, params)
		if !ok {
			continue
		}
		existing, seen := byCandidate[c.TransactionID]
		if !seen || better(match, existing) {
			byCandidate[c.TransactionID] = match
		}
	}

	matches := make([]SimilarityMatch, 0, len(byCandidate))
	for _, m := range byCandidate {
		m.WeightedScore = m.Score
		if m.Candidate.IsManualOverride {
			m.WeightedScore = m.Score * params.ManualOverrideWeight
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].WeightedScore > matches[j].WeightedScore
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// better prefers exact over fuzzy over amount-range when the same candidate
// qualifies under multiple rules (spec section 4.8 dedup ordering), then the
// higher raw score.
func better(a, b SimilarityMatch) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.Score > b.Score
}

func scoreCandidate(target Target, c Candidate, params Params) (SimilarityMatch, bool) {
	if target.NormalizedDescription == c.NormalizedDescription {
		return SimilarityMatch{Candidate: c, Type: MatchExact, Score: 100}, true
	}

	if sim := jaccard(target.NormalizedDescription, c.NormalizedDescription); sim >= params.FuzzyThreshold {
		return SimilarityMatch{Candidate: c, Type: MatchFuzzy, Score: sim * 100}, true
	}

	if target.GBPAmount != 0 {
		relDiff := math.Abs(target.GBPAmount-c.GBPAmount) / math.Abs(target.GBPAmount)
		if relDiff <= params.AmountTolerance {
			score := (1 - relDiff/params.AmountTolerance) * 100
			return SimilarityMatch{Candidate: c, Type: MatchAmountRange, Score: score}, true
		}
	}

	return SimilarityMatch{}, false
}

// jaccard computes token-set similarity |A∩B| / |A∪B| over whitespace-split
// tokens of already-normalized descriptions.
func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	tokens := strings.Fields(s)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// Suggestion is suggest_category's {category_id, category_name, confidence}
// result; nil-equivalent is the zero value with Found=false.
type Suggestion struct {
	Found        bool
	CategoryID   uuid.UUID
	CategoryName string
	Confidence   float64
}

// SuggestCategory aggregates weighted scores per category and returns the
// winner, per spec section 4.8. Confidence blends agreement ratio and
// match-quality average, plus a +10 bonus when the winner has any
// manual-override backing, capped to [0,100].
func SuggestCategory(matches []SimilarityMatch) Suggestion {
	if len(matches) == 0 {
		return Suggestion{}
	}

	type agg struct {
		name            string
		totalWeighted   float64
		totalScore      float64
		count           int
		hasManualOverride bool
	}
	byCategory := make(map[uuid.UUID]*agg)

	for _, m := range matches {
		a, ok := byCategory[m.Candidate.CategoryID]
		if !ok {
			a = &agg{name: m.Candidate.CategoryName}
			byCategory[m.Candidate.CategoryID] = a
		}
		a.totalWeighted += m.WeightedScore
		a.totalScore += m.Score
		a.count++
		if m.Candidate.IsManualOverride {
			a.hasManualOverride = true
		}
	}

	var winnerID uuid.UUID
	var winner *agg
	for id, a := range byCategory {
		if winner == nil || a.totalWeighted > winner.totalWeighted {
			winnerID, winner = id, a
		}
	}

	agreementRatio := float64(winner.count) / float64(len(matches))
	avgQuality := winner.totalScore / float64(winner.count)
	confidence := agreementRatio*50 + avgQuality*0.5
	if winner.hasManualOverride {
		confidence += 10
	}
	confidence = clamp(confidence, 0, 100)

	return Suggestion{Found: true, CategoryID: winnerID, CategoryName: winner.name, Confidence: confidence}
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
