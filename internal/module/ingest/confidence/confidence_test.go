package confidence_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"txledger/internal/module/ingest/confidence"
	"txledger/internal/module/ingest/history"
)

func TestCalculate_NoHistoricalMatchesUsesAIOnly(t *testing.T) {
	b := confidence.Calculate(confidence.Inputs{AIConfidence: 80}, confidence.DefaultWeights())
	assert.InDelta(t, 80*0.6, b.Final, 0.01)
}

func TestCalculate_ConsensusAddsBonus(t *testing.T) {
	catID := uuid.New()
	matches := []history.SimilarityMatch{
		{Candidate: history.Candidate{CategoryID: catID}, Score: 90, WeightedScore: 90},
		{Candidate: history.Candidate{CategoryID: catID}, Score: 90, WeightedScore: 90},
	}
	suggestion := &history.Suggestion{Found: true, CategoryID: catID}

	withConsensus := confidence.Calculate(confidence.Inputs{
		AIConfidence: 80, AICategoryID: catID, HistoricalMatches: matches, HistoricalSuggestion: suggestion,
	}, confidence.DefaultWeights())

	withoutHistory := confidence.Calculate(confidence.Inputs{AIConfidence: 80}, confidence.DefaultWeights())

	assert.Greater(t, withConsensus.Final, withoutHistory.Final)
	assert.Equal(t, 15.0, withConsensus.ConsensusBonus)
}

func TestCalculate_ConflictAppliesPenalty(t *testing.T) {
	aiCat := uuid.New()
	historicalCat := uuid.New()
	matches := []history.SimilarityMatch{
		{Candidate: history.Candidate{CategoryID: historicalCat}, Score: 90, WeightedScore: 90},
		{Candidate: history.Candidate{CategoryID: historicalCat}, Score: 90, WeightedScore: 90},
	}
	suggestion := &history.Suggestion{Found: true, CategoryID: historicalCat}

	b := confidence.Calculate(confidence.Inputs{
		AIConfidence: 80, AICategoryID: aiCat, HistoricalMatches: matches, HistoricalSuggestion: suggestion,
	}, confidence.DefaultWeights())

	assert.Equal(t, -15.0, b.ConflictPenalty)
}

func TestCalculate_ConflictScaledForManualOverrides(t *testing.T) {
	aiCat := uuid.New()
	historicalCat := uuid.New()
	matches := []history.SimilarityMatch{
		{Candidate: history.Candidate{CategoryID: historicalCat, IsManualOverride: true}, Score: 90, WeightedScore: 180},
		{Candidate: history.Candidate{CategoryID: historicalCat, IsManualOverride: true}, Score: 90, WeightedScore: 180},
	}
	suggestion := &history.Suggestion{Found: true, CategoryID: historicalCat}

	b := confidence.Calculate(confidence.Inputs{
		AIConfidence: 80, AICategoryID: aiCat, HistoricalMatches: matches, HistoricalSuggestion: suggestion,
	}, confidence.DefaultWeights())

	assert.Equal(t, -22.5, b.ConflictPenalty)
}

func TestCalculate_BelowMinMatchesIgnoresSuggestion(t *testing.T) {
	catID := uuid.New()
	matches := []history.SimilarityMatch{
		{Candidate: history.Candidate{CategoryID: catID}, Score: 90, WeightedScore: 90},
	}
	suggestion := &history.Suggestion{Found: true, CategoryID: catID}

	b := confidence.Calculate(confidence.Inputs{
		AIConfidence: 80, AICategoryID: catID, HistoricalMatches: matches, HistoricalSuggestion: suggestion,
	}, confidence.DefaultWeights())

	assert.Equal(t, 0.0, b.ConsensusBonus)
}

func TestCalculate_ClampedToRange(t *testing.T) {
	b := confidence.Calculate(confidence.Inputs{AIConfidence: 1000}, confidence.DefaultWeights())
	assert.LessOrEqual(t, b.Final, 100.0)
	assert.GreaterOrEqual(t, b.Final, 0.0)
}
