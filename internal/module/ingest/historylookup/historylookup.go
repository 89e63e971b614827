// Package historylookup builds a live aicategorizer.HistoricalLookup for
// one run: it loads C8's CATEGORISED candidate pool (cache first, Result
// Store on miss) and closes over it so every transaction in the run is
// matched against the same snapshot rather than re-querying per batch.
//
// It cannot live inside the history package itself, since aicategorizer
// already imports history for the SimilarityMatch/Suggestion types — this
// package depends on both and sits above them instead.
package historylookup

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"txledger/internal/module/ingest/aicategorizer"
	"txledger/internal/module/ingest/history"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/txdomain"
)

const defaultMatchLimit = 5

// Builder assembles a HistoricalLookup for one categorization run.
type Builder struct {
	resultStore ports.ResultStore
	cache       *history.CandidatePoolCache
	clock       ports.Clock
	params      history.Params
	logger      ports.Logger
}

func NewBuilder(resultStore ports.ResultStore, cache *history.CandidatePoolCache, clock ports.Clock, params history.Params, logger ports.Logger) *Builder {
	return &Builder{resultStore: resultStore, cache: cache, clock: clock, params: params, logger: logger}
}

// Build loads the candidate pool for runID and returns a lookup closure
// reusing that pool for every transaction the run categorizes. A pool load
// failure degrades to a no-op lookup rather than failing the run — a
// missing history is not a reason to block categorization outright.
func (b *Builder) Build(ctx context.Context, runID string) aicategorizer.HistoricalLookup {
	pool, err := b.loadPool(ctx, runID)
	if err != nil {
		b.logger.Warn("historylookup: candidate pool unavailable, historical matching disabled for this run", zap.Error(err))
		pool = nil
	}

	return func(tx txdomain.Transaction) ([]history.SimilarityMatch, *history.Suggestion) {
		if len(pool) == 0 {
			return nil, nil
		}
		target := history.Target{
			NormalizedDescription: normalizeDescription(tx.Description),
			GBPAmount:             tx.GBPAmountValue.InexactFloat64(),
		}
		matches := history.FindSimilar(target, pool, defaultMatchLimit, b.params)
		if len(matches) == 0 {
			return nil, nil
		}
		suggestion := history.SuggestCategory(matches)
		return matches, &suggestion
	}
}

func (b *Builder) loadPool(ctx context.Context, runID string) ([]history.Candidate, error) {
	if b.cache != nil {
		if pool, ok, err := b.cache.Get(ctx, runID, b.params.LookbackDays); err == nil && ok {
			return pool, nil
		}
	}

	pool, err := b.queryPool(ctx)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		if err := b.cache.Set(ctx, runID, b.params.LookbackDays, pool); err != nil {
			b.logger.Warn("historylookup: failed to populate candidate pool cache", zap.Error(err))
		}
	}
	return pool, nil
}

func (b *Builder) queryPool(ctx context.Context) ([]history.Candidate, error) {
	cutoff := b.clock.Now().AddDate(0, 0, -b.params.LookbackDays)
	transactions, err := b.resultStore.Query(ctx, ports.ResultStoreFilter{
		Status:   []txdomain.ProcessingStatus{txdomain.StatusCategorised},
		DateFrom: &cutoff,
	})
	if err != nil {
		return nil, err
	}

	pool := make([]history.Candidate, 0, len(transactions))
	for _, tx := range transactions {
		categoryID := tx.EffectiveCategoryID()
		if categoryID == nil || *categoryID == uuid.Nil {
			continue
		}
		pool = append(pool, history.Candidate{
			TransactionID:         tx.ID,
			NormalizedDescription: normalizeDescription(tx.Description),
			GBPAmount:             tx.GBPAmountValue.InexactFloat64(),
			TransactionDate:       tx.TransactionDate,
			CategoryID:            *categoryID,
			CategoryName:          tx.EffectiveCategoryName(),
			IsManualOverride:      tx.CategoryManualID != nil,
		})
	}
	return pool, nil
}

// normalizeDescription applies the casing/whitespace fold C8's matching
// assumes: lowercased, collapsed to single-space-separated tokens.
func normalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
