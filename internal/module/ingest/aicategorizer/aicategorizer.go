// Package aicategorizer is the AI Categorizer (C10): it batches normalised
// transactions that still lack both a manual and an AI category, builds a
// historical-context hint from C8 for each batch, calls the AI Port (C14),
// and folds the result back through the Confidence Calculator (C9) before
// handing transitions to the Status Manager (C1). Categorize rejects any
// UNPROCESSED input.
package aicategorizer

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"txledger/internal/module/ingest/confidence"
	"txledger/internal/module/ingest/history"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/retry"
	"txledger/internal/module/ingest/status"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/module/ingest/validate"
)

// Params mirrors spec section 6's AI Categorizer knobs.
type Params struct {
	BatchSize   int
	ContextSize int
}

func DefaultParams() Params {
	return Params{BatchSize: 10, ContextSize: 5}
}

// FailureReason is used when a batch otherwise succeeds but a given
// transaction has no corresponding entry in the Port's response.
const FailureReason = "No categorization result"

// Failure records one transaction that could not be categorised in this run.
type Failure struct {
	TransactionID uuid.UUID
	Reason        string
}

// Outcome is categorize()'s return shape: {categorised[], failed[], total}.
type Outcome struct {
	Categorised []uuid.UUID
	Failed      []Failure
	Total       int
}

// Categorizer wires the AI Port, the historical pattern learner, the
// confidence calculator, and the status manager together.
type Categorizer struct {
	port      ports.AICategorizationPort
	resolver  categoryLookup
	statusMgr *status.Manager
	weights   confidence.Weights
	retry     retry.Policy
	params    Params
}

// categoryLookup is the minimal surface aicategorizer needs from C7's
// resolver — by-ID lookup for active/inactive filtering.
type categoryLookup interface {
	ByID(id uuid.UUID) (*txdomain.Category, bool)
}

func New(port ports.AICategorizationPort, resolver categoryLookup, statusMgr *status.Manager, weights confidence.Weights, retryPolicy retry.Policy, params Params) *Categorizer {
	return &Categorizer{port: port, resolver: resolver, statusMgr: statusMgr, weights: weights, retry: retryPolicy, params: params}
}

// HistoricalLookup is injected so the caller controls how candidate pools
// are sourced (direct query vs C8's Redis-backed cache).
type HistoricalLookup func(tx txdomain.Transaction) ([]history.SimilarityMatch, *history.Suggestion)

// FilterEligible returns the subset of transactions C10 may operate on:
// category_manual_id and category_ai_id both null (spec section 4.10).
// Callers are expected to run this before Categorize rather than have a
// mixed batch fail outright.
func FilterEligible(transactions []txdomain.Transaction) []txdomain.Transaction {
	eligible := make([]txdomain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.CategoryManualID == nil && tx.CategoryAIID == nil {
			eligible = append(eligible, tx)
		}
	}
	return eligible
}

// Categorize implements C10's contract: reject an empty active-category
// set, reject any transaction still UNPROCESSED (normalization is a hard
// precondition), and process each batch independently so one batch's
// failure never blocks another. Transactions that already carry a category
// are not an error here — callers use FilterEligible to exclude them.
func (c *Categorizer) Categorize(ctx context.Context, transactions []txdomain.Transaction, activeCategories []ports.AICategoryInfo, lookup HistoricalLookup) (Outcome, error) {
	if len(activeCategories) == 0 {
		return Outcome{}, fmt.Errorf("aicategorizer: no active categories available")
	}
	for _, tx := range transactions {
		if tx.ProcessingStatus == txdomain.StatusUnprocessed {
			return Outcome{}, fmt.Errorf("aicategorizer: transaction %s is UNPROCESSED, must be normalised first", tx.ID)
		}
	}

	out := Outcome{Total: len(transactions)}
	for _, batch := range splitBatches(transactions, c.params.BatchSize) {
		categorised, failed := c.processBatch(ctx, batch, activeCategories, lookup)
		out.Categorised = append(out.Categorised, categorised...)
		out.Failed = append(out.Failed, failed...)
	}
	return out, nil
}

func (c *Categorizer) processBatch(ctx context.Context, batch []txdomain.Transaction, activeCategories []ports.AICategoryInfo, lookup HistoricalLookup) ([]uuid.UUID, []Failure) {
	input := make([]ports.AITransactionInput, len(batch))
	byID := make(map[uuid.UUID]txdomain.Transaction, len(batch))
	matchesByID := make(map[uuid.UUID][]history.SimilarityMatch, len(batch))
	suggestionByID := make(map[uuid.UUID]*history.Suggestion, len(batch))

	for i, tx := range batch {
		input[i] = ports.AITransactionInput{
			ID:              tx.ID,
			Description:     tx.Description,
			GBPAmount:       tx.GBPAmountValue,
			TransactionDate: tx.TransactionDate,
		}
		byID[tx.ID] = tx
		if lookup != nil {
			matches, suggestion := lookup(tx)
			matchesByID[tx.ID] = matches
			suggestionByID[tx.ID] = suggestion
		}
	}

	historicalContext := buildContext(batch, matchesByID, c.params.ContextSize)

	var results []ports.AICategorizationResult
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		r, callErr := c.port.CategorizeBatch(ctx, input, activeCategories, historicalContext)
		if callErr != nil {
			return callErr
		}
		results = r
		return nil
	})
	if err != nil {
		failed := make([]Failure, len(batch))
		reason := validate.SanitizeErrorMessage(err.Error())
		for i, tx := range batch {
			failed[i] = Failure{TransactionID: tx.ID, Reason: reason}
		}
		return nil, failed
	}

	resultByTx := make(map[uuid.UUID]ports.AICategorizationResult, len(results))
	for _, r := range results {
		resultByTx[r.TransactionID] = r
	}

	var categorised []uuid.UUID
	var failed []Failure
	for _, tx := range batch {
		result, ok := resultByTx[tx.ID]
		if !ok {
			failed = append(failed, Failure{TransactionID: tx.ID, Reason: FailureReason})
			continue
		}
		if result.ConfidenceScore < 0 || result.ConfidenceScore > 100 {
			failed = append(failed, Failure{TransactionID: tx.ID, Reason: validate.SanitizeErrorMessage(fmt.Sprintf("confidence_score %v out of [0,100] range", result.ConfidenceScore))})
			continue
		}
		if cat, ok := c.resolver.ByID(result.CategoryID); !ok || !cat.IsActive {
			failed = append(failed, Failure{TransactionID: tx.ID, Reason: "returned category_id is not an active category"})
			continue
		}

		breakdown := confidence.Calculate(confidence.Inputs{
			AIConfidence:         result.ConfidenceScore,
			AICategoryID:         result.CategoryID,
			HistoricalMatches:    matchesByID[tx.ID],
			HistoricalSuggestion: suggestionByID[tx.ID],
		}, c.weights)

		updated := tx
		updated.CategoryAIID = &result.CategoryID
		updated.CategoryAIName = result.CategoryName
		finalScore := breakdown.Final
		updated.CategoryConfidenceScore = &finalScore
		updated.ErrorMessage = ""

		if err := c.statusMgr.MarkCategorised(&updated); err != nil {
			failed = append(failed, Failure{TransactionID: tx.ID, Reason: validate.SanitizeErrorMessage(err.Error())})
			continue
		}
		categorised = append(categorised, tx.ID)
	}
	return categorised, failed
}

func splitBatches(transactions []txdomain.Transaction, batchSize int) [][]txdomain.Transaction {
	if batchSize <= 0 {
		batchSize = 10
	}
	var batches [][]txdomain.Transaction
	for i := 0; i < len(transactions); i += batchSize {
		end := i + batchSize
		if end > len(transactions) {
			end = len(transactions)
		}
		batches = append(batches, transactions[i:end])
	}
	return batches
}

// buildContext deduplicates historical matches by (description, category_id)
// across the whole batch, then caps the result at context_size * batch_size
// per spec section 4.10.
func buildContext(batch []txdomain.Transaction, matchesByID map[uuid.UUID][]history.SimilarityMatch, contextSize int) []ports.AIContextEntry {
	type key struct {
		description string
		categoryID  uuid.UUID
	}
	seen := make(map[key]bool)
	var entries []ports.AIContextEntry

	for _, tx := range batch {
		for _, m := range matchesByID[tx.ID] {
			k := key{description: m.Candidate.NormalizedDescription, categoryID: m.Candidate.CategoryID}
			if seen[k] {
				continue
			}
			seen[k] = true
			score := m.Score
			entries = append(entries, ports.AIContextEntry{
				Description:       m.Candidate.NormalizedDescription,
				CategoryID:        m.Candidate.CategoryID,
				CategoryName:      m.Candidate.CategoryName,
				WasManualOverride: m.Candidate.IsManualOverride,
				ConfidenceScore:   &score,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return *entries[i].ConfidenceScore > *entries[j].ConfidenceScore
	})

	limit := contextSize * len(batch)
	if limit <= 0 {
		limit = len(entries)
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
