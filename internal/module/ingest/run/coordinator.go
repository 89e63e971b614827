// Package run is the Run Coordinator (C12): it owns ProcessingRun
// lifecycle, rejects concurrent runs of the same type, fans normalization
// work out to C6 across a semaphore-bounded worker pool, and hands a
// categorization run's candidates to C10 in a single call, grounded on the
// teacher's broker/worker sync worker.
package run

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"txledger/internal/module/ingest/aicategorizer"
	"txledger/internal/module/ingest/currency"
	"txledger/internal/module/ingest/normalize"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/module/ingest/validate"
)

// AlreadyRunningError is returned when a run of the same type is already
// in flight (spec section 5: "concurrent attempts ... MUST be rejected").
type AlreadyRunningError struct {
	Type txdomain.RunType
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("run: a %s run is already in progress", e.Type)
}

// SourceRecord pairs one raw record with the source it came from, so the
// worker pool can dispatch it to the right adapter.
type SourceRecord struct {
	BankSourceID string
	RowIndex     int
	Raw          ports.RawRecord
}

// Config bounds the coordinator's concurrency. NormalizationWorkers caps the
// normalization worker pool; CategorizationWorkers is not read by
// RunCategorization.
type Config struct {
	NormalizationWorkers  int
	CategorizationWorkers int
}

func DefaultConfig() Config {
	return Config{NormalizationWorkers: 8, CategorizationWorkers: 2}
}

// Coordinator implements C12's two operations. One mutex per run type
// enforces the single-writer-per-phase rule; a normalization run and a
// categorization run may proceed concurrently.
type Coordinator struct {
	sourceStore    ports.SourceStore
	resultStore    ports.ResultStore
	categoryStore  ports.CategoriesStore
	runStore       ports.RunStore
	pipeline       *normalize.Pipeline
	categorizer    *aicategorizer.Categorizer
	clock          ports.Clock
	logger         ports.Logger
	config         Config

	normMu sync.Mutex
	catMu  sync.Mutex
}

func NewCoordinator(
	sourceStore ports.SourceStore,
	resultStore ports.ResultStore,
	categoryStore ports.CategoriesStore,
	runStore ports.RunStore,
	pipeline *normalize.Pipeline,
	categorizer *aicategorizer.Categorizer,
	clock ports.Clock,
	logger ports.Logger,
	config Config,
) *Coordinator {
	return &Coordinator{
		sourceStore:   sourceStore,
		resultStore:   resultStore,
		categoryStore: categoryStore,
		runStore:      runStore,
		pipeline:      pipeline,
		categorizer:   categorizer,
		clock:         clock,
		logger:        logger,
		config:        config,
	}
}

// StopSignal is polled cooperatively between transactions/batches (spec
// section 5). A nil StopSignal means the run cannot be cancelled.
type StopSignal func() bool

// RunNormalization implements run_normalization(): for each active source,
// reads all raw records, feeds them to C6, and appends successful
// Transactions to the Result Store. Failures are logged against the run;
// partial success is the default outcome.
func (c *Coordinator) RunNormalization(ctx context.Context, stop StopSignal) (*txdomain.ProcessingRun, error) {
	if !c.normMu.TryLock() {
		return nil, &AlreadyRunningError{Type: txdomain.RunTypeNormalisation}
	}
	defer c.normMu.Unlock()

	runRecord := &txdomain.ProcessingRun{
		ID:        uuid.New(),
		Type:      txdomain.RunTypeNormalisation,
		Status:    txdomain.RunStatusRunning,
		StartedAt: c.clock.Now(),
	}
	if err := c.runStore.Create(ctx, runRecord); err != nil {
		return nil, fmt.Errorf("run: failed to create run record: %w", err)
	}

	sources, err := c.sourceStore.ListActiveSources(ctx)
	if err != nil {
		c.failRun(ctx, runRecord, err)
		return runRecord, err
	}

	snapshot := currency.NewSnapshot()

	var succeeded, failed int64
	var failureDetails []string
	var detailsMu sync.Mutex
	cancelled := false

	for _, src := range sources {
		if stop != nil && stop() {
			cancelled = true
			break
		}

		records, err := c.sourceStore.ReadRaw(ctx, src)
		if err != nil {
			detailsMu.Lock()
			failureDetails = append(failureDetails, validate.SanitizeErrorMessage(fmt.Sprintf("source %s: %v", src.ID, err)))
			detailsMu.Unlock()
			atomic.AddInt64(&failed, 1)
			continue
		}

		workers := c.config.NormalizationWorkers
		if workers <= 0 {
			workers = 1
		}
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup

		for i, raw := range records {
			if stop != nil && stop() {
				cancelled = true
				break
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(rowIndex int, raw ports.RawRecord) {
				defer wg.Done()
				defer func() { <-sem }()

				outcome := c.pipeline.Normalize(ctx, src.ID, rowIndex, raw, snapshot)
				switch {
				case outcome.Err != nil:
					atomic.AddInt64(&failed, 1)
					detailsMu.Lock()
					failureDetails = append(failureDetails, validate.SanitizeErrorMessage(fmt.Sprintf("%s row %d: %v", src.ID, rowIndex, outcome.Err)))
					detailsMu.Unlock()
				case outcome.Skipped:
					// duplicate: neither success nor failure
				default:
					appended, err := c.resultStore.Append(ctx, outcome.Transaction)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						detailsMu.Lock()
						failureDetails = append(failureDetails, validate.SanitizeErrorMessage(fmt.Sprintf("%s row %d: append failed: %v", src.ID, rowIndex, err)))
						detailsMu.Unlock()
						return
					}
					if appended {
						atomic.AddInt64(&succeeded, 1)
					}
				}
			}(i, raw)
		}
		wg.Wait()
	}

	runRecord.SucceededCount = int(succeeded)
	runRecord.FailedCount = int(failed)
	runRecord.TotalCount = int(succeeded + failed)
	runRecord.FailureDetails = failureDetails
	runRecord.Cancelled = cancelled
	runRecord.Finish(c.clock.Now())

	if err := c.runStore.Save(ctx, runRecord); err != nil {
		c.logger.Error("run: failed to persist completed normalization run", zap.Error(err))
	}
	c.logger.Info("normalization run finished",
		zap.String("run_id", runRecord.ID.String()),
		zap.String("status", string(runRecord.Status)),
		zap.Int("succeeded", runRecord.SucceededCount),
		zap.Int("failed", runRecord.FailedCount),
	)
	return runRecord, nil
}

// RunCategorization implements run_categorization(): queries the Result
// Store for eligible transactions, loads active categories, hands batches
// to C10 via the categorizer, and records per-transaction outcomes.
func (c *Coordinator) RunCategorization(ctx context.Context, allowRecategorization bool, lookup aicategorizer.HistoricalLookup, stop StopSignal) (*txdomain.ProcessingRun, error) {
	if !c.catMu.TryLock() {
		return nil, &AlreadyRunningError{Type: txdomain.RunTypeCategorisation}
	}
	defer c.catMu.Unlock()

	runRecord := &txdomain.ProcessingRun{
		ID:        uuid.New(),
		Type:      txdomain.RunTypeCategorisation,
		Status:    txdomain.RunStatusRunning,
		StartedAt: c.clock.Now(),
	}
	if err := c.runStore.Create(ctx, runRecord); err != nil {
		return nil, fmt.Errorf("run: failed to create run record: %w", err)
	}

	hasManual := false
	filter := ports.ResultStoreFilter{
		Status:                []txdomain.ProcessingStatus{txdomain.StatusNormalised},
		HasManualOverride:     &hasManual,
		AllowRecategorization: allowRecategorization,
	}
	candidates, err := c.resultStore.Query(ctx, filter)
	if err != nil {
		c.failRun(ctx, runRecord, err)
		return runRecord, err
	}
	// A plain run only ever sees NORMALISED transactions from the query
	// filter above, but FilterEligible is applied defensively so a stray
	// already-AI-categorised row can never reach C10 outside of an explicit
	// recategorization run.
	if !allowRecategorization {
		candidates = aicategorizer.FilterEligible(candidates)
	}

	categories, err := c.categoryStore.List(ctx)
	if err != nil {
		c.failRun(ctx, runRecord, err)
		return runRecord, err
	}
	activeCategories := make([]ports.AICategoryInfo, 0, len(categories))
	for _, cat := range categories {
		if !cat.IsActive {
			continue
		}
		activeCategories = append(activeCategories, ports.AICategoryInfo{
			ID:          cat.ID,
			Name:        cat.Name,
			Description: cat.Description,
			Examples:    []string(cat.Examples),
		})
	}

	cancelled := false
	if stop != nil && stop() {
		cancelled = true
		candidates = nil
	}

	var succeeded, failed int
	var failureDetails []string
	if len(activeCategories) == 0 && len(candidates) > 0 {
		failureDetails = append(failureDetails, "categorization aborted: no active categories")
		failed = len(candidates)
	} else if len(candidates) > 0 {
		outcome, err := c.categorizer.Categorize(ctx, candidates, activeCategories, lookup)
		if err != nil {
			c.failRun(ctx, runRecord, err)
			return runRecord, err
		}
		succeeded = len(outcome.Categorised)
		failed = len(outcome.Failed)
		for _, f := range outcome.Failed {
			failureDetails = append(failureDetails, validate.SanitizeErrorMessage(fmt.Sprintf("%s: %s", f.TransactionID, f.Reason)))
		}
		for _, txID := range outcome.Categorised {
			var tx *txdomain.Transaction
			for i := range candidates {
				if candidates[i].ID == txID {
					tx = &candidates[i]
					break
				}
			}
			if tx == nil {
				continue
			}
			if err := c.resultStore.Update(ctx, tx.ID, ports.FieldChanges{
				"category_ai_id":           tx.CategoryAIID,
				"category_ai_name":         tx.CategoryAIName,
				"category_confidence_score": tx.CategoryConfidenceScore,
				"processing_status":        tx.ProcessingStatus,
				"error_message":            tx.ErrorMessage,
				"timestamp_categorised":    tx.TimestampCategorised,
				"timestamp_last_modified":  tx.TimestampLastModified,
			}); err != nil {
				c.logger.Error("run: failed to persist categorization result", zap.String("transaction_id", tx.ID.String()), zap.Error(err))
			}
		}
	}

	runRecord.SucceededCount = succeeded
	runRecord.FailedCount = failed
	runRecord.TotalCount = succeeded + failed
	runRecord.FailureDetails = failureDetails
	runRecord.Cancelled = cancelled
	runRecord.Finish(c.clock.Now())

	if err := c.runStore.Save(ctx, runRecord); err != nil {
		c.logger.Error("run: failed to persist completed categorization run", zap.Error(err))
	}
	c.logger.Info("categorization run finished",
		zap.String("run_id", runRecord.ID.String()),
		zap.String("status", string(runRecord.Status)),
		zap.Int("succeeded", runRecord.SucceededCount),
		zap.Int("failed", runRecord.FailedCount),
	)
	return runRecord, nil
}

func (c *Coordinator) failRun(ctx context.Context, runRecord *txdomain.ProcessingRun, err error) {
	runRecord.FailureDetails = []string{validate.SanitizeErrorMessage(err.Error())}
	runRecord.Finish(c.clock.Now())
	if saveErr := c.runStore.Save(ctx, runRecord); saveErr != nil {
		c.logger.Error("run: failed to persist failed run", zap.Error(saveErr))
	}
}
