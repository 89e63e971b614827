// Package normalize is the Transaction Normalizer (C6): composes the
// adapter, validator, duplicate detector, and currency converter into the
// single pipeline that turns one raw record into a NORMALISED Transaction.
package normalize

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"txledger/internal/money"
	"txledger/internal/module/ingest/currency"
	"txledger/internal/module/ingest/dedup"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/source"
	"txledger/internal/module/ingest/status"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/module/ingest/validate"
)

// Outcome is what Normalize produces for one raw record: either a
// Transaction ready for persistence, a skip (duplicate), or an error
// recorded against the run with the source row index.
type Outcome struct {
	Transaction *txdomain.Transaction
	Skipped     bool
	RowIndex    int
	Err         error
}

// Pipeline wires C2-C5 together; callers supply a fresh Snapshot per run so
// FX rates are shared within it (spec section 5).
type Pipeline struct {
	registry  *source.Registry
	detector  *dedup.Detector
	converter *currency.Converter
	statusMgr *status.Manager
	clock     ports.Clock
}

func NewPipeline(registry *source.Registry, detector *dedup.Detector, converter *currency.Converter, statusMgr *status.Manager, clock ports.Clock) *Pipeline {
	return &Pipeline{registry: registry, detector: detector, converter: converter, statusMgr: statusMgr, clock: clock}
}

// Normalize runs the exact 7-step order from spec section 4.6 for one raw
// record from the given bank source.
func (p *Pipeline) Normalize(ctx context.Context, bankSourceID string, rowIndex int, raw ports.RawRecord, snapshot *currency.Snapshot) Outcome {
	// Step 1: adapter parses raw columns into canonical fields.
	adapter, err := p.registry.Get(bankSourceID)
	if err != nil {
		return Outcome{RowIndex: rowIndex, Err: err}
	}
	rec, err := adapter.Canonicalize(raw)
	if err != nil {
		return Outcome{RowIndex: rowIndex, Err: err}
	}

	// Step 2: validator normalizes description and required fields
	// (date/amount/currency were already validated inside the adapter,
	// which calls directly into C2's contracts).
	description, err := validate.RequiredString("description", rec.Description)
	if err != nil {
		return Outcome{RowIndex: rowIndex, Err: err}
	}

	effectiveOriginalAmount := rec.OriginalAmountValue
	originalAmount := money.AmountFromFloat(effectiveOriginalAmount)

	dateISO := rec.TransactionDate.UTC().Format("2006-01-02T15:04:05Z07:00")

	// Step 3: duplicate key computed and checked; short-circuit on hit.
	stableKey := dedup.StableKey(bankSourceID, rec.OriginalTransactionID, dateISO, description, effectiveOriginalAmount, rec.OriginalAmountCurrency)
	isDup, err := p.detector.IsDuplicate(ctx, bankSourceID, stableKey)
	if err != nil {
		return Outcome{RowIndex: rowIndex, Err: err}
	}
	if isDup {
		return Outcome{RowIndex: rowIndex, Skipped: true}
	}

	// Step 4: ID backfill when the source lacks a native id.
	originalTransactionID := rec.OriginalTransactionID
	if originalTransactionID == "" {
		originalTransactionID = stableKey
	}

	tx := &txdomain.Transaction{
		ID:                     uuid.New(),
		BankSourceID:           bankSourceID,
		OriginalTransactionID:  originalTransactionID,
		TransactionDate:        rec.TransactionDate,
		Description:            description,
		TransactionType:        rec.TransactionType,
		Notes:                  rec.Notes,
		Country:                rec.Country,
		OriginalAmountValue:    originalAmount,
		OriginalAmountCurrency: rec.OriginalAmountCurrency,
		DedupKey:               stableKey,
		ProcessingStatus:       txdomain.StatusUnprocessed,
	}

	// Step 5: currency conversion, unless the adapter already supplied a
	// GBP-denominated column (preferred per spec section 4.3).
	if rec.GBPAmountValue != nil {
		tx.GBPAmountValue = money.AmountFromFloat(signedGBP(*rec.GBPAmountValue, rec.TransactionType))
	} else {
		result, err := p.converter.Convert(ctx, originalAmount, rec.OriginalAmountCurrency, snapshot)
		if err != nil {
			now := p.clock.Now()
			tx.TimestampCreated, tx.TimestampLastModified = now, now
			_ = p.statusMgr.MarkError(tx, fmt.Sprintf("currency conversion failed: %v", err))
			return Outcome{Transaction: tx, RowIndex: rowIndex}
		}
		tx.GBPAmountValue = money.AmountFromFloat(signedGBP(toFloat(result.GBPAmount), rec.TransactionType))
		tx.ExchangeRateValue = result.Rate
	}

	// Step 6: assemble with status = NORMALISED via C1.
	now := p.clock.Now()
	tx.TimestampCreated = now
	tx.TimestampLastModified = now
	if err := p.statusMgr.MarkNormalised(tx); err != nil {
		return Outcome{RowIndex: rowIndex, Err: err}
	}

	return Outcome{Transaction: tx, RowIndex: rowIndex}
}

// signedGBP forces the sign convention from spec section 4.3: DEBIT is
// always negative, CREDIT always positive, regardless of the source's own
// sign encoding.
func signedGBP(magnitude float64, direction txdomain.Direction) float64 {
	abs := magnitude
	if abs < 0 {
		abs = -abs
	}
	if direction == txdomain.DirectionDebit {
		return -abs
	}
	return abs
}

func toFloat(a money.Amount) float64 {
	f, _ := a.Decimal.Float64()
	return f
}
