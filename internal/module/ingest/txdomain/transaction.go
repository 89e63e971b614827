// Package txdomain holds the core entities the ingestion engine evolves:
// Transaction, Category, and the enums attached to them. It has no
// dependency on ports or any infrastructure package, matching the teacher's
// domain/ convention of keeping entity shapes free of service logic.
package txdomain

import (
	"time"

	"github.com/google/uuid"

	"txledger/internal/money"
)

// Direction mirrors the teacher's DEBIT/CREDIT enum (transaction/domain/enum.go).
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// ProcessingStatus is the C1 Status Manager's state machine domain.
type ProcessingStatus string

const (
	StatusUnprocessed ProcessingStatus = "UNPROCESSED"
	StatusNormalised  ProcessingStatus = "NORMALISED"
	StatusCategorised ProcessingStatus = "CATEGORISED"
	StatusError       ProcessingStatus = "ERROR"
)

// Transaction is the single evolving record (spec section 3). Exclusively
// owned by the Result Store and mutated only via the status manager (C1);
// every other component receives read-only views or new field values.
type Transaction struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	// Origin
	BankSourceID          string `gorm:"uniqueIndex:idx_bank_source_dedup_key;not null"`
	OriginalTransactionID string `gorm:"index;not null"`

	// Content
	TransactionDate time.Time `gorm:"not null"`
	Description     string    `gorm:"not null"`
	TransactionType Direction `gorm:"type:varchar(16);not null"`
	Notes           string
	Country         string

	// Amounts
	OriginalAmountValue    money.Amount `gorm:"type:decimal(18,2);not null"`
	OriginalAmountCurrency string       `gorm:"type:varchar(3);not null"`
	GBPAmountValue         money.Amount `gorm:"type:decimal(18,2);not null"`
	ExchangeRateValue      *money.Rate  `gorm:"type:decimal(18,6)"`

	// Categorization
	CategoryAIID           *uuid.UUID `gorm:"type:uuid"`
	CategoryAIName         string
	CategoryConfidenceScore *float64
	CategoryManualID       *uuid.UUID `gorm:"type:uuid"`
	CategoryManualName     string

	// Lifecycle
	ProcessingStatus      ProcessingStatus `gorm:"type:varchar(16);not null;index"`
	ErrorMessage           string
	TimestampCreated       time.Time `gorm:"not null"`
	TimestampLastModified  time.Time `gorm:"not null"`
	TimestampNormalised    *time.Time
	TimestampCategorised   *time.Time

	// DedupKey is the engine's own bookkeeping column (not in spec section 6's
	// ResultStore column list, which only lists the spreadsheet-facing
	// projection) used by C5 to detect re-submission idempotently. The
	// composite unique index makes a concurrent re-append of the same row
	// idempotent at the database level (spec section 5).
	DedupKey string `gorm:"uniqueIndex:idx_bank_source_dedup_key;not null"`
}

func (Transaction) TableName() string { return "transactions" }

// EffectiveCategoryID returns the manual category if present, else the AI
// one — testable property 4 (manual precedence).
func (t Transaction) EffectiveCategoryID() *uuid.UUID {
	if t.CategoryManualID != nil {
		return t.CategoryManualID
	}
	return t.CategoryAIID
}

// EffectiveCategoryName mirrors EffectiveCategoryID for the derived
// `category` column the Result Store computes (spec section 6).
func (t Transaction) EffectiveCategoryName() string {
	if t.CategoryManualName != "" {
		return t.CategoryManualName
	}
	return t.CategoryAIName
}

// IsTerminal reports whether no further pipeline transition is expected.
func (t Transaction) IsTerminal() bool {
	return t.ProcessingStatus == StatusCategorised || t.ProcessingStatus == StatusError
}
