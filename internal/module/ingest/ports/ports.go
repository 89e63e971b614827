// Package ports declares the interfaces the ingestion core depends on and
// the infrastructure layer (internal/adapter, gorm-backed stores) implements
// (C14). The core never imports a concrete adapter; only these interfaces.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"txledger/internal/money"
	"txledger/internal/module/ingest/txdomain"
)

// BankSource is the static, per-source configuration (spec section 3).
type BankSource struct {
	ID                     string
	DisplayName            string
	HasNativeTransactionID bool
	IsActive               bool
}

// RawRecord is a single source row after adapter parsing: canonical field
// name to parsed value. It is never a partial or mutated Transaction.
type RawRecord map[string]interface{}

// SourceStore reads raw rows from an external, out-of-core system (a
// spreadsheet, a CSV bucket, a bank API poller — implementation is an
// adapter concern).
type SourceStore interface {
	ListActiveSources(ctx context.Context) ([]BankSource, error)
	ReadRaw(ctx context.Context, source BankSource) ([]RawRecord, error)
	// WriteBackID is optional; adapters that don't support write-back
	// return nil without doing anything (spec section 9, open question 2).
	WriteBackID(ctx context.Context, source BankSource, rowIdentity string, id uuid.UUID) error
}

// ResultStoreFilter expresses the query predicate C12's categorization run
// uses to find candidate transactions.
type ResultStoreFilter struct {
	Status               []txdomain.ProcessingStatus
	HasManualOverride     *bool
	HasAICategory         *bool
	AllowRecategorization bool
	DateFrom              *time.Time
	DateTo                *time.Time
}

// FieldChanges is a sparse set of column updates applied atomically by the
// Result Store (spec section 5: "mutations go through it... atomic at row
// granularity").
type FieldChanges map[string]interface{}

// ResultStore is the sole owner of Transaction rows.
type ResultStore interface {
	Append(ctx context.Context, tx *txdomain.Transaction) (appended bool, err error)
	FindByKey(ctx context.Context, bankSourceID, stableKey string) (*txdomain.Transaction, error)
	Query(ctx context.Context, filter ResultStoreFilter) ([]txdomain.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, changes FieldChanges) error
	GetByID(ctx context.Context, id uuid.UUID) (*txdomain.Transaction, error)
}

// CategoriesStore lists all categories, active or not.
type CategoriesStore interface {
	List(ctx context.Context) ([]txdomain.Category, error)
}

// AICategoryInfo is the category summary sent to the AI Port.
type AICategoryInfo struct {
	ID          uuid.UUID
	Name        string
	Description string
	Examples    []string
}

// AIContextEntry is one historical example attached to a batch request.
type AIContextEntry struct {
	Description      string
	CategoryID       uuid.UUID
	CategoryName     string
	WasManualOverride bool
	ConfidenceScore  *float64
}

// AITransactionInput is what the Port sees per transaction — never the full
// Transaction row.
type AITransactionInput struct {
	ID              uuid.UUID
	Description     string
	GBPAmount       money.Amount
	TransactionDate time.Time
}

// AICategorizationResult is the Port's per-transaction verdict.
type AICategorizationResult struct {
	TransactionID   uuid.UUID
	CategoryID      uuid.UUID
	CategoryName    string
	ConfidenceScore float64
}

// AICategorizationPort wraps the LLM categorization call.
type AICategorizationPort interface {
	CategorizeBatch(ctx context.Context, transactions []AITransactionInput, categories []AICategoryInfo, historicalContext []AIContextEntry) ([]AICategorizationResult, error)
}

// ExchangeRatePort fetches a single base/target rate.
type ExchangeRatePort interface {
	GetRate(ctx context.Context, base, target string) (money.Rate, error)
}

// Clock is injected everywhere `now()` would otherwise be called directly,
// so tests can control time deterministically.
type Clock interface {
	Now() time.Time
}

// RunStore persists ProcessingRun records (C12). It is distinct from
// ResultStore because runs and transactions have independent lifecycles
// and are queried differently (dashboards vs. per-row mutation).
type RunStore interface {
	Create(ctx context.Context, run *txdomain.ProcessingRun) error
	Save(ctx context.Context, run *txdomain.ProcessingRun) error
}

// Logger is the leveled logging port (spec section 4.14). Callers must pass
// msg through validate.SanitizeErrorMessage first when it may carry
// user-supplied or external content — the port itself does no sanitization,
// the same division of responsibility as Transaction.ErrorMessage, which the
// status manager sanitizes and the ResultStore stores as given.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}
