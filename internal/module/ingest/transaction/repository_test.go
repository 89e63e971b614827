package transaction_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"txledger/internal/money"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/transaction"
	"txledger/internal/module/ingest/txdomain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlStmt := `
	CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		bank_source_id TEXT NOT NULL,
		original_transaction_id TEXT NOT NULL,
		transaction_date DATETIME NOT NULL,
		description TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		notes TEXT,
		country TEXT,
		original_amount_value TEXT NOT NULL,
		original_amount_currency TEXT NOT NULL,
		gbp_amount_value TEXT NOT NULL,
		exchange_rate_value TEXT,
		category_ai_id TEXT,
		category_ai_name TEXT,
		category_confidence_score REAL,
		category_manual_id TEXT,
		category_manual_name TEXT,
		processing_status TEXT NOT NULL,
		error_message TEXT,
		timestamp_created DATETIME NOT NULL,
		timestamp_last_modified DATETIME NOT NULL,
		timestamp_normalised DATETIME,
		timestamp_categorised DATETIME,
		dedup_key TEXT NOT NULL
	);
	CREATE UNIQUE INDEX idx_bank_source_dedup_key ON transactions(bank_source_id, dedup_key);

	CREATE TABLE processing_runs (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		succeeded_count INTEGER,
		failed_count INTEGER,
		total_count INTEGER,
		failure_details TEXT,
		cancelled BOOLEAN
	);
	`
	require.NoError(t, db.Exec(sqlStmt).Error)
	return db
}

func sampleTx() *txdomain.Transaction {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &txdomain.Transaction{
		ID:                     uuid.New(),
		BankSourceID:           "MONZO",
		OriginalTransactionID:  "tx_001",
		TransactionDate:        now,
		Description:            "tesco metro",
		TransactionType:        txdomain.DirectionDebit,
		OriginalAmountValue:    money.AmountFromFloat(-23.45),
		OriginalAmountCurrency: "GBP",
		GBPAmountValue:         money.AmountFromFloat(-23.45),
		ProcessingStatus:       txdomain.StatusNormalised,
		TimestampCreated:       now,
		TimestampLastModified:  now,
		DedupKey:               "MONZO:tx_001",
	}
}

func TestGormResultStore_AppendAndFindByKey(t *testing.T) {
	db := setupTestDB(t)
	store := transaction.NewGormResultStore(db)
	tx := sampleTx()

	appended, err := store.Append(context.Background(), tx)
	require.NoError(t, err)
	assert.True(t, appended)

	found, err := store.FindByKey(context.Background(), "MONZO", "MONZO:tx_001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, tx.ID, found.ID)
}

func TestGormResultStore_AppendDuplicateIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	store := transaction.NewGormResultStore(db)
	tx := sampleTx()

	_, err := store.Append(context.Background(), tx)
	require.NoError(t, err)

	dup := sampleTx()
	dup.ID = uuid.New()
	appended, err := store.Append(context.Background(), dup)

	require.NoError(t, err)
	assert.False(t, appended)
}

func TestGormResultStore_FindByKeyMissReturnsNilNoError(t *testing.T) {
	db := setupTestDB(t)
	store := transaction.NewGormResultStore(db)

	found, err := store.FindByKey(context.Background(), "MONZO", "MONZO:does-not-exist")

	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestGormResultStore_QueryFiltersByStatus(t *testing.T) {
	db := setupTestDB(t)
	store := transaction.NewGormResultStore(db)
	_, err := store.Append(context.Background(), sampleTx())
	require.NoError(t, err)

	rows, err := store.Query(context.Background(), ports.ResultStoreFilter{
		Status: []txdomain.ProcessingStatus{txdomain.StatusNormalised},
	})

	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestGormResultStore_UpdateAppliesSparseChanges(t *testing.T) {
	db := setupTestDB(t)
	store := transaction.NewGormResultStore(db)
	tx := sampleTx()
	_, err := store.Append(context.Background(), tx)
	require.NoError(t, err)

	err = store.Update(context.Background(), tx.ID, ports.FieldChanges{
		"processing_status": string(txdomain.StatusCategorised),
		"category_ai_name":  "Groceries",
	})
	require.NoError(t, err)

	updated, err := store.GetByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, txdomain.StatusCategorised, updated.ProcessingStatus)
	assert.Equal(t, "Groceries", updated.CategoryAIName)
}

func TestGormResultStore_UpdateUnknownIDReturnsNotFound(t *testing.T) {
	db := setupTestDB(t)
	store := transaction.NewGormResultStore(db)

	err := store.Update(context.Background(), uuid.New(), ports.FieldChanges{"processing_status": "ERROR"})

	assert.Error(t, err)
}

func TestGormRunStore_CreateAndSave(t *testing.T) {
	db := setupTestDB(t)
	store := transaction.NewGormRunStore(db)
	run := &txdomain.ProcessingRun{
		ID:        uuid.New(),
		Type:      txdomain.RunTypeNormalisation,
		Status:    txdomain.RunStatusRunning,
		StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.Create(context.Background(), run))

	run.SucceededCount = 5
	run.Finish(time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(context.Background(), run))
}
