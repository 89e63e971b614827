package normalize_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txledger/internal/money"
	"txledger/internal/module/ingest/currency"
	"txledger/internal/module/ingest/dedup"
	"txledger/internal/module/ingest/normalize"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/source"
	"txledger/internal/module/ingest/status"
	"txledger/internal/module/ingest/txdomain"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeStore struct {
	byKey map[string]*txdomain.Transaction
}

func (f *fakeStore) Append(ctx context.Context, tx *txdomain.Transaction) (bool, error) {
	return true, nil
}
func (f *fakeStore) FindByKey(ctx context.Context, bankSourceID, stableKey string) (*txdomain.Transaction, error) {
	return f.byKey[stableKey], nil
}
func (f *fakeStore) Query(ctx context.Context, filter ports.ResultStoreFilter) ([]txdomain.Transaction, error) {
	return nil, nil
}

func newPipeline() (*normalize.Pipeline, *fakeStore) {
	store := &fakeStore{byKey: map[string]*txdomain.Transaction{}}
	registry := source.NewRegistry(source.NewMonzoAdapter(), source.NewRevolutAdapter(), source.NewYonderAdapter())
	detector := dedup.NewDetector(resultStoreAdapter{store})
	converter := currency.NewConverter(noopRatePort{}, "GBP")
	statusMgr := status.NewManager(fakeClock{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	return normalize.NewPipeline(registry, detector, converter, statusMgr, fakeClock{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}), store
}

type resultStoreAdapter struct{ s *fakeStore }

func (r resultStoreAdapter) Append(ctx context.Context, tx *txdomain.Transaction) (bool, error) {
	return r.s.Append(ctx, tx)
}
func (r resultStoreAdapter) FindByKey(ctx context.Context, bankSourceID, stableKey string) (*txdomain.Transaction, error) {
	return r.s.FindByKey(ctx, bankSourceID, stableKey)
}
func (r resultStoreAdapter) Query(ctx context.Context, filter ports.ResultStoreFilter) ([]txdomain.Transaction, error) {
	return nil, nil
}
func (r resultStoreAdapter) Update(ctx context.Context, id uuid.UUID, changes ports.FieldChanges) error {
	return nil
}
func (r resultStoreAdapter) GetByID(ctx context.Context, id uuid.UUID) (*txdomain.Transaction, error) {
	return nil, nil
}

type noopRatePort struct{}

func (noopRatePort) GetRate(ctx context.Context, base, target string) (money.Rate, error) {
	return money.NewRate("1.0")
}

func TestNormalize_S1MonzoGBPPurchase(t *testing.T) {
	pipeline, _ := newPipeline()
	raw := ports.RawRecord{
		"Date":           "15/11/2025",
		"Time":           "14:23:45",
		"Name":           "Tesco Metro",
		"Amount":         "-23.45",
		"Currency":       "GBP",
		"Type":           "Card payment",
		"Transaction ID": "tx_001",
	}

	outcome := pipeline.Normalize(context.Background(), "MONZO", 0, raw, currency.NewSnapshot())

	require.NoError(t, outcome.Err)
	require.NotNil(t, outcome.Transaction)
	tx := outcome.Transaction
	assert.Equal(t, txdomain.StatusNormalised, tx.ProcessingStatus)
	assert.Equal(t, "tesco metro", tx.Description)
	assert.Equal(t, txdomain.DirectionDebit, tx.TransactionType)
	assert.Equal(t, "tx_001", tx.OriginalTransactionID)
	assert.Nil(t, tx.ExchangeRateValue)
}

func TestNormalize_DuplicateShortCircuits(t *testing.T) {
	pipeline, store := newPipeline()
	raw := ports.RawRecord{
		"Date": "15/11/2025", "Time": "14:23:45", "Name": "Tesco Metro",
		"Amount": "-23.45", "Currency": "GBP", "Type": "Card payment", "Transaction ID": "tx_001",
	}
	store.byKey["MONZO:tx_001"] = &txdomain.Transaction{}

	outcome := pipeline.Normalize(context.Background(), "MONZO", 0, raw, currency.NewSnapshot())

	assert.True(t, outcome.Skipped)
	assert.Nil(t, outcome.Transaction)
}

func TestNormalize_UnknownSourceFailsStep1(t *testing.T) {
	pipeline, _ := newPipeline()
	outcome := pipeline.Normalize(context.Background(), "BARCLAYS", 0, ports.RawRecord{}, currency.NewSnapshot())

	require.Error(t, outcome.Err)
	assert.Nil(t, outcome.Transaction)
}
