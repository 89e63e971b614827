package dedup_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txledger/internal/module/ingest/dedup"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/txdomain"
)

type fakeResultStore struct {
	byKey map[string]*txdomain.Transaction
}

func (f *fakeResultStore) Append(ctx context.Context, tx *txdomain.Transaction) (bool, error) {
	return true, nil
}
func (f *fakeResultStore) FindByKey(ctx context.Context, bankSourceID, stableKey string) (*txdomain.Transaction, error) {
	return f.byKey[stableKey], nil
}
func (f *fakeResultStore) Query(ctx context.Context, filter ports.ResultStoreFilter) ([]txdomain.Transaction, error) {
	return nil, nil
}
func (f *fakeResultStore) Update(ctx context.Context, id uuid.UUID, changes ports.FieldChanges) error {
	return nil
}
func (f *fakeResultStore) GetByID(ctx context.Context, id uuid.UUID) (*txdomain.Transaction, error) {
	return nil, nil
}

func TestStableKey_NativeIDTakesPriority(t *testing.T) {
	k1 := dedup.StableKey("MONZO", "tx_001", "2025-11-15", "tesco metro", -23.45, "GBP")
	k2 := dedup.StableKey("MONZO", "tx_001", "2025-11-16", "different desc", -1.00, "USD")
	assert.Equal(t, k1, k2, "native-id keys must ignore content fields")
}

func TestStableKey_Idempotent(t *testing.T) {
	k1 := dedup.StableKey("REVOLUT", "", "2025-11-15T10:05:00Z", "card payment to tesco", -50.00, "EUR")
	k2 := dedup.StableKey("REVOLUT", "", "2025-11-15T10:05:00Z", "card payment to tesco", -50.00, "EUR")
	assert.Equal(t, k1, k2)
}

func TestStableKey_ExcludesGBPAmount(t *testing.T) {
	// StableKey takes no GBP-converted amount, so the same source row yields
	// the same synthesized key whatever rate it was later converted at.
	k1 := dedup.StableKey("REVOLUT", "", "2025-11-15T10:05:00Z", "card payment to tesco", -50.00, "EUR")
	k2 := dedup.StableKey("REVOLUT", "", "2025-11-15T10:05:00Z", "card payment to tesco", -50.00, "EUR")
	assert.Equal(t, k1, k2)
}

func TestIsDuplicate(t *testing.T) {
	store := &fakeResultStore{byKey: map[string]*txdomain.Transaction{
		"MONZO:tx_001": {},
	}}
	d := dedup.NewDetector(store)

	dup, err := d.IsDuplicate(context.Background(), "MONZO", "MONZO:tx_001")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = d.IsDuplicate(context.Background(), "MONZO", "MONZO:tx_999")
	require.NoError(t, err)
	assert.False(t, dup)
}
