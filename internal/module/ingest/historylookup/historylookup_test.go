package historylookup_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"txledger/internal/module/ingest/historylookup"
	"txledger/internal/module/ingest/history"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/money"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeResultStore struct {
	transactions []txdomain.Transaction
	lastFilter   ports.ResultStoreFilter
}

func (f *fakeResultStore) Append(ctx context.Context, tx *txdomain.Transaction) (bool, error) {
	return true, nil
}
func (f *fakeResultStore) FindByKey(ctx context.Context, bankSourceID, stableKey string) (*txdomain.Transaction, error) {
	return nil, nil
}
func (f *fakeResultStore) Query(ctx context.Context, filter ports.ResultStoreFilter) ([]txdomain.Transaction, error) {
	f.lastFilter = filter
	return f.transactions, nil
}
func (f *fakeResultStore) Update(ctx context.Context, id uuid.UUID, changes ports.FieldChanges) error {
	return nil
}
func (f *fakeResultStore) GetByID(ctx context.Context, id uuid.UUID) (*txdomain.Transaction, error) {
	return nil, nil
}

func amount(t *testing.T, s string) money.Amount {
	a, err := money.NewAmount(s)
	require.NoError(t, err)
	return a
}

func TestBuilder_SuggestsCategoryFromMatchingHistory(t *testing.T) {
	groceriesID := uuid.New()
	clock := fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}

	store := &fakeResultStore{
		transactions: []txdomain.Transaction{
			{
				ID:                  uuid.New(),
				Description:         "Tesco Metro",
				GBPAmountValue:      amount(t, "-23.45"),
				TransactionDate:     clock.t.AddDate(0, 0, -10),
				ProcessingStatus:    txdomain.StatusCategorised,
				CategoryAIID:        &groceriesID,
				CategoryAIName:      "Groceries",
			},
		},
	}

	builder := historylookup.NewBuilder(store, nil, clock, history.DefaultParams(), zap.NewNop())
	lookup := builder.Build(context.Background(), "run-1")

	target := txdomain.Transaction{Description: "TESCO METRO", GBPAmountValue: amount(t, "-23.45")}
	matches, suggestion := lookup(target)

	require.NotEmpty(t, matches)
	require.NotNil(t, suggestion)
	assert.True(t, suggestion.Found)
	assert.Equal(t, groceriesID, suggestion.CategoryID)
	assert.Equal(t, "Groceries", suggestion.CategoryName)
}

func TestBuilder_EmptyPoolReturnsNoSuggestion(t *testing.T) {
	clock := fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	store := &fakeResultStore{}

	builder := historylookup.NewBuilder(store, nil, clock, history.DefaultParams(), zap.NewNop())
	lookup := builder.Build(context.Background(), "run-2")

	matches, suggestion := lookup(txdomain.Transaction{Description: "Unrelated", GBPAmountValue: amount(t, "-1")})

	assert.Empty(t, matches)
	assert.Nil(t, suggestion)
}

func TestBuilder_IgnoresCandidatesWithoutAnyResolvedCategory(t *testing.T) {
	clock := fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	store := &fakeResultStore{
		transactions: []txdomain.Transaction{
			{
				ID:               uuid.New(),
				Description:      "Tesco Metro",
				GBPAmountValue:   amount(t, "-23.45"),
				TransactionDate:  clock.t.AddDate(0, 0, -5),
				ProcessingStatus: txdomain.StatusCategorised,
			},
		},
	}

	builder := historylookup.NewBuilder(store, nil, clock, history.DefaultParams(), zap.NewNop())
	lookup := builder.Build(context.Background(), "run-3")

	matches, suggestion := lookup(txdomain.Transaction{Description: "Tesco Metro", GBPAmountValue: amount(t, "-23.45")})

	assert.Empty(t, matches)
	assert.Nil(t, suggestion)
}
