package status_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txledger/internal/module/ingest/status"
	"txledger/internal/module/ingest/txdomain"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func newTx(s txdomain.ProcessingStatus) *txdomain.Transaction {
	return &txdomain.Transaction{ProcessingStatus: s}
}

func TestCanTransition_HappyPath(t *testing.T) {
	assert.True(t, status.CanTransition(txdomain.StatusUnprocessed, txdomain.StatusNormalised))
	assert.True(t, status.CanTransition(txdomain.StatusNormalised, txdomain.StatusCategorised))
	assert.True(t, status.CanTransition(txdomain.StatusCategorised, txdomain.StatusCategorised))
	assert.True(t, status.CanTransition(txdomain.StatusError, txdomain.StatusNormalised))
	assert.True(t, status.CanTransition(txdomain.StatusError, txdomain.StatusCategorised))
}

func TestCanTransition_AnyToError(t *testing.T) {
	for _, from := range []txdomain.ProcessingStatus{
		txdomain.StatusUnprocessed, txdomain.StatusNormalised, txdomain.StatusCategorised,
	} {
		assert.True(t, status.CanTransition(from, txdomain.StatusError))
	}
	assert.False(t, status.CanTransition(txdomain.StatusError, txdomain.StatusError))
}

func TestCanTransition_RejectsSkip(t *testing.T) {
	assert.False(t, status.CanTransition(txdomain.StatusUnprocessed, txdomain.StatusCategorised))
}

func TestMarkNormalised_StampsTimestamp(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := status.NewManager(fixedClock{now})
	tx := newTx(txdomain.StatusUnprocessed)

	require.NoError(t, m.MarkNormalised(tx))

	assert.Equal(t, txdomain.StatusNormalised, tx.ProcessingStatus)
	require.NotNil(t, tx.TimestampNormalised)
	assert.Equal(t, now, *tx.TimestampNormalised)
	assert.Equal(t, now, tx.TimestampLastModified)
}

func TestMarkCategorised_RejectsFromUnprocessed(t *testing.T) {
	m := status.NewManager(fixedClock{time.Now()})
	tx := newTx(txdomain.StatusUnprocessed)

	err := m.MarkCategorised(tx)

	var invalidErr *status.InvalidTransitionError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, txdomain.StatusUnprocessed, invalidErr.From)
	assert.Equal(t, txdomain.StatusCategorised, invalidErr.To)
}

func TestMarkError_PreservesCategory(t *testing.T) {
	m := status.NewManager(fixedClock{time.Now()})
	id := uuid.New()
	catID := &id
	tx := newTx(txdomain.StatusCategorised)
	tx.CategoryAIID = catID

	require.NoError(t, m.MarkError(tx, "AI service unavailable"))

	assert.Equal(t, txdomain.StatusError, tx.ProcessingStatus)
	assert.Equal(t, "AI service unavailable", tx.ErrorMessage)
	assert.Equal(t, catID, tx.CategoryAIID)
}

func TestRetryFromError_ClearsMessage(t *testing.T) {
	m := status.NewManager(fixedClock{time.Now()})
	tx := newTx(txdomain.StatusError)
	tx.ErrorMessage = "rate limited"

	require.NoError(t, m.RetryFromError(tx, txdomain.StatusCategorised))

	assert.Equal(t, txdomain.StatusCategorised, tx.ProcessingStatus)
	assert.Empty(t, tx.ErrorMessage)
	assert.NotNil(t, tx.TimestampCategorised)
}

func TestRetryFromError_RejectsNonErrorSource(t *testing.T) {
	m := status.NewManager(fixedClock{time.Now()})
	tx := newTx(txdomain.StatusNormalised)

	err := m.RetryFromError(tx, txdomain.StatusCategorised)

	var invalidErr *status.InvalidTransitionError
	require.ErrorAs(t, err, &invalidErr)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, status.IsTerminal(txdomain.StatusCategorised))
	assert.True(t, status.IsTerminal(txdomain.StatusError))
	assert.False(t, status.IsTerminal(txdomain.StatusNormalised))
	assert.False(t, status.IsTerminal(txdomain.StatusUnprocessed))
}

func TestCanProgress(t *testing.T) {
	assert.True(t, status.CanProgress(txdomain.StatusUnprocessed))
	assert.True(t, status.CanProgress(txdomain.StatusNormalised))
	assert.False(t, status.CanProgress(txdomain.StatusCategorised))
	assert.False(t, status.CanProgress(txdomain.StatusError))
}
