package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"txledger/internal/money"
	"txledger/internal/module/ingest/aicategorizer"
	"txledger/internal/module/ingest/category"
	"txledger/internal/module/ingest/confidence"
	"txledger/internal/module/ingest/currency"
	"txledger/internal/module/ingest/dedup"
	"txledger/internal/module/ingest/history"
	"txledger/internal/module/ingest/historylookup"
	"txledger/internal/module/ingest/normalize"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/retry"
	"txledger/internal/module/ingest/run"
	"txledger/internal/module/ingest/source"
	"txledger/internal/module/ingest/status"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/scheduler"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeSourceStore struct{}

func (fakeSourceStore) ListActiveSources(ctx context.Context) ([]ports.BankSource, error) {
	return nil, nil
}
func (fakeSourceStore) ReadRaw(ctx context.Context, src ports.BankSource) ([]ports.RawRecord, error) {
	return nil, nil
}
func (fakeSourceStore) WriteBackID(ctx context.Context, src ports.BankSource, rowIdentity string, id uuid.UUID) error {
	return nil
}

type fakeResultStore struct{}

func (fakeResultStore) Append(ctx context.Context, tx *txdomain.Transaction) (bool, error) {
	return true, nil
}
func (fakeResultStore) FindByKey(ctx context.Context, bankSourceID, stableKey string) (*txdomain.Transaction, error) {
	return nil, nil
}
func (fakeResultStore) Query(ctx context.Context, filter ports.ResultStoreFilter) ([]txdomain.Transaction, error) {
	return nil, nil
}
func (fakeResultStore) Update(ctx context.Context, id uuid.UUID, changes ports.FieldChanges) error {
	return nil
}
func (fakeResultStore) GetByID(ctx context.Context, id uuid.UUID) (*txdomain.Transaction, error) {
	return nil, nil
}

type fakeCategoriesStore struct{}

func (fakeCategoriesStore) List(ctx context.Context) ([]txdomain.Category, error) { return nil, nil }

type fakeRunStore struct{}

func (fakeRunStore) Create(ctx context.Context, r *txdomain.ProcessingRun) error { return nil }
func (fakeRunStore) Save(ctx context.Context, r *txdomain.ProcessingRun) error   { return nil }

type noopRatePort struct{}

func (noopRatePort) GetRate(ctx context.Context, base, target string) (money.Rate, error) {
	return money.NewRate("1.0")
}

type noopAIPort struct{}

func (noopAIPort) CategorizeBatch(ctx context.Context, transactions []ports.AITransactionInput, categories []ports.AICategoryInfo, historicalContext []ports.AIContextEntry) ([]ports.AICategorizationResult, error) {
	return nil, nil
}

func newTestCoordinator() *run.Coordinator {
	clock := fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	registry := source.NewRegistry(source.NewMonzoAdapter())
	detector := dedup.NewDetector(fakeResultStore{})
	converter := currency.NewConverter(noopRatePort{}, "GBP")
	statusMgr := status.NewManager(clock)
	pipeline := normalize.NewPipeline(registry, detector, converter, statusMgr, clock)
	resolver := category.NewResolver(nil)
	categorizer := aicategorizer.New(noopAIPort{}, resolver, statusMgr, confidence.DefaultWeights(), retry.DefaultPolicy(), aicategorizer.DefaultParams())

	return run.NewCoordinator(fakeSourceStore{}, fakeResultStore{}, fakeCategoriesStore{}, fakeRunStore{}, pipeline, categorizer, clock, zap.NewNop(), run.DefaultConfig())
}

func newTestHistoryBuilder() *historylookup.Builder {
	clock := fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return historylookup.NewBuilder(fakeResultStore{}, nil, clock, history.DefaultParams(), zap.NewNop())
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []txdomain.RunType
	finished int
}

func (o *recordingObserver) RunStarted(runType txdomain.RunType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, runType)
}

func (o *recordingObserver) RunFinished(runRecord *txdomain.ProcessingRun, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	s := scheduler.New(newTestCoordinator(), newTestHistoryBuilder(), nil, zap.NewNop(), scheduler.DefaultConfig())

	s.Start()
	assert.True(t, s.IsRunning())
	s.Start() // second call should warn, not double-register jobs
	assert.True(t, s.IsRunning())

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestScheduler_StopBeforeStartIsSafe(t *testing.T) {
	s := scheduler.New(newTestCoordinator(), newTestHistoryBuilder(), nil, zap.NewNop(), scheduler.DefaultConfig())
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestScheduler_FiresRegisteredJobAndNotifiesObserver(t *testing.T) {
	observer := &recordingObserver{}
	cfg := scheduler.Config{NormalizationSchedule: "*/1 * * * * *"}
	s := scheduler.New(newTestCoordinator(), newTestHistoryBuilder(), observer, zap.NewNop(), cfg)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		observer.mu.Lock()
		defer observer.mu.Unlock()
		return observer.finished > 0
	}, 3*time.Second, 50*time.Millisecond)

	observer.mu.Lock()
	defer observer.mu.Unlock()
	assert.Contains(t, observer.started, txdomain.RunTypeNormalisation)
}
