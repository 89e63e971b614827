// Package scheduler is the out-of-core cron trigger for the Run Coordinator
// (C12), grounded on the teacher's notification scheduler service: a
// cron.Cron instance with second precision, a handful of AddFunc
// registrations, and a Start/Stop/IsRunning lifecycle guarded against
// double-start/double-stop.
package scheduler

import (
	"context"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"txledger/internal/module/ingest/historylookup"
	"txledger/internal/module/ingest/run"
	"txledger/internal/module/ingest/txdomain"
)

// Config holds the cron expressions driving each run type. Empty strings
// disable that job. Expressions use cron.WithSeconds() precision
// (second minute hour dom month dow).
type Config struct {
	NormalizationSchedule  string
	CategorizationSchedule string
}

func DefaultConfig() Config {
	return Config{
		// Every 15 minutes, on the zero second.
		NormalizationSchedule: "0 */15 * * * *",
		// Every hour, five minutes past, to run after a normalization pass.
		CategorizationSchedule: "0 5 * * * *",
	}
}

// RunObserver is notified of run outcomes; the admin WebSocket hub
// implements this to broadcast run-progress events to connected clients.
type RunObserver interface {
	RunStarted(runType txdomain.RunType)
	RunFinished(run *txdomain.ProcessingRun, err error)
}

type noopObserver struct{}

func (noopObserver) RunStarted(txdomain.RunType)                    {}
func (noopObserver) RunFinished(*txdomain.ProcessingRun, error) {}

// Scheduler periodically triggers the Run Coordinator's two operations.
// The cron instance has no SkipIfStillRunning wrapper, so a job fires even
// while its previous invocation is still in flight; the Coordinator's own
// per-run-type mutex rejects that overlap, as it rejects overlap with a
// manually-triggered run from the admin surface.
type Scheduler struct {
	cron           *cron.Cron
	coordinator    *run.Coordinator
	historyBuilder *historylookup.Builder
	observer       RunObserver
	logger         *zap.Logger
	config         Config
	running        bool
}

func New(coordinator *run.Coordinator, historyBuilder *historylookup.Builder, observer RunObserver, logger *zap.Logger, config Config) *Scheduler {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Scheduler{
		cron:           cron.New(cron.WithSeconds()),
		coordinator:    coordinator,
		historyBuilder: historyBuilder,
		observer:       observer,
		logger:         logger,
		config:         config,
	}
}

func (s *Scheduler) Start() {
	if s.running {
		s.logger.Warn("scheduler: already running")
		return
	}

	if s.config.NormalizationSchedule != "" {
		if _, err := s.cron.AddFunc(s.config.NormalizationSchedule, s.runNormalization); err != nil {
			s.logger.Error("scheduler: failed to schedule normalization run", zap.Error(err))
		}
	}
	if s.config.CategorizationSchedule != "" {
		if _, err := s.cron.AddFunc(s.config.CategorizationSchedule, s.runCategorization); err != nil {
			s.logger.Error("scheduler: failed to schedule categorization run", zap.Error(err))
		}
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler: started", zap.Int("total_jobs", len(s.cron.Entries())))
}

func (s *Scheduler) Stop() {
	if !s.running {
		s.logger.Warn("scheduler: not running")
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info("scheduler: stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.running
}

func (s *Scheduler) runNormalization() {
	ctx := context.Background()
	s.observer.RunStarted(txdomain.RunTypeNormalisation)
	runRecord, err := s.coordinator.RunNormalization(ctx, nil)
	if err != nil {
		s.logger.Error("scheduler: normalization run failed to start", zap.Error(err))
	}
	s.observer.RunFinished(runRecord, err)
}

func (s *Scheduler) runCategorization() {
	ctx := context.Background()
	s.observer.RunStarted(txdomain.RunTypeCategorisation)
	lookup := s.historyBuilder.Build(ctx, uuid.New().String())
	runRecord, err := s.coordinator.RunCategorization(ctx, false, lookup, nil)
	if err != nil {
		s.logger.Error("scheduler: categorization run failed to start", zap.Error(err))
	}
	s.observer.RunFinished(runRecord, err)
}
