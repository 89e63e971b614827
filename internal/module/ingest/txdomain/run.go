package txdomain

import (
	"time"

	"github.com/google/uuid"
)

// RunType distinguishes the two phases C12 coordinates.
type RunType string

const (
	RunTypeNormalisation  RunType = "NORMALISATION"
	RunTypeCategorisation RunType = "CATEGORISATION"
)

// RunStatus is a ProcessingRun's lifecycle state.
type RunStatus string

const (
	RunStatusRunning        RunStatus = "RUNNING"
	RunStatusCompleted      RunStatus = "COMPLETED"
	RunStatusPartialSuccess RunStatus = "PARTIAL_SUCCESS"
	RunStatusFailed         RunStatus = "FAILED"
)

// ProcessingRun records one invocation of run_normalization() or
// run_categorization() (spec section 4.12): its type, lifecycle, and the
// counters the Run Coordinator reports on completion.
type ProcessingRun struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type      RunType   `gorm:"type:varchar(32);not null"`
	Status    RunStatus `gorm:"type:varchar(32);not null"`
	StartedAt time.Time `gorm:"not null"`
	EndedAt   *time.Time

	SucceededCount int
	FailedCount    int
	TotalCount     int

	// FailureDetails is a compact log of per-item failures (spec section
	// 4.12: "failures ... are logged against the run").
	FailureDetails []string `gorm:"type:jsonb;serializer:json"`

	Cancelled bool
}

func (ProcessingRun) TableName() string { return "processing_runs" }

// Finish stamps the run's terminal status from its own counters:
// COMPLETED when everything succeeded, PARTIAL_SUCCESS when at least one
// item succeeded alongside failures, FAILED when nothing succeeded (spec
// section 5's cancellation semantics: "PARTIAL_SUCCESS ... if >=1
// Transaction was committed").
func (r *ProcessingRun) Finish(endedAt time.Time) {
	r.EndedAt = &endedAt
	switch {
	case r.Cancelled && r.SucceededCount == 0:
		r.Status = RunStatusFailed
	case r.Cancelled:
		r.Status = RunStatusPartialSuccess
	case r.FailedCount == 0:
		r.Status = RunStatusCompleted
	case r.SucceededCount > 0:
		r.Status = RunStatusPartialSuccess
	default:
		r.Status = RunStatusFailed
	}
}
