// Package status is the Status Manager (C1): the single authority for
// Transaction status transitions. It performs no I/O; every operation is a
// pure function over a Transaction value plus a Clock.
package status

import (
	"fmt"

	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/module/ingest/validate"
)

// InvalidTransitionError is a programmer-error signal (spec section 7):
// it must fail loudly and carries the offending from/to pair.
type InvalidTransitionError struct {
	From txdomain.ProcessingStatus
	To   txdomain.ProcessingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("status: invalid transition %s -> %s", e.From, e.To)
}

// Manager stamps timestamps via an injected Clock so tests can control time.
type Manager struct {
	clock ports.Clock
}

func NewManager(clock ports.Clock) *Manager {
	return &Manager{clock: clock}
}

// CanTransition reports whether from -> to is a legal edge in the state
// machine documented in spec section 4.1.
func CanTransition(from, to txdomain.ProcessingStatus) bool {
	switch {
	case to == txdomain.StatusError:
		// any non-ERROR -> ERROR
		return from != txdomain.StatusError
	case from == txdomain.StatusUnprocessed && to == txdomain.StatusNormalised:
		return true
	case from == txdomain.StatusNormalised && to == txdomain.StatusCategorised:
		return true
	case from == txdomain.StatusError && (to == txdomain.StatusNormalised || to == txdomain.StatusCategorised):
		return true
	case from == txdomain.StatusCategorised && to == txdomain.StatusCategorised:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether status has no further expected transition
// under normal (non-retry, non-recategorization) operation.
func IsTerminal(s txdomain.ProcessingStatus) bool {
	return s == txdomain.StatusCategorised || s == txdomain.StatusError
}

// CanProgress reports whether a non-error, non-terminal forward transition
// exists from s.
func CanProgress(s txdomain.ProcessingStatus) bool {
	return s == txdomain.StatusUnprocessed || s == txdomain.StatusNormalised
}

func (m *Manager) transition(tx *txdomain.Transaction, to txdomain.ProcessingStatus) error {
	if !CanTransition(tx.ProcessingStatus, to) {
		return &InvalidTransitionError{From: tx.ProcessingStatus, To: to}
	}
	tx.ProcessingStatus = to
	tx.TimestampLastModified = m.clock.Now()
	return nil
}

// MarkNormalised transitions UNPROCESSED -> NORMALISED (or ERROR -> NORMALISED
// on retry) and stamps TimestampNormalised.
func (m *Manager) MarkNormalised(tx *txdomain.Transaction) error {
	if err := m.transition(tx, txdomain.StatusNormalised); err != nil {
		return err
	}
	now := m.clock.Now()
	tx.TimestampNormalised = &now
	return nil
}

// MarkCategorised transitions NORMALISED -> CATEGORISED (or ERROR/CATEGORISED
// -> CATEGORISED on retry/re-categorization) and stamps TimestampCategorised.
func (m *Manager) MarkCategorised(tx *txdomain.Transaction) error {
	if err := m.transition(tx, txdomain.StatusCategorised); err != nil {
		return err
	}
	now := m.clock.Now()
	tx.TimestampCategorised = &now
	return nil
}

// MarkError transitions any non-ERROR status to ERROR. It must not clear
// prior category assignments (spec section 4.1). msg is passed through the
// error-message sanitizer before it is stored, since ErrorMessage is
// surfaced outside the process (spec section 7).
func (m *Manager) MarkError(tx *txdomain.Transaction, msg string) error {
	if err := m.transition(tx, txdomain.StatusError); err != nil {
		return err
	}
	tx.ErrorMessage = validate.SanitizeErrorMessage(msg)
	return nil
}

// RetryFromError moves an ERROR transaction back into the pipeline at the
// given target status and clears ErrorMessage.
func (m *Manager) RetryFromError(tx *txdomain.Transaction, target txdomain.ProcessingStatus) error {
	if tx.ProcessingStatus != txdomain.StatusError {
		return &InvalidTransitionError{From: tx.ProcessingStatus, To: target}
	}
	if err := m.transition(tx, target); err != nil {
		return err
	}
	tx.ErrorMessage = ""
	if target == txdomain.StatusNormalised {
		now := m.clock.Now()
		tx.TimestampNormalised = &now
	} else if target == txdomain.StatusCategorised {
		now := m.clock.Now()
		tx.TimestampCategorised = &now
	}
	return nil
}
