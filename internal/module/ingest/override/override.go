// Package override is the Manual Override Handler (C11): it reacts to user
// edits in the canonical "Manual Category" column and resolves name to
// Category ID via C7, writing only to the Manual-ID cell. The pipelines
// (C6, C10) never write that column — this column-level separation is the
// anti-loop invariant spec section 5 names explicitly.
package override

import (
	"strings"

	"github.com/google/uuid"

	"txledger/internal/module/ingest/category"
)

// EditSource distinguishes a genuine user edit from this system's own
// writes, so a write-back never re-enters this handler (spec section
// 4.11, guard 1).
type EditSource string

const (
	EditSourceUser   EditSource = "user"
	EditSourceSystem EditSource = "system"
)

// Column identifies a sheet column an edit event targets. Only
// ColumnManualCategory qualifies for processing; everything else is
// ignored.
type Column string

const (
	ColumnManualCategory Column = "manual_category"
)

// EditEvent carries the entry point's {range, source, old_value, new_value}
// shape literally.
type EditEvent struct {
	RowIdentity string
	Column      Column
	Source      EditSource
	OldValue    string
	NewValue    string
}

// Outcome reports what the handler did for a single edit, for logging and
// for tests — never for driving further pipeline behavior.
type Outcome struct {
	Ignored           bool
	Cleared           bool
	Resolved          bool
	CustomCategory     bool
	ManualCategoryID   *uuid.UUID
	NormalizedValue    string
	Warning            string
}

// Handler resolves qualifying edits via the Category Resolver (C7) and
// reports the field change the caller's Result Store update must apply.
type Handler struct {
	resolver *category.Resolver
}

func NewHandler(resolver *category.Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Handle implements C11's guarded entry point. It never performs I/O
// itself — callers apply the returned Outcome's ManualCategoryID/
// NormalizedValue to the Manual-ID and Manual-Category cells via the
// Result Store, confined strictly to those two columns.
func (h *Handler) Handle(event EditEvent) Outcome {
	if event.Source != EditSourceUser {
		return Outcome{Ignored: true}
	}
	if event.Column != ColumnManualCategory {
		return Outcome{Ignored: true}
	}

	trimmed := strings.TrimSpace(event.NewValue)
	if trimmed == "" {
		return Outcome{Cleared: true}
	}

	result := h.resolver.Resolve(trimmed)
	if result.Found {
		id := result.Category.ID
		return Outcome{
			Resolved:        true,
			ManualCategoryID: &id,
			NormalizedValue:  trimmed,
		}
	}

	return Outcome{
		CustomCategory:  true,
		NormalizedValue: trimmed,
		Warning:         "custom category: \"" + trimmed + "\" did not resolve to a known category",
	}
}

// BatchEdit is one row's worth of input to HandleBatch.
type BatchEdit struct {
	RowIdentity string
	NewValue    string
}

// BatchResult pairs a BatchEdit's row identity with its Outcome.
type BatchResult struct {
	RowIdentity string
	Outcome     Outcome
}

// HandleBatch processes a contiguous row range in bulk (spec section
// 4.11's batch variant): names are read once and resolved in memory, and
// the caller writes all resulting IDs back in a single round-trip. Every
// edit here is presumed to already be a qualifying user edit against the
// Manual Category column — batch ingestion doesn't go through per-cell
// source/column guards, it IS the explicit bulk path.
func (h *Handler) HandleBatch(edits []BatchEdit) []BatchResult {
	results := make([]BatchResult, len(edits))
	for i, e := range edits {
		results[i] = BatchResult{
			RowIdentity: e.RowIdentity,
			Outcome: h.Handle(EditEvent{
				RowIdentity: e.RowIdentity,
				Column:      ColumnManualCategory,
				Source:      EditSourceUser,
				NewValue:    e.NewValue,
			}),
		}
	}
	return results
}
