// Package sourcestore is the concrete ports.SourceStore: the "sheet" spec
// section 6 describes (a named rectangular table, row 1 headers,
// subsequent rows data) modeled as two Postgres tables rather than an
// actual spreadsheet, since the spreadsheet UI itself is explicitly out of
// scope (spec section 1's Non-goals). Grounded on the teacher's JSONB
// column convention (category/domain/domain.go) for the raw per-row
// payload, and its gorm repository error-translation style
// (transaction/repository/gorm_repository.go).
package sourcestore

import (
	"context"
	"strconv"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/google/uuid"

	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/validate"
)

// BankSourceRow is the static per-source row (spec section 6's BankSource).
type BankSourceRow struct {
	ID                     string `gorm:"primaryKey"`
	DisplayName            string
	HasNativeTransactionID bool
	IsActive               bool
}

func (BankSourceRow) TableName() string { return "bank_sources" }

// RawRecordRow is one unprocessed row from a source, addressed by
// (bank_source_id, row_identity) so WriteBackID can locate it again.
// RowIdentity defaults to the row's ordinal position but a source with its
// own stable identifier (e.g. a native transaction ID column) may populate
// it instead.
type RawRecordRow struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	BankSourceID   string `gorm:"index:idx_source_row_identity,unique"`
	RowIdentity    string `gorm:"index:idx_source_row_identity,unique"`
	RowIndex       int
	Payload        datatypes.JSONMap
	WrittenBackID  *string
}

func (RawRecordRow) TableName() string { return "source_raw_records" }

// GormSourceStore implements ports.SourceStore over the two tables above.
type GormSourceStore struct {
	db *gorm.DB
}

func NewGormSourceStore(db *gorm.DB) *GormSourceStore {
	return &GormSourceStore{db: db}
}

func (s *GormSourceStore) ListActiveSources(ctx context.Context) ([]ports.BankSource, error) {
	var rows []BankSourceRow
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.BankSource, len(rows))
	for i, r := range rows {
		out[i] = ports.BankSource{
			ID:                     r.ID,
			DisplayName:            r.DisplayName,
			HasNativeTransactionID: r.HasNativeTransactionID,
			IsActive:               r.IsActive,
		}
	}
	return out, nil
}

func (s *GormSourceStore) ReadRaw(ctx context.Context, source ports.BankSource) ([]ports.RawRecord, error) {
	var rows []RawRecordRow
	if err := s.db.WithContext(ctx).
		Where("bank_source_id = ? AND written_back_id IS NULL", source.ID).
		Order("row_index ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.RawRecord, len(rows))
	for i, r := range rows {
		rec := make(ports.RawRecord, len(r.Payload))
		for k, v := range r.Payload {
			rec[k] = v
		}
		out[i] = rec
	}
	return out, nil
}

// WriteBackID records the synthesized Transaction ID against its source
// row, matching spec section 4's "the synthesized stable key ... is
// written back to the source if the source adapter supports write-back".
// A row once written back is excluded from future ReadRaw calls, since a
// write-back marks it as already ingested.
func (s *GormSourceStore) WriteBackID(ctx context.Context, source ports.BankSource, rowIdentity string, id uuid.UUID) error {
	idStr := id.String()
	return s.db.WithContext(ctx).
		Model(&RawRecordRow{}).
		Where("bank_source_id = ? AND row_identity = ?", source.ID, rowIdentity).
		Update("written_back_id", idStr).Error
}

// AppendRaw inserts a new raw row for a source, used by whatever out-of-core
// ingestion path feeds this engine (a CSV upload handler, a bank-API
// poller) — not part of ports.SourceStore, since that interface only
// covers the core's read/write-back contract. Every string cell is passed
// through SanitizeForSheet before storage, since this row's values are the
// ones that ultimately populate the "sheet" spec section 6 describes.
func (s *GormSourceStore) AppendRaw(ctx context.Context, bankSourceID string, rowIndex int, payload map[string]interface{}) error {
	sanitized := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if s, ok := v.(string); ok {
			sanitized[k] = validate.SanitizeForSheet(s)
		} else {
			sanitized[k] = v
		}
	}
	return s.db.WithContext(ctx).Create(&RawRecordRow{
		BankSourceID: bankSourceID,
		RowIdentity:  strconv.Itoa(rowIndex),
		RowIndex:     rowIndex,
		Payload:      datatypes.JSONMap(sanitized),
	}).Error
}
