package transaction

import "gorm.io/gorm/clause"

// onConflictDoNothing makes Append idempotent under the (bank_source_id,
// dedup_key) unique index: a concurrent append of an already-present key
// becomes a silent no-op rather than a constraint-violation error, per
// spec section 5's ordering guarantee.
func onConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "bank_source_id"}, {Name: "dedup_key"}},
		DoNothing: true,
	}
}
