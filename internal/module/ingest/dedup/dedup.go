// Package dedup is the Duplicate Detector (C5): computes the stable key a
// raw record maps to and checks it against the Result Store.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"txledger/internal/module/ingest/ports"
)

// StableKey computes the idempotent key for a canonical record. Priority
// order (spec section 4.5):
//  1. native transaction id, when the source supplies one: (bank_source_id, native_id)
//  2. else a sha256 hash over (bank_source_id, date, description,
//     original_amount_value, original_amount_currency) — the GBP-converted
//     amount is never part of the key, so a later FX-rate change cannot
//     create a spurious "new" key for the same source row.
func StableKey(bankSourceID, nativeID, dateISO, normalizedDescription string, originalAmountValue float64, originalAmountCurrency string) string {
	if nativeID != "" {
		return bankSourceID + ":" + nativeID
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", bankSourceID, dateISO, normalizedDescription,
		strconv.FormatFloat(originalAmountValue, 'f', -1, 64), originalAmountCurrency)
	return bankSourceID + ":" + hex.EncodeToString(h.Sum(nil))
}

// Detector checks stable keys against the Result Store.
type Detector struct {
	store ports.ResultStore
}

func NewDetector(store ports.ResultStore) *Detector {
	return &Detector{store: store}
}

// IsDuplicate queries the Result Store for an existing row under key. A
// hash collision is indistinguishable from a true duplicate and is treated
// as one (spec section 4.5): it is logged by the caller, not retried here.
func (d *Detector) IsDuplicate(ctx context.Context, bankSourceID, key string) (bool, error) {
	existing, err := d.store.FindByKey(ctx, bankSourceID, key)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}
