// Package source implements the Source Adapters (C3): one adapter per bank
// source, each owning its column-name mapping, date parsing rules, sign
// convention, and whether the source carries a native transaction id.
package source

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/module/ingest/validate"
)

// Adapter maps one bank source's raw rows to canonical fields.
type Adapter interface {
	// SourceID is the bank_source identifier this adapter answers for
	// (e.g. MONZO, REVOLUT, YONDER, STARLING).
	SourceID() string
	// HasNativeID reports whether the source carries its own stable
	// transaction identifier.
	HasNativeID() bool
	// Canonicalize converts one RawRecord from the sheet's own column
	// names into the engine's canonical field set.
	Canonicalize(raw ports.RawRecord) (CanonicalRecord, error)
}

// CanonicalRecord is the adapter's output: every field the normalizer (C6)
// needs, independent of the originating source's column names.
type CanonicalRecord struct {
	BankSourceID          string
	OriginalTransactionID string // empty when the source has no native id
	TransactionDate       time.Time
	Description           string
	TransactionType       txdomain.Direction
	OriginalAmountValue   float64
	OriginalAmountCurrency string
	GBPAmountValue        *float64 // non-nil when the source supplies a GBP column directly
	Notes                 string
	Country                string
}

// Registry looks adapters up by bank source id, failing fast for unknown
// sources (spec section 4.3).
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.SourceID()] = a
	}
	return r
}

func (r *Registry) Get(sourceID string) (Adapter, error) {
	a, ok := r.adapters[sourceID]
	if !ok {
		return nil, fmt.Errorf("source: unknown bank source %q", sourceID)
	}
	return a, nil
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// canonicalizeDescription composes multiple source columns, lower-cases the
// result, strips non-alphanumeric characters, and collapses whitespace
// (spec section 4.3).
func canonicalizeDescription(parts ...string) string {
	joined := strings.TrimSpace(strings.Join(nonEmpty(parts), " "))
	lowered := strings.ToLower(joined)
	stripped := nonAlphanumeric.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(stripped, " "))
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func getString(raw ports.RawRecord, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func parseAmountField(raw ports.RawRecord, field string) (float64, error) {
	s := getString(raw, field)
	return validate.Amount(field, s)
}

func parseOptionalGBP(raw ports.RawRecord, field string) (*float64, error) {
	s := getString(raw, field)
	if s == "" {
		return nil, nil
	}
	v, err := validate.Amount(field, s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseSourceAmount supports plain decimals and comma-grouped strings, used
// by adapters that don't route through validate.Amount directly (e.g. when
// the sign must be inspected before currency-symbol stripping).
func parseSourceAmount(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(cleaned, 64)
}
