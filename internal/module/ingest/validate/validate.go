// Package validate is the Data Validator (C2): pure functions with no
// dependency on any other ingest package. Every failure raises a
// *ValidationError carrying the offending field, value, and message.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError is raised by every contract in this package.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate: field %q value %q: %s", e.Field, e.Value, e.Message)
}

func newErr(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

var ukLocation = mustLoadUKLocation()

func mustLoadUKLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return time.UTC
	}
	return loc
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006 15:04:05",
	"02-01-2006",
}

// Date accepts ISO 8601 (date or datetime) and DD/MM/YYYY or DD-MM-YYYY,
// treats source-local values as UK wall-clock, and normalizes to a UTC
// instant (spec section 4.2).
func Date(field, raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, newErr(field, raw, "date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, ukLocation); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, newErr(field, raw, "unrecognized date format")
}

var amountCleaner = strings.NewReplacer(",", "", "£", "", "$", "", "€", "", " ", "")

// Amount accepts a numeric or currency-symbol-decorated string, rejects
// NaN/Inf, and preserves sign (spec section 4.2).
func Amount(field, raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, newErr(field, raw, "amount is required")
	}
	cleaned := amountCleaner.Replace(trimmed)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, newErr(field, raw, "not a valid amount")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, newErr(field, raw, "amount must be finite")
	}
	return v, nil
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

var supportedCurrencies = map[string]bool{
	"GBP": true, "USD": true, "EUR": true, "CAD": true, "AUD": true,
	"JPY": true, "MAD": true, "THB": true, "SGD": true, "HKD": true,
	"ZAR": true, "NOK": true, "CNY": true, "SEK": true,
}

// Currency enforces the ^[A-Z]{3}$ shape and membership in the supported set.
func Currency(field, raw string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if !currencyPattern.MatchString(trimmed) {
		return "", newErr(field, raw, "currency must be a 3-letter ISO code")
	}
	if !supportedCurrencies[trimmed] {
		return "", newErr(field, raw, "currency is not supported")
	}
	return trimmed, nil
}

// UUID validates RFC-4122 form and case-normalizes to lowercase.
func UUID(field, raw string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(raw)
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return uuid.UUID{}, newErr(field, raw, "not a valid UUID")
	}
	return id, nil
}

// RequiredString trims, then enforces min length 1 / max length 255.
func RequiredString(field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < 1 {
		return "", newErr(field, raw, "must not be empty")
	}
	if len(trimmed) > 255 {
		return "", newErr(field, raw, "exceeds max length of 255")
	}
	return trimmed, nil
}

var sheetFormulaPrefixes = []byte{'=', '+', '-', '@'}

// SanitizeForSheet guards against formula injection in spreadsheet-facing
// exports by prefixing a leading apostrophe.
func SanitizeForSheet(value string) string {
	if value == "" {
		return value
	}
	for _, prefix := range sheetFormulaPrefixes {
		if value[0] == prefix {
			return "'" + value
		}
	}
	return value
}

var (
	secretPattern = regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|auth)\s*[:=]\s*\S+`)
	basicAuthURL  = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^/\s:]+:[^/\s@]+@`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// SanitizeErrorMessage masks secret-bearing substrings before an error
// message is surfaced outside the process (spec section 4.2 / section 7).
func SanitizeErrorMessage(msg string) string {
	masked := secretPattern.ReplaceAllString(msg, "$1=***")
	masked = basicAuthURL.ReplaceAllString(masked, "$1***:***@")
	masked = emailPattern.ReplaceAllString(masked, "***@***")
	return masked
}
