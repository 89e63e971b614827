// Package money provides the fixed-precision decimal types the ingestion
// engine uses for amounts and exchange rates. Floating point is never used
// for a stored amount or rate (spec design notes section 9).
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places a GBP-denominated amount is
// rounded to.
const AmountScale = 2

// RateScale is the number of decimal places an exchange rate snapshot is
// rounded to.
const RateScale = 6

// Amount is a monetary value rounded to AmountScale using banker's rounding
// (round-half-to-even), matching spec.md's rounding requirement.
type Amount struct {
	decimal.Decimal
}

// NewAmount builds an Amount from a decimal string, rejecting malformed
// input rather than silently truncating it.
func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	return Amount{d.RoundBank(AmountScale)}, nil
}

// AmountFromFloat is provided only for adapting bank feeds that hand back a
// float64; it immediately rounds into fixed precision so the float never
// propagates further than the parse boundary.
func AmountFromFloat(f float64) Amount {
	return Amount{decimal.NewFromFloat(f).RoundBank(AmountScale)}
}

func (a Amount) Add(b Amount) Amount {
	return Amount{a.Decimal.Add(b.Decimal).RoundBank(AmountScale)}
}

func (a Amount) Mul(rate Rate) Amount {
	return Amount{a.Decimal.Mul(rate.Decimal).RoundBank(AmountScale)}
}

func (a Amount) IsZero() bool { return a.Decimal.IsZero() }

func (a Amount) Value() (driver.Value, error) {
	return a.Decimal.RoundBank(AmountScale).String(), nil
}

func (a *Amount) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	a.Decimal = d.RoundBank(AmountScale)
	return nil
}

// Rate is an exchange rate snapshot rounded to RateScale.
type Rate struct {
	decimal.Decimal
}

func NewRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, fmt.Errorf("money: invalid rate %q: %w", s, err)
	}
	return Rate{d.RoundBank(RateScale)}, nil
}

func RateFromFloat(f float64) Rate {
	return Rate{decimal.NewFromFloat(f).RoundBank(RateScale)}
}

func (r Rate) Value() (driver.Value, error) {
	return r.Decimal.RoundBank(RateScale).String(), nil
}

func (r *Rate) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	r.Decimal = d.RoundBank(RateScale)
	return nil
}
