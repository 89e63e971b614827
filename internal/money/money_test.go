package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAmount_BankersRounding(t *testing.T) {
	a, err := NewAmount("10.125")
	require.NoError(t, err)
	assert.Equal(t, "10.12", a.Decimal.String())

	b, err := NewAmount("10.135")
	require.NoError(t, err)
	assert.Equal(t, "10.14", b.Decimal.String())
}

func TestNewAmount_InvalidString(t *testing.T) {
	_, err := NewAmount("not-a-number")
	require.Error(t, err)
}

func TestAmount_MulByRate(t *testing.T) {
	a, _ := NewAmount("100.00")
	r, _ := NewRate("0.851234")
	got := a.Mul(r)
	assert.Equal(t, "85.12", got.Decimal.String())
}

func TestRate_ScaleRounding(t *testing.T) {
	r, err := NewRate("0.8512345")
	require.NoError(t, err)
	assert.Equal(t, "0.851234", r.Decimal.String()) // round-half-even truncates 5 down on even predecessor
}
