package source

import (
	"strings"

	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/module/ingest/validate"
)

// RevolutAdapter maps Revolut's export columns (spec section 6):
// started="Started Date", completed="Completed Date" (prefer Completed when
// present), description="Description", amount="Amount", currency="Currency",
// type="Type", product="Product"; no native txid.
type RevolutAdapter struct{}

func NewRevolutAdapter() *RevolutAdapter { return &RevolutAdapter{} }

func (a *RevolutAdapter) SourceID() string  { return "REVOLUT" }
func (a *RevolutAdapter) HasNativeID() bool { return false }

func (a *RevolutAdapter) Canonicalize(raw ports.RawRecord) (CanonicalRecord, error) {
	completed := getString(raw, "Completed Date")
	started := getString(raw, "Started Date")
	dateStr := completed
	if dateStr == "" {
		dateStr = started
	}
	txDate, err := validate.Date("transaction_date", dateStr)
	if err != nil {
		return CanonicalRecord{}, err
	}

	amount, err := parseAmountField(raw, "Amount")
	if err != nil {
		return CanonicalRecord{}, err
	}

	currency, err := validate.Currency("currency", getString(raw, "Currency"))
	if err != nil {
		return CanonicalRecord{}, err
	}

	rawType := getString(raw, "Type")
	description := canonicalizeDescription(getString(raw, "Description"))

	return CanonicalRecord{
		BankSourceID:           a.SourceID(),
		TransactionDate:        txDate,
		Description:            description,
		TransactionType:        revolutDirection(rawType, amount),
		OriginalAmountValue:    amount,
		OriginalAmountCurrency: currency,
		Notes:                  getString(raw, "Product"),
	}, nil
}

// revolutDirection treats TOPUP and other incoming types as CREDIT
// (spec section 4.3).
func revolutDirection(rawType string, amount float64) txdomain.Direction {
	switch strings.ToUpper(strings.TrimSpace(rawType)) {
	case "TOPUP", "ATM", "REFUND", "CASHBACK":
		if amount >= 0 {
			return txdomain.DirectionCredit
		}
		return txdomain.DirectionDebit
	default:
		if amount > 0 {
			return txdomain.DirectionCredit
		}
		return txdomain.DirectionDebit
	}
}
