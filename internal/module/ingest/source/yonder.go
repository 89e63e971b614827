package source

import (
	"strings"

	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/module/ingest/validate"
)

// YonderAdapter maps Yonder's export columns (spec section 6):
// date="Date/Time of transaction", description="Description",
// amount_gbp="Amount (GBP)", amount="Amount", currency="Currency",
// type="Debit or Credit", country="Country"; no native txid.
type YonderAdapter struct{}

func NewYonderAdapter() *YonderAdapter { return &YonderAdapter{} }

func (a *YonderAdapter) SourceID() string  { return "YONDER" }
func (a *YonderAdapter) HasNativeID() bool { return false }

func (a *YonderAdapter) Canonicalize(raw ports.RawRecord) (CanonicalRecord, error) {
	txDate, err := validate.Date("transaction_date", getString(raw, "Date/Time of transaction"))
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

	gbpAmount, err := parseOptionalGBP(raw, "Amount (GBP)")
	if err != nil {
		return CanonicalRecord{}, err
	}

	description := canonicalizeDescription(getString(raw, "Description"))

	return CanonicalRecord{
		BankSourceID:           a.SourceID(),
		TransactionDate:        txDate,
		Description:            description,
		TransactionType:        yonderDirection(getString(raw, "Debit or Credit")),
		OriginalAmountValue:    amount,
		OriginalAmountCurrency: currency,
		GBPAmountValue:         gbpAmount,
		Country:                getString(raw, "Country"),
	}, nil
}

// yonderDirection reads the type column literally (spec section 4.3).
func yonderDirection(s string) txdomain.Direction {
	if strings.EqualFold(strings.TrimSpace(s), "Credit") {
		return txdomain.DirectionCredit
	}
	return txdomain.DirectionDebit
}
