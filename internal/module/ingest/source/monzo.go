package source

import (
	"strings"

	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/module/ingest/validate"
)

// MonzoAdapter maps Monzo's CSV export columns (spec section 6):
// date="Date", time="Time", description composed from ["Name","Description"],
// amount="Amount", currency="Currency", type="Type", txid="Transaction ID",
// notes="Notes and #tags".
type MonzoAdapter struct{}

func NewMonzoAdapter() *MonzoAdapter { return &MonzoAdapter{} }

func (a *MonzoAdapter) SourceID() string  { return "MONZO" }
func (a *MonzoAdapter) HasNativeID() bool { return true }

func (a *MonzoAdapter) Canonicalize(raw ports.RawRecord) (CanonicalRecord, error) {
	date := getString(raw, "Date")
	clock := getString(raw, "Time")
	dateTime := strings.TrimSpace(date + " " + clock)
	txDate, err := validate.Date("transaction_date", dateTime)
	if err != nil {
		txDate, err = validate.Date("transaction_date", date)
		if err != nil {
			return CanonicalRecord{}, err
		}
	}

	amount, err := parseAmountField(raw, "Amount")
	if err != nil {
		return CanonicalRecord{}, err
	}

	currency, err := validate.Currency("currency", getString(raw, "Currency"))
	if err != nil {
		return CanonicalRecord{}, err
	}

	description := canonicalizeDescription(getString(raw, "Name"), getString(raw, "Description"))

	return CanonicalRecord{
		BankSourceID:           a.SourceID(),
		OriginalTransactionID:  getString(raw, "Transaction ID"),
		TransactionDate:        txDate,
		Description:            description,
		TransactionType:        monzoDirection(getString(raw, "Type"), amount),
		OriginalAmountValue:    amount,
		OriginalAmountCurrency: currency,
		Notes:                  getString(raw, "Notes and #tags"),
	}, nil
}

// monzoDirection implements the "not-credit-not-refund-not-incoming" rule:
// any type not explicitly a credit/refund/incoming transfer is a DEBIT.
func monzoDirection(txType string, amount float64) txdomain.Direction {
	lowered := strings.ToLower(txType)
	switch {
	case strings.Contains(lowered, "refund"),
		strings.Contains(lowered, "incoming"),
		strings.Contains(lowered, "credit"):
		return txdomain.DirectionCredit
	default:
		return txdomain.DirectionDebit
	}
}
