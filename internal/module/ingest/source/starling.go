package source

import (
	"strings"

	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/module/ingest/validate"
)

// StarlingAdapter is a supplemented fourth source, added to prove the
// registry holds more than the three named in the original spec: date="Date",
// counterparty="Counter Party", reference="Reference", amount="Amount (GBP)",
// type="Type", spendingCategory="Spending Category", notes="Notes";
// currency is implicitly GBP (Starling's consumer CSV export carries no
// foreign-currency column); no native txid in the CSV export.
type StarlingAdapter struct{}

func NewStarlingAdapter() *StarlingAdapter { return &StarlingAdapter{} }

func (a *StarlingAdapter) SourceID() string  { return "STARLING" }
func (a *StarlingAdapter) HasNativeID() bool { return false }

func (a *StarlingAdapter) Canonicalize(raw ports.RawRecord) (CanonicalRecord, error) {
	txDate, err := validate.Date("transaction_date", getString(raw, "Date"))
	if err != nil {
		return CanonicalRecord{}, err
	}

	amount, err := parseAmountField(raw, "Amount (GBP)")
	if err != nil {
		return CanonicalRecord{}, err
	}

	description := canonicalizeDescription(getString(raw, "Counter Party"), getString(raw, "Reference"))

	return CanonicalRecord{
		BankSourceID:           a.SourceID(),
		TransactionDate:        txDate,
		Description:            description,
		TransactionType:        starlingDirection(getString(raw, "Type"), amount),
		OriginalAmountValue:    amount,
		OriginalAmountCurrency: "GBP",
		Notes:                  strings.TrimSpace(getString(raw, "Notes") + " " + getString(raw, "Spending Category")),
	}, nil
}

func starlingDirection(txType string, amount float64) txdomain.Direction {
	lowered := strings.ToLower(txType)
	if strings.Contains(lowered, "deposit") || strings.Contains(lowered, "incoming") || amount > 0 {
		return txdomain.DirectionCredit
	}
	return txdomain.DirectionDebit
}
