package txdomain

import (
	"strings"

	"golang.org/x/text/cases"
)

var caseFolder = cases.Fold()

// foldName trims and unicode-case-folds a name for comparison, the rule C7's
// Category Resolver applies uniformly to both stored categories and
// incoming user input.
func foldName(s string) string {
	return caseFolder.String(strings.TrimSpace(s))
}

// FoldName exports foldName for use by other ingest packages (C7, C11)
// without duplicating the normalization rule.
func FoldName(s string) string {
	return foldName(s)
}
