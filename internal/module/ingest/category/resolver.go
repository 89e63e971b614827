// Package category is the Category domain repository plus the Category
// Resolver (C7): a pure, in-memory matcher over the set of active categories
// loaded for a run.
package category

import (
	"strings"

	"github.com/google/uuid"

	"txledger/internal/module/ingest/txdomain"
)

// Result is resolve()'s {found, category?, warning?} shape.
type Result struct {
	Found     bool
	Category  *txdomain.Category
	Warning   string
	Suggested []Suggestion
}

// Suggestion is one candidate surfaced when resolve fails to find an exact
// match, ranked starts-with (priority 1) then contains (priority 2).
type Suggestion struct {
	Category *txdomain.Category
	Priority int
}

// MaxSuggestions bounds how many candidates Resolve returns.
const MaxSuggestions = 5

// Resolver matches a free-text category name against the active set.
type Resolver struct {
	active []txdomain.Category
}

func NewResolver(categories []txdomain.Category) *Resolver {
	active := make([]txdomain.Category, 0, len(categories))
	for _, c := range categories {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return &Resolver{active: active}
}

// Resolve implements C7's contract: trim, unicode case-fold, compare to
// every active category's folded name. Inactive categories are never
// matched. Empty/whitespace input returns not-found with reason "empty".
func (r *Resolver) Resolve(name string) Result {
	folded := txdomain.FoldName(name)
	if folded == "" {
		return Result{Found: false, Warning: "empty"}
	}

	for i := range r.active {
		if r.active[i].FoldedName() == folded {
			c := r.active[i]
			return Result{Found: true, Category: &c}
		}
	}

	return Result{Found: false, Warning: "not found", Suggested: r.suggest(folded)}
}

func (r *Resolver) suggest(folded string) []Suggestion {
	var startsWith, contains []Suggestion
	for i := range r.active {
		c := r.active[i]
		cf := c.FoldedName()
		switch {
		case strings.HasPrefix(cf, folded):
			startsWith = append(startsWith, Suggestion{Category: &c, Priority: 1})
		case strings.Contains(cf, folded):
			contains = append(contains, Suggestion{Category: &c, Priority: 2})
		}
	}
	out := append(startsWith, contains...)
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

// ResolveBatch collects unique names and resolves each once, the batch
// variant spec section 4.7 names. Every input name is a key of the result;
// names that fold to the same value share one resolution.
func (r *Resolver) ResolveBatch(names []string) map[string]Result {
	seen := make(map[string]Result, len(names))
	unique := make(map[string]Result, len(names))
	for _, n := range names {
		folded := txdomain.FoldName(n)
		res, ok := unique[folded]
		if !ok {
			res = r.Resolve(n)
			unique[folded] = res
		}
		seen[n] = res
	}
	return seen
}

// ByID looks an active category up by id, used by C10 to validate a
// category reference before assignment (testable property 5: active-category
// closure).
func (r *Resolver) ByID(id uuid.UUID) (*txdomain.Category, bool) {
	for i := range r.active {
		if r.active[i].ID == id {
			c := r.active[i]
			return &c, true
		}
	}
	return nil, false
}
