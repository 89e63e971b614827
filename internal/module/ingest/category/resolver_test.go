package category_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"txledger/internal/module/ingest/category"
	"txledger/internal/module/ingest/txdomain"
)

func cat(name string, active bool) txdomain.Category {
	return txdomain.Category{ID: uuid.New(), Name: name, IsActive: active}
}

func TestResolve_CaseFoldedExactMatch(t *testing.T) {
	groceries := cat("Groceries", true)
	r := category.NewResolver([]txdomain.Category{groceries})

	result := r.Resolve("gROCERIES")

	assert.True(t, result.Found)
	assert.Equal(t, groceries.ID, result.Category.ID)
}

func TestResolve_IgnoresInactive(t *testing.T) {
	inactive := cat("Old Category", false)
	r := category.NewResolver([]txdomain.Category{inactive})

	result := r.Resolve("Old Category")

	assert.False(t, result.Found)
}

func TestResolve_EmptyInputReturnsEmptyReason(t *testing.T) {
	r := category.NewResolver(nil)
	result := r.Resolve("   ")
	assert.False(t, result.Found)
	assert.Equal(t, "empty", result.Warning)
}

func TestResolve_SuggestsStartsWithBeforeContains(t *testing.T) {
	transport := cat("Transport", true)
	publicTransport := cat("Public Transport", true)
	r := category.NewResolver([]txdomain.Category{publicTransport, transport})

	result := r.Resolve("trans")

	assert.False(t, result.Found)
	if assert.NotEmpty(t, result.Suggested) {
		assert.Equal(t, 1, result.Suggested[0].Priority)
		assert.Equal(t, transport.ID, result.Suggested[0].Category.ID)
	}
}

func TestResolveBatch_DedupesNames(t *testing.T) {
	groceries := cat("Groceries", true)
	r := category.NewResolver([]txdomain.Category{groceries})

	results := r.ResolveBatch([]string{"Groceries", "groceries", "GROCERIES"})

	assert.Len(t, results, 3)
	for _, res := range results {
		assert.True(t, res.Found)
	}
}

func TestByID_FindsActiveOnly(t *testing.T) {
	active := cat("Active", true)
	r := category.NewResolver([]txdomain.Category{active})

	found, ok := r.ByID(active.ID)
	assert.True(t, ok)
	assert.Equal(t, active.Name, found.Name)

	_, ok = r.ByID(uuid.New())
	assert.False(t, ok)
}
