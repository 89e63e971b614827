package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"txledger/internal/adapter/sourcestore"
	"txledger/internal/module/ingest/txdomain"
)

// defaultCategory is the seed shape before a UUID/timestamp is stamped on.
type defaultCategory struct {
	Name        string
	Description string
	Examples    []string
}

// defaultCategories mirrors the teacher's default-category seed list,
// narrowed to a personal-finance expense/income split with no hierarchy
// (spec section 3's Category has no parent/child or budget fields).
func defaultCategories() []defaultCategory {
	return []defaultCategory{
		{Name: "Groceries", Description: "Supermarkets and food shops", Examples: []string{"Tesco", "Sainsbury's", "Aldi"}},
		{Name: "Dining", Description: "Restaurants, cafes, takeaways", Examples: []string{"Deliveroo", "Pret", "Nando's"}},
		{Name: "Transport", Description: "Public transport, fuel, ride-hailing", Examples: []string{"TfL", "Uber", "Shell"}},
		{Name: "Bills & Utilities", Description: "Rent, energy, phone, internet", Examples: []string{"British Gas", "EE", "Thames Water"}},
		{Name: "Shopping", Description: "Retail and online purchases", Examples: []string{"Amazon", "John Lewis"}},
		{Name: "Entertainment", Description: "Subscriptions, cinema, events", Examples: []string{"Netflix", "Spotify", "Odeon"}},
		{Name: "Health & Fitness", Description: "Pharmacies, gyms, clinics", Examples: []string{"Boots", "PureGym"}},
		{Name: "Salary", Description: "Employer payroll deposits", Examples: []string{"Payroll"}},
		{Name: "Transfers", Description: "Transfers between own accounts", Examples: []string{"Internal transfer"}},
		{Name: "Other", Description: "Uncategorisable or miscellaneous", Examples: []string{}},
	}
}

// defaultBankSources seeds the static source configuration spec section 3
// names (the engine ships adapters for these four banks).
func defaultBankSources() []sourcestore.BankSourceRow {
	return []sourcestore.BankSourceRow{
		{ID: "MONZO", DisplayName: "Monzo", HasNativeTransactionID: true, IsActive: true},
		{ID: "REVOLUT", DisplayName: "Revolut", HasNativeTransactionID: false, IsActive: true},
		{ID: "YONDER", DisplayName: "Yonder", HasNativeTransactionID: false, IsActive: true},
		{ID: "STARLING", DisplayName: "Starling", HasNativeTransactionID: false, IsActive: true},
	}
}

// SeedAll idempotently creates default categories and bank sources. It
// skips whichever table already has rows rather than upserting, matching
// the teacher's seeder's count-then-skip convention.
func SeedAll(db *gorm.DB, log *zap.Logger) error {
	if err := seedCategories(db, log); err != nil {
		return err
	}
	if err := seedBankSources(db, log); err != nil {
		return err
	}
	return nil
}

func seedCategories(db *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := db.Model(&txdomain.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		log.Info("categories already seeded, skipping", zap.Int64("count", count))
		return nil
	}

	now := time.Now().UTC()
	rows := make([]txdomain.Category, 0, len(defaultCategories()))
	for _, c := range defaultCategories() {
		rows = append(rows, txdomain.Category{
			ID:          uuid.New(),
			Name:        c.Name,
			Description: c.Description,
			Examples:    datatypes.JSONSlice[string](c.Examples),
			IsActive:    true,
			CreatedAt:   now,
			ModifiedAt:  now,
		})
	}

	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to seed default categories: %w", err)
	}
	log.Info("seeded default categories", zap.Int("count", len(rows)))
	return nil
}

func seedBankSources(db *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := db.Model(&sourcestore.BankSourceRow{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count bank sources: %w", err)
	}
	if count > 0 {
		log.Info("bank sources already seeded, skipping", zap.Int64("count", count))
		return nil
	}

	rows := defaultBankSources()
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to seed default bank sources: %w", err)
	}
	log.Info("seeded default bank sources", zap.Int("count", len(rows)))
	return nil
}
