package category

import (
	"context"

	"gorm.io/gorm"

	"txledger/internal/module/ingest/txdomain"
)

// GormRepository implements ports.CategoriesStore over the Category table.
// Adapted from the teacher's category/repository/gorm_repository.go, trimmed
// to this engine's flat (non-hierarchical) Category entity.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// List returns every category, active or not — CategoriesStore's contract
// is the full set; callers (the Resolver) filter for active themselves.
func (r *GormRepository) List(ctx context.Context) ([]txdomain.Category, error) {
	var categories []txdomain.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Deactivate flips is_active=false (soft delete only, spec section 6:
// CategoriesStore never hard-deletes).
func (r *GormRepository) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&txdomain.Category{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}
