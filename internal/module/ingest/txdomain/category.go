package txdomain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Category is managed by users and never hard-deleted (spec section 3);
// trimmed from the teacher's category/domain/domain.go, which additionally
// carries a parent/child hierarchy and budget fields this engine has no use
// for (Non-goals: "building a general ledger").
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"uniqueIndex;not null"`
	Description string
	Examples    datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	IsActive    bool                        `gorm:"not null;default:true;index"`
	CreatedAt   time.Time                   `gorm:"not null"`
	ModifiedAt  time.Time                   `gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

// FoldedName is the unicode-case-folded, whitespace-trimmed comparison key
// C7's resolver matches against.
func (c Category) FoldedName() string {
	return foldName(c.Name)
}
