package models

import (
	"gorm.io/gorm"
)

// MenuItem mirrors an entry in the merchant's point-of-sale menu catalog.
// RecipeID is set only by the recipe linker.
type MenuItem struct {
	gorm.Model
	Name     string `gorm:"not null" json:"name"`
	Category string `gorm:"not null;default:Uncategorized" json:"category"`
	RecipeID *uint  `gorm:"index" json:"recipe_id,omitempty"`
}
