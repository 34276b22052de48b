package models

import (
	"gorm.io/gorm"
)

// IngredientLine is one free-text ingredient entry inside a recipe. Position
// is the line's index in the recipe's ordered list. LineID is a stable
// identifier assigned when the line is created; issues correlate to lines by
// LineID so renaming a line never orphans or misattributes its issues.
type IngredientLine struct {
	gorm.Model
	RecipeID uint   `gorm:"not null;index" json:"recipe_id"`
	LineID   string `gorm:"type:varchar(36);not null;index" json:"line_id"`
	Position int    `gorm:"not null" json:"position"`

	Name         string  `gorm:"not null" json:"name"`
	Quantity     float64 `gorm:"not null" json:"quantity"`
	Unit         string  `json:"unit"`
	OriginalUnit string  `json:"original_unit,omitempty"`
	UnitUnclear  bool    `gorm:"not null;default:false" json:"unit_unclear"`

	InventoryItemID *uint           `json:"inventory_item_id,omitempty"`
	InventoryItem   *InventoryItem  `gorm:"foreignKey:InventoryItemID" json:"inventory_item,omitempty"`
	IsNew           bool            `gorm:"not null;default:false" json:"is_new"`
	Confidence      ConfidenceLevel `gorm:"type:varchar(16);not null;default:low" json:"confidence"`
}

// Matched reports whether the line carries a resolved inventory reference.
func (l IngredientLine) Matched() bool {
	return l.InventoryItemID != nil && *l.InventoryItemID != 0
}
