package models

import (
	"gorm.io/gorm"
)

// RecipeStatus describes where a recipe sits in the import lifecycle.
type RecipeStatus string

const (
	StatusReadyToImport RecipeStatus = "ready_to_import"
	StatusNeedsReview   RecipeStatus = "needs_review"
	StatusImportFailed  RecipeStatus = "import_failed"
	StatusDraft         RecipeStatus = "draft"
)

// IsTerminal reports whether the status is caller-supplied and therefore
// exempt from rescoring. Draft and import-failed recipes keep their status
// until the caller moves them out of it.
func (s RecipeStatus) IsTerminal() bool {
	return s == StatusDraft || s == StatusImportFailed
}

// ConfidenceLevel grades how well a recipe (or a single ingredient match)
// lines up with the merchant's inventory.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// SourceType records which import channel produced a recipe.
type SourceType string

const (
	SourcePhoto       SourceType = "photo"
	SourcePDF         SourceType = "pdf"
	SourceSpreadsheet SourceType = "spreadsheet"
	SourceManual      SourceType = "manual"
)

// Recipe is the aggregate root: an ordered ingredient list plus the
// data-quality issues derived from it. Confidence and status are pure
// functions of the ingredient match state except for terminal statuses.
type Recipe struct {
	gorm.Model
	Name        string           `gorm:"not null" json:"name"`
	Status      RecipeStatus     `gorm:"type:varchar(32);not null;default:needs_review" json:"status"`
	Confidence  ConfidenceLevel  `gorm:"type:varchar(16);not null;default:low" json:"confidence"`
	SourceType  SourceType       `gorm:"type:varchar(16)" json:"source_type"`
	SourceRef   string           `json:"source_ref"`
	Notes       string           `gorm:"type:text" json:"notes"`
	Ingredients []IngredientLine `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
	Issues      []Issue          `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"issues"`
	MenuItemID  *uint            `json:"menu_item_id,omitempty"`
}
