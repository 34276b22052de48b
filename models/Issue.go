package models

import (
	"gorm.io/gorm"
)

// IssueKind classifies a recipe data-quality issue.
type IssueKind string

const (
	IssueUnitUnclear         IssueKind = "unit_unclear"
	IssueIngredientNotFound  IssueKind = "ingredient_not_found"
	IssueSimilarIngredient   IssueKind = "similar_ingredient"
	IssueMissingData         IssueKind = "missing_data"
	IssueImportFailed        IssueKind = "import_failed"
	IssueDuplicateIngredient IssueKind = "duplicate_ingredient"
)

// Issue is one entry in a recipe's self-healing issue list. Line-scoped
// issues correlate to an ingredient line through LineID; CorrelatedName is
// refreshed from the line on every reconciliation and exists for display
// only. Duplicate issues carry no LineID and correlate through the
// normalized-name group key held in CorrelatedName.
//
// DuplicateIndices are recipe-local positions valid only for the ingredient
// list that produced them; reconciliation recomputes them from scratch on
// every pass, it never diffs them.
type Issue struct {
	gorm.Model
	RecipeID uint      `gorm:"not null;index" json:"recipe_id"`
	Kind     IssueKind `gorm:"type:varchar(32);not null" json:"kind"`
	Message  string    `gorm:"type:text;not null" json:"message"`

	LineID           string `gorm:"type:varchar(36);index" json:"line_id,omitempty"`
	CorrelatedName   string `json:"correlated_name,omitempty"`
	SuggestedFix     string `json:"suggested_fix,omitempty"`
	DuplicateIndices []int  `gorm:"serializer:json" json:"duplicate_indices,omitempty"`
}
