package importer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mise/internal/match"
	"mise/internal/recon"
	"mise/models"
)

const fallbackRecipeName = "Imported Recipe"

// BuildRecipe assembles a recipe from an extraction: every line gets a stable
// identifier, is auto-matched against the inventory, and carries the unit
// verdict. Lines whose best candidate lands below the auto-accept bar get a
// similar-ingredient suggestion; lines without a usable quantity push the
// whole recipe into draft with a missing-data issue, the user completes it.
func BuildRecipe(extraction Extraction, inventory []models.InventoryItem, source models.SourceType) *models.Recipe {
	recipe := &models.Recipe{
		Name:       strings.TrimSpace(extraction.RecipeName),
		Notes:      strings.TrimSpace(extraction.Notes),
		SourceType: source,
	}
	if recipe.Name == "" {
		recipe.Name = fallbackRecipeName
	}

	var seeded []models.Issue
	incomplete := false

	for _, entry := range extraction.Ingredients {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			continue
		}

		line := models.IngredientLine{
			LineID:     uuid.NewString(),
			Position:   len(recipe.Ingredients),
			Name:       name,
			Quantity:   entry.Quantity,
			Unit:       strings.TrimSpace(entry.Unit),
			Confidence: models.ConfidenceLow,
		}

		if line.Quantity <= 0 {
			incomplete = true
			seeded = append(seeded, models.Issue{
				Kind:           models.IssueMissingData,
				LineID:         line.LineID,
				CorrelatedName: line.Name,
				Message:        fmt.Sprintf("no quantity could be read for %q", line.Name),
			})
		}

		if candidate, confidence, ok := match.AutoMatch(name, inventory); ok {
			line.InventoryItemID = &candidate.Item.ID
			line.Confidence = confidence
			switch {
			case line.Unit == "" || entry.UnitUnclear:
				line.OriginalUnit = line.Unit
				line.UnitUnclear = true
			case !candidate.Item.SupportsUnit(line.Unit):
				line.OriginalUnit = line.Unit
				line.UnitUnclear = true
			}
		} else {
			line.IsNew = true
			if line.Unit == "" || entry.UnitUnclear {
				line.OriginalUnit = line.Unit
				line.UnitUnclear = true
			}
			if best, found := match.Best(name, inventory); found {
				seeded = append(seeded, models.Issue{
					Kind:           models.IssueSimilarIngredient,
					LineID:         line.LineID,
					CorrelatedName: line.Name,
					SuggestedFix:   best.Item.Name,
					Message:        fmt.Sprintf("%q is close to inventory item %q", line.Name, best.Item.Name),
				})
			}
		}

		recipe.Ingredients = append(recipe.Ingredients, line)
	}

	recipe.Issues = recon.Reconcile(recipe.Ingredients, seeded)

	if incomplete || len(recipe.Ingredients) == 0 {
		recipe.Status = models.StatusDraft
		recipe.Confidence = models.ConfidenceLow
		return recipe
	}

	recipe.Confidence, recipe.Status = recon.Score(recipe.Ingredients)
	return recipe
}

// FailedImport wraps an extraction failure as a persistable draft instead of
// an error: the recipe lands in import_failed with an issue naming the cause,
// so the user sees the failure in their list and can retry or fill it in
// manually.
func FailedImport(nameHint string, source models.SourceType, cause error) *models.Recipe {
	name := strings.TrimSpace(nameHint)
	if name == "" {
		name = fallbackRecipeName
	}
	message := "recipe extraction failed"
	if cause != nil {
		message = fmt.Sprintf("recipe extraction failed: %v", cause)
	}
	return &models.Recipe{
		Name:       name,
		SourceType: source,
		Status:     models.StatusImportFailed,
		Confidence: models.ConfidenceLow,
		Issues: []models.Issue{
			{
				Kind:    models.IssueImportFailed,
				Message: message,
			},
		},
	}
}
