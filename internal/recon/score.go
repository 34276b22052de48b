package recon

import (
	"mise/models"
)

const (
	highMatchRate   = 0.9
	mediumMatchRate = 0.7
)

// Score derives a recipe's confidence level and implied readiness status
// from its ingredient match state. The same computation runs when a recipe
// is imported and when it is reloaded.
func Score(lines []models.IngredientLine) (models.ConfidenceLevel, models.RecipeStatus) {
	total := len(lines)
	unmatched := 0
	for i := range lines {
		if !lines[i].Matched() {
			unmatched++
		}
	}

	matchRate := 0.0
	if total > 0 {
		matchRate = float64(total-unmatched) / float64(total)
	}

	confidence := models.ConfidenceLow
	switch {
	case matchRate >= highMatchRate && unmatched == 0:
		confidence = models.ConfidenceHigh
	case matchRate >= mediumMatchRate:
		confidence = models.ConfidenceMedium
	}

	status := models.StatusNeedsReview
	if unmatched == 0 && total > 0 {
		status = models.StatusReadyToImport
	}

	return confidence, status
}

// RepairLines clears inventory references that no longer resolve against the
// live id set: the line reverts to unmatched, is flagged as new, and drops to
// low confidence. This is the lazy read-time repair for inventory items
// deleted after the recipe was saved; it returns how many lines were touched.
func RepairLines(lines []models.IngredientLine, live map[uint]bool) int {
	repaired := 0
	for i := range lines {
		line := &lines[i]
		if line.InventoryItemID == nil {
			continue
		}
		if live[*line.InventoryItemID] {
			continue
		}
		line.InventoryItemID = nil
		line.InventoryItem = nil
		line.IsNew = true
		line.Confidence = models.ConfidenceLow
		repaired++
	}
	return repaired
}
