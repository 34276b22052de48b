package recon

import (
	"fmt"
	"testing"

	"mise/models"
)

func scoredLines(total, unmatched int) []models.IngredientLine {
	lines := make([]models.IngredientLine, 0, total)
	for i := 0; i < total; i++ {
		l := line(fmt.Sprintf("l%d", i), i, fmt.Sprintf("Ingredient %d", i))
		if i >= unmatched {
			id := uint(i + 1)
			l.InventoryItemID = &id
		}
		lines = append(lines, l)
	}
	return lines
}

func TestScoreDeterminism(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		unmatched      int
		wantConfidence models.ConfidenceLevel
		wantStatus     models.RecipeStatus
	}{
		{"all matched", 10, 0, models.ConfidenceHigh, models.StatusReadyToImport},
		{"two unmatched of ten", 10, 2, models.ConfidenceMedium, models.StatusNeedsReview},
		{"four unmatched of ten", 10, 4, models.ConfidenceLow, models.StatusNeedsReview},
		{"single matched line", 1, 0, models.ConfidenceHigh, models.StatusReadyToImport},
		{"empty recipe", 0, 0, models.ConfidenceLow, models.StatusNeedsReview},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			confidence, status := Score(scoredLines(tt.total, tt.unmatched))
			if confidence != tt.wantConfidence {
				t.Fatalf("confidence = %s, want %s", confidence, tt.wantConfidence)
			}
			if status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", status, tt.wantStatus)
			}
		})
	}
}

func TestScoreHighRequiresZeroUnmatched(t *testing.T) {
	// 19 of 20 matched is a 0.95 match rate, but one line is still
	// unresolved, so the recipe cannot be high confidence or ready.
	confidence, status := Score(scoredLines(20, 1))
	if confidence != models.ConfidenceMedium {
		t.Fatalf("confidence = %s, want medium", confidence)
	}
	if status != models.StatusNeedsReview {
		t.Fatalf("status = %s, want needs_review", status)
	}
}

func TestRepairLinesClearsDanglingReferences(t *testing.T) {
	lines := scoredLines(3, 0)
	live := map[uint]bool{1: true, 3: true}

	repaired := RepairLines(lines, live)
	if repaired != 1 {
		t.Fatalf("repaired = %d, want 1", repaired)
	}

	dangling := lines[1]
	if dangling.InventoryItemID != nil {
		t.Fatalf("dangling reference not cleared: %+v", dangling)
	}
	if !dangling.IsNew || dangling.Confidence != models.ConfidenceLow {
		t.Fatalf("repaired line must be flagged new with low confidence: %+v", dangling)
	}

	if lines[0].InventoryItemID == nil || lines[2].InventoryItemID == nil {
		t.Fatalf("live references must survive repair")
	}

	confidence, status := Score(lines)
	if confidence == models.ConfidenceHigh || status == models.StatusReadyToImport {
		t.Fatalf("repair must demote the recipe, got %s/%s", confidence, status)
	}
}

func TestRepairLinesNoOpWhenAllLive(t *testing.T) {
	lines := scoredLines(2, 0)
	live := map[uint]bool{1: true, 2: true}

	if repaired := RepairLines(lines, live); repaired != 0 {
		t.Fatalf("repaired = %d, want 0", repaired)
	}
}
