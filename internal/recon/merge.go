package recon

import (
	"fmt"
	"sort"
	"strings"

	"mise/models"
)

// MergeDuplicates collapses a duplicate group when all members share a unit
// token. Quantities are summed into the lowest position and the remaining
// positions are removed from highest index to lowest, so earlier indices
// stay valid during deletion. The input slice is never modified.
//
// When the group's units differ, no structural change is made and
// requiresUnitDecision is true: the caller must pick between keeping the
// lines separate or ForceMerge.
func MergeDuplicates(lines []models.IngredientLine, positions []int) ([]models.IngredientLine, bool, error) {
	sorted, err := validatePositions(lines, positions)
	if err != nil {
		return nil, false, err
	}

	unit := unitToken(lines[sorted[0]].Unit)
	for _, pos := range sorted[1:] {
		if unitToken(lines[pos].Unit) != unit {
			return lines, true, nil
		}
	}

	return mergeGroup(lines, sorted), false, nil
}

// ForceMerge sums the group's raw quantities under the first member's unit
// without any conversion. This is deliberately lossy; it exists as the
// explicit user choice for a cross-unit duplicate group.
func ForceMerge(lines []models.IngredientLine, positions []int) ([]models.IngredientLine, error) {
	sorted, err := validatePositions(lines, positions)
	if err != nil {
		return nil, err
	}
	return mergeGroup(lines, sorted), nil
}

func validatePositions(lines []models.IngredientLine, positions []int) ([]int, error) {
	if len(positions) < 2 {
		return nil, fmt.Errorf("merge requires at least two positions, got %d", len(positions))
	}

	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)

	for i, pos := range sorted {
		if pos < 0 || pos >= len(lines) {
			return nil, fmt.Errorf("position %d is out of range for %d ingredients", pos, len(lines))
		}
		if i > 0 && sorted[i-1] == pos {
			return nil, fmt.Errorf("position %d appears more than once", pos)
		}
	}
	return sorted, nil
}

// mergeGroup sums quantities into the lowest position and deletes the rest,
// highest index first, then renumbers positions. Operates on a copy.
func mergeGroup(lines []models.IngredientLine, sorted []int) []models.IngredientLine {
	merged := append([]models.IngredientLine(nil), lines...)

	target := sorted[0]
	total := merged[target].Quantity
	for _, pos := range sorted[1:] {
		total += merged[pos].Quantity
	}
	merged[target].Quantity = total

	for i := len(sorted) - 1; i >= 1; i-- {
		pos := sorted[i]
		merged = append(merged[:pos], merged[pos+1:]...)
	}

	for i := range merged {
		merged[i].Position = i
	}
	return merged
}

func unitToken(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}
