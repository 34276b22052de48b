// Package recon maintains a recipe's self-healing issue list. Reconcile
// recomputes the list after every ingredient mutation; MergeDuplicates and
// ForceMerge collapse duplicate groups; Score derives confidence and
// readiness from the match state. Everything here is pure: state in, state
// out, no I/O.
package recon

import (
	"fmt"
	"strings"

	"mise/models"
)

// NormalizeName returns the duplicate-grouping key for an ingredient name:
// trimmed and lowercased, nothing else.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Reconcile rebuilds the issue list for the given ingredient lines from the
// previous list. Line-scoped issues are carried forward by stable LineID and
// dropped when their line disappeared or the underlying condition cleared;
// duplicate issues are carried forward by normalized-name group key with
// their indices recomputed; missing conditions gain fresh issues. The result
// of a second call over the same lines is content-identical to the first.
func Reconcile(lines []models.IngredientLine, previous []models.Issue) []models.Issue {
	groups, groupOrder := duplicateGroups(lines)

	byLineID := make(map[string]*models.IngredientLine, len(lines))
	for i := range lines {
		if lines[i].LineID != "" {
			byLineID[lines[i].LineID] = &lines[i]
		}
	}

	issues := make([]models.Issue, 0, len(previous)+len(lines))
	kept := make(map[string]bool)

	for _, issue := range previous {
		switch issue.Kind {
		case models.IssueDuplicateIngredient:
			key := NormalizeName(issue.CorrelatedName)
			positions, ok := groups[key]
			if !ok {
				continue
			}
			issue.DuplicateIndices = positions
			issue.Message = duplicateMessage(key, positions, lines)
			delete(groups, key)
			issues = append(issues, issue)

		case models.IssueMissingData, models.IssueImportFailed:
			// Recipe-level issues carry no line; both kinds pass through
			// as long as their line, if any, still exists.
			if issue.LineID != "" {
				if _, ok := byLineID[issue.LineID]; !ok {
					continue
				}
			}
			issues = append(issues, issue)

		default:
			line, ok := byLineID[issue.LineID]
			if !ok {
				continue
			}
			switch issue.Kind {
			case models.IssueIngredientNotFound, models.IssueSimilarIngredient:
				if line.Matched() {
					continue
				}
			case models.IssueUnitUnclear:
				if !line.UnitUnclear {
					continue
				}
			}
			issue.CorrelatedName = line.Name
			issues = append(issues, issue)
			kept[issueKey(issue.LineID, issue.Kind)] = true
		}
	}

	for i := range lines {
		line := &lines[i]
		name := strings.TrimSpace(line.Name)

		if !line.Matched() && name != "" && !kept[issueKey(line.LineID, models.IssueIngredientNotFound)] {
			issues = append(issues, models.Issue{
				Kind:           models.IssueIngredientNotFound,
				LineID:         line.LineID,
				CorrelatedName: line.Name,
				Message:        fmt.Sprintf("%q is not in the inventory", name),
			})
		}

		if line.UnitUnclear && !kept[issueKey(line.LineID, models.IssueUnitUnclear)] {
			issues = append(issues, models.Issue{
				Kind:           models.IssueUnitUnclear,
				LineID:         line.LineID,
				CorrelatedName: line.Name,
				Message:        unitUnclearMessage(line),
			})
		}
	}

	for _, key := range groupOrder {
		positions, ok := groups[key]
		if !ok {
			continue
		}
		issues = append(issues, models.Issue{
			Kind:             models.IssueDuplicateIngredient,
			CorrelatedName:   key,
			DuplicateIndices: positions,
			Message:          duplicateMessage(key, positions, lines),
		})
	}

	return issues
}

// duplicateGroups maps each normalized name shared by two or more lines to
// the ordered positions holding it. The second return value preserves
// first-appearance order so freshly raised issues are deterministic.
func duplicateGroups(lines []models.IngredientLine) (map[string][]int, []string) {
	all := make(map[string][]int)
	order := make([]string, 0)
	for i := range lines {
		key := NormalizeName(lines[i].Name)
		if key == "" {
			continue
		}
		if _, seen := all[key]; !seen {
			order = append(order, key)
		}
		all[key] = append(all[key], i)
	}

	groups := make(map[string][]int)
	groupOrder := make([]string, 0)
	for _, key := range order {
		if len(all[key]) >= 2 {
			groups[key] = all[key]
			groupOrder = append(groupOrder, key)
		}
	}
	return groups, groupOrder
}

func duplicateMessage(key string, positions []int, lines []models.IngredientLine) string {
	parts := make([]string, 0, len(positions))
	for _, pos := range positions {
		if pos < 0 || pos >= len(lines) {
			continue
		}
		line := lines[pos]
		unit := strings.TrimSpace(line.Unit)
		if unit == "" {
			parts = append(parts, fmt.Sprintf("%g", line.Quantity))
			continue
		}
		parts = append(parts, fmt.Sprintf("%g %s", line.Quantity, unit))
	}
	return fmt.Sprintf("%q appears %d times (%s)", key, len(positions), strings.Join(parts, ", "))
}

func unitUnclearMessage(line *models.IngredientLine) string {
	original := strings.TrimSpace(line.OriginalUnit)
	if original != "" {
		return fmt.Sprintf("unit %q for %q could not be interpreted", original, line.Name)
	}
	return fmt.Sprintf("unit for %q is unclear", line.Name)
}

func issueKey(lineID string, kind models.IssueKind) string {
	return lineID + "|" + string(kind)
}
