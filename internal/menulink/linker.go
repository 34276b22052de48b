// Package menulink decides which point-of-sale menu item a finished recipe
// should attach to. It is a one-shot, best-effort step that runs after the
// recipe's save transaction commits; the scoring here is deliberately
// simpler than the inventory matcher.
package menulink

import (
	"strings"

	"mise/models"
)

// A candidate must beat this score to be linked.
const linkThreshold = 0.7

// DefaultCategory is assigned to menu-item drafts created for recipes that
// matched nothing in the existing catalog.
const DefaultCategory = "Uncategorized"

// Draft describes a new menu item to create, pre-linked to the recipe.
type Draft struct {
	Name     string
	Category string
}

// Outcome is the linker's decision: either an existing menu item
// (MenuItemID non-zero) or a draft for a new one.
type Outcome struct {
	MenuItemID uint
	Score      float64
	Draft      *Draft
}

// Score rates the similarity of a recipe name and a menu-item name: exact
// case-insensitive equality scores 1.0, substring containment either way
// scores 0.9, anything else the word-overlap ratio.
func Score(recipeName, menuName string) float64 {
	a := strings.ToLower(strings.TrimSpace(recipeName))
	b := strings.ToLower(strings.TrimSpace(menuName))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}
	return wordOverlap(a, b)
}

// wordOverlap counts words of a with an equality or containment match in b,
// normalized by the longer word count.
func wordOverlap(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	matches := 0
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if wa == wb || strings.Contains(wa, wb) || strings.Contains(wb, wa) {
				matches++
				break
			}
		}
	}

	denom := len(wordsA)
	if len(wordsB) > denom {
		denom = len(wordsB)
	}
	return float64(matches) / float64(denom)
}

// Choose picks the best unlinked candidate for the recipe name. Ties go to
// the earlier candidate (first fit, not globally optimal across recipes).
// When nothing beats the threshold the outcome carries a draft instead.
func Choose(recipeName string, candidates []models.MenuItem) Outcome {
	var best Outcome
	for _, item := range candidates {
		if item.RecipeID != nil {
			continue
		}
		score := Score(recipeName, item.Name)
		if score > best.Score {
			best = Outcome{MenuItemID: item.ID, Score: score}
		}
	}

	if best.MenuItemID != 0 && best.Score > linkThreshold {
		return best
	}
	return Outcome{Draft: &Draft{
		Name:     strings.TrimSpace(recipeName),
		Category: DefaultCategory,
	}}
}
