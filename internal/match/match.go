// Package match ranks free-text ingredient names against a merchant's
// master inventory. All functions are pure; callers supply the inventory
// snapshot and receive scored candidates back.
package match

import (
	"sort"
	"strings"

	"mise/models"
)

const (
	// Names shorter than this never match anything.
	minQueryLength = 2
	// Minimum score for an interactive suggestion.
	suggestionThreshold = 0.4
	// Minimum score an automatic (non-interactive) match must reach.
	autoAcceptThreshold = 0.7
	// Containment of one string in the other guarantees at least this score.
	containmentFloor = 0.7
	// Interactive suggestions are truncated to this many candidates.
	maxSuggestions = 5

	highConfidenceTier   = 0.95
	mediumConfidenceTier = 0.8
)

// Candidate pairs an inventory item with its similarity score in [0, 1].
type Candidate struct {
	Item  models.InventoryItem
	Score float64
}

// Rank scores every active inventory item against name and returns the
// candidates scoring at least 0.4, best first. The sort is stable, so ties
// keep inventory order. Results are truncated to the top five for
// interactive suggestion lists.
func Rank(name string, inventory []models.InventoryItem) []Candidate {
	query := strings.TrimSpace(name)
	if len([]rune(query)) < minQueryLength {
		return nil
	}

	candidates := make([]Candidate, 0, len(inventory))
	for _, item := range inventory {
		if !item.Active {
			continue
		}
		score := itemScore(query, item)
		if score >= suggestionThreshold {
			candidates = append(candidates, Candidate{Item: item, Score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}
	return candidates
}

// AutoMatch applies the stricter import-time policy: the best candidate is
// accepted only at a score of 0.7 or above, and the accepted match carries a
// tiered confidence level (0.95 and up is high, 0.8 and up is medium,
// anything else low).
func AutoMatch(name string, inventory []models.InventoryItem) (Candidate, models.ConfidenceLevel, bool) {
	ranked := Rank(name, inventory)
	if len(ranked) == 0 || ranked[0].Score < autoAcceptThreshold {
		return Candidate{}, models.ConfidenceLow, false
	}

	best := ranked[0]
	confidence := models.ConfidenceLow
	switch {
	case best.Score >= highConfidenceTier:
		confidence = models.ConfidenceHigh
	case best.Score >= mediumConfidenceTier:
		confidence = models.ConfidenceMedium
	}
	return best, confidence, true
}

// Best returns the single highest-scoring candidate regardless of the
// auto-accept threshold, for callers that want to surface a "did you mean"
// suggestion below the acceptance bar.
func Best(name string, inventory []models.InventoryItem) (Candidate, bool) {
	ranked := Rank(name, inventory)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}

func itemScore(query string, item models.InventoryItem) float64 {
	score := pairScore(query, item.Name)
	for _, alias := range item.Aliases {
		if aliasScore := pairScore(query, alias.Name); aliasScore > score {
			score = aliasScore
		}
	}
	return score
}

// pairScore computes edit-distance similarity between two strings,
// case-insensitively, boosted to at least 0.7 when either string contains
// the other.
func pairScore(a, b string) float64 {
	left := strings.ToLower(strings.TrimSpace(a))
	right := strings.ToLower(strings.TrimSpace(b))
	if left == "" || right == "" {
		return 0
	}

	leftRunes := []rune(left)
	rightRunes := []rune(right)
	maxLen := len(leftRunes)
	if len(rightRunes) > maxLen {
		maxLen = len(rightRunes)
	}

	distance := levenshteinDistance(leftRunes, rightRunes)
	score := float64(maxLen-distance) / float64(maxLen)

	if strings.Contains(left, right) || strings.Contains(right, left) {
		if score < containmentFloor {
			score = containmentFloor
		}
	}
	return score
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = minInt(
				curr[j-1]+1,
				minInt(prev[j]+1, prev[j-1]+cost),
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
