package match

import (
	"testing"

	"mise/models"
)

func item(id uint, name string, aliases ...string) models.InventoryItem {
	it := models.InventoryItem{Name: name, Unit: "g", Active: true}
	it.ID = id
	for _, alias := range aliases {
		it.Aliases = append(it.Aliases, models.InventoryAlias{Name: alias})
	}
	return it
}

func TestRankSubstringBoost(t *testing.T) {
	inventory := []models.InventoryItem{item(1, "All-Purpose Flour")}

	ranked := Rank("Flour", inventory)
	if len(ranked) != 1 {
		t.Fatalf("expected one candidate, got %d", len(ranked))
	}
	if ranked[0].Score < 0.7 {
		t.Fatalf("expected containment boost to 0.7 or above, got %f", ranked[0].Score)
	}
}

func TestRankRejectsDissimilarNames(t *testing.T) {
	inventory := []models.InventoryItem{item(1, "All-Purpose Flour")}

	if ranked := Rank("xyz", inventory); len(ranked) != 0 {
		t.Fatalf("expected no candidates, got %+v", ranked)
	}
}

func TestRankShortQueryReturnsNothing(t *testing.T) {
	inventory := []models.InventoryItem{item(1, "Egg")}

	if ranked := Rank("e", inventory); ranked != nil {
		t.Fatalf("expected nil for single-character query, got %+v", ranked)
	}
	if ranked := Rank("  x  ", inventory); ranked != nil {
		t.Fatalf("expected nil for whitespace-padded single character, got %+v", ranked)
	}
}

func TestRankUsesBestAliasScore(t *testing.T) {
	inventory := []models.InventoryItem{
		item(1, "Granulated Sucrose", "Sugar", "White Sugar"),
		item(2, "Sea Salt"),
	}

	ranked := Rank("Sugar", inventory)
	if len(ranked) == 0 {
		t.Fatalf("expected alias match, got none")
	}
	if ranked[0].Item.ID != 1 {
		t.Fatalf("expected item 1 via alias, got %d", ranked[0].Item.ID)
	}
	if ranked[0].Score != 1.0 {
		t.Fatalf("expected exact alias score 1.0, got %f", ranked[0].Score)
	}
}

func TestRankSkipsInactiveItems(t *testing.T) {
	retired := item(1, "Flour")
	retired.Active = false
	inventory := []models.InventoryItem{retired, item(2, "Flour")}

	ranked := Rank("Flour", inventory)
	if len(ranked) != 1 || ranked[0].Item.ID != 2 {
		t.Fatalf("expected only the active item, got %+v", ranked)
	}
}

func TestRankStableOrderOnTies(t *testing.T) {
	inventory := []models.InventoryItem{
		item(1, "Whole Milk"),
		item(2, "Whole Milk"),
	}

	ranked := Rank("Whole Milk", inventory)
	if len(ranked) != 2 {
		t.Fatalf("expected two candidates, got %d", len(ranked))
	}
	if ranked[0].Item.ID != 1 || ranked[1].Item.ID != 2 {
		t.Fatalf("expected inventory order preserved on ties, got %d then %d", ranked[0].Item.ID, ranked[1].Item.ID)
	}
}

func TestRankTruncatesToTopFive(t *testing.T) {
	inventory := []models.InventoryItem{
		item(1, "Butter"),
		item(2, "Buttermilk"),
		item(3, "Butter Beans"),
		item(4, "Peanut Butter"),
		item(5, "Cocoa Butter"),
		item(6, "Apple Butter"),
		item(7, "Butter Lettuce"),
	}

	ranked := Rank("Butter", inventory)
	if len(ranked) != 5 {
		t.Fatalf("expected truncation to five suggestions, got %d", len(ranked))
	}
}

func TestAutoMatchConfidenceTiers(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		item      string
		wantOK    bool
		wantLevel models.ConfidenceLevel
	}{
		{"exact is high", "Sugar", "Sugar", true, models.ConfidenceHigh},
		{"one edit in six is medium", "Sugarr", "Sugar", true, models.ConfidenceMedium},
		{"containment floor is low", "Oil", "Extra Virgin Olive Oil", true, models.ConfidenceLow},
		{"weak similarity rejected", "Cumin", "Cinnamon Sticks", false, models.ConfidenceLow},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, level, ok := AutoMatch(tt.query, []models.InventoryItem{item(1, tt.item)})
			if ok != tt.wantOK {
				t.Fatalf("AutoMatch(%q, %q) ok = %t, want %t", tt.query, tt.item, ok, tt.wantOK)
			}
			if ok && level != tt.wantLevel {
				t.Fatalf("AutoMatch(%q, %q) confidence = %s, want %s", tt.query, tt.item, level, tt.wantLevel)
			}
		})
	}
}

func TestBestSurfacesBelowThresholdCandidates(t *testing.T) {
	inventory := []models.InventoryItem{item(1, "Greek Yoghurt")}

	best, ok := Best("Yogurt", inventory)
	if !ok {
		t.Fatalf("expected a best-effort candidate")
	}
	if best.Score < 0.4 || best.Score >= 0.7 {
		t.Fatalf("expected a suggestion-band score, got %f", best.Score)
	}
	if _, _, accepted := AutoMatch("Cilantro", inventory); accepted {
		t.Fatalf("expected auto matcher to reject a suggestion-band score")
	}
}

func TestPairScoreCaseFolding(t *testing.T) {
	if got := pairScore("FLOUR", "flour"); got != 1.0 {
		t.Fatalf("expected case-insensitive exact match, got %f", got)
	}
}
