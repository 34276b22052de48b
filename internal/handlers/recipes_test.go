package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/gorm"

	"mise/models"
)

func seedInventoryItem(t *testing.T, db *gorm.DB, name, unit string) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{Name: name, Unit: unit, Active: true}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("failed to seed inventory item %q: %v", name, err)
	}
	return item
}

func createTestRecipe(t *testing.T, payload recipeRequest) recipeResponse {
	t.Helper()
	req := jsonRequest(t, http.MethodPost, "/app/api/recipes", payload)
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create recipe status = %d, body %s", w.Code, w.Body.String())
	}
	var created recipeResponse
	decodeBody(t, w, &created)
	return created
}

func TestRecipeCreateRaisesIssues(t *testing.T) {
	db, _ := setupHandlerTest(t)
	seedInventoryItem(t, db, "All-Purpose Flour", "g")

	created := createTestRecipe(t, recipeRequest{
		Name: "Pancakes",
		Ingredients: []ingredientLineRequest{
			{Name: "Flour", Quantity: 2, Unit: "cup"},
			{Name: "Unicorn Dust", Quantity: 1, Unit: "pinch"},
		},
	})

	if created.Status != string(models.StatusNeedsReview) {
		t.Fatalf("status = %s", created.Status)
	}
	if len(created.Ingredients) != 2 || created.Ingredients[0].LineID == "" {
		t.Fatalf("ingredients = %+v", created.Ingredients)
	}
	found := false
	for _, issue := range created.Issues {
		if issue.Kind == string(models.IssueIngredientNotFound) && issue.CorrelatedName == "Unicorn Dust" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected not-found issue, got %+v", created.Issues)
	}
}

func TestRecipeCreateValidation(t *testing.T) {
	_, _ = setupHandlerTest(t)

	req := jsonRequest(t, http.MethodPost, "/app/api/recipes", recipeRequest{
		Name: "Pancakes",
	})
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty ingredient list status = %d", w.Code)
	}

	req = jsonRequest(t, http.MethodPost, "/app/api/recipes", recipeRequest{
		Name:        "Pancakes",
		Ingredients: []ingredientLineRequest{{Name: "Flour", Quantity: -1}},
	})
	w = httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative quantity status = %d", w.Code)
	}
}

func TestRecipeExportGuard(t *testing.T) {
	db, _ := setupHandlerTest(t)
	item := seedInventoryItem(t, db, "All-Purpose Flour", "g")

	created := createTestRecipe(t, recipeRequest{
		Name: "Shortbread",
		Ingredients: []ingredientLineRequest{
			{Name: "Floor", Quantity: 2, Unit: "g"},
		},
	})
	if created.Status == string(models.StatusReadyToImport) {
		t.Fatalf("unmatched recipe must not be ready: %+v", created)
	}

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/app/api/recipes/%d/export", created.ID), nil)
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("export with issues status = %d", w.Code)
	}

	// match the line, then the export goes through
	lineID := created.Ingredients[0].LineID
	req = jsonRequest(t, http.MethodPost, fmt.Sprintf("/app/api/recipes/%d/ingredients/%s/match", created.ID, lineID), matchRequest{InventoryItemID: item.ID})
	w = httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("match status = %d, body %s", w.Code, w.Body.String())
	}
	var matched recipeResponse
	decodeBody(t, w, &matched)
	if matched.Status != string(models.StatusReadyToImport) {
		t.Fatalf("status after match = %s, issues %+v", matched.Status, matched.Issues)
	}

	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/app/api/recipes/%d/export", created.ID), nil)
	w = httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestRecipeIngredientLifecycle(t *testing.T) {
	db, _ := setupHandlerTest(t)
	item := seedInventoryItem(t, db, "Granulated Sugar", "g")

	created := createTestRecipe(t, recipeRequest{
		Name: "Cookies",
		Ingredients: []ingredientLineRequest{
			{Name: "Granulated Sugar", Quantity: 100, Unit: "g", InventoryItemID: &item.ID},
		},
	})

	req := jsonRequest(t, http.MethodPost, fmt.Sprintf("/app/api/recipes/%d/ingredients", created.ID), ingredientLineRequest{
		Name: "Vanilla", Quantity: 1, Unit: "tsp",
	})
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("add ingredient status = %d, body %s", w.Code, w.Body.String())
	}
	var withVanilla recipeResponse
	decodeBody(t, w, &withVanilla)
	if len(withVanilla.Ingredients) != 2 {
		t.Fatalf("ingredients after add = %+v", withVanilla.Ingredients)
	}
	vanilla := withVanilla.Ingredients[1]

	req = jsonRequest(t, http.MethodPut, fmt.Sprintf("/app/api/recipes/%d/ingredients/%s", created.ID, vanilla.LineID), ingredientLineRequest{
		Name: "Vanilla Extract", Quantity: 2, Unit: "tsp",
	})
	w = httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update ingredient status = %d", w.Code)
	}
	var renamed recipeResponse
	decodeBody(t, w, &renamed)
	if renamed.Ingredients[1].Name != "Vanilla Extract" || renamed.Ingredients[1].LineID != vanilla.LineID {
		t.Fatalf("rename must keep line identity: %+v", renamed.Ingredients[1])
	}

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/app/api/recipes/%d/ingredients/%s", created.ID, vanilla.LineID), nil)
	w = httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("remove ingredient status = %d", w.Code)
	}
	var afterRemove recipeResponse
	decodeBody(t, w, &afterRemove)
	if len(afterRemove.Ingredients) != 1 || len(afterRemove.Issues) != 0 {
		t.Fatalf("after remove: %+v / %+v", afterRemove.Ingredients, afterRemove.Issues)
	}

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/app/api/recipes/%d/ingredients/%s", created.ID, "missing"), nil)
	w = httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("remove unknown line status = %d", w.Code)
	}
}

func TestRecipeDuplicateResolutionEndpoint(t *testing.T) {
	db, _ := setupHandlerTest(t)
	item := seedInventoryItem(t, db, "Granulated Sugar", "g")

	created := createTestRecipe(t, recipeRequest{
		Name: "Cookies",
		Ingredients: []ingredientLineRequest{
			{Name: "Granulated Sugar", Quantity: 1, Unit: "cup", InventoryItemID: &item.ID},
			{Name: "Granulated Sugar", Quantity: 2, Unit: "cup", InventoryItemID: &item.ID},
		},
	})
	if len(created.Issues) == 0 {
		t.Fatalf("expected a duplicate issue, got none")
	}

	req := jsonRequest(t, http.MethodPost, fmt.Sprintf("/app/api/recipes/%d/duplicates", created.ID), duplicateResolutionRequest{
		Positions:  []int{0, 1},
		Resolution: "merge",
	})
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve status = %d, body %s", w.Code, w.Body.String())
	}

	var resolved duplicateResolutionResponse
	decodeBody(t, w, &resolved)
	if resolved.NeedsDecision {
		t.Fatalf("same-unit merge must not need a decision")
	}
	if len(resolved.Recipe.Ingredients) != 1 || resolved.Recipe.Ingredients[0].Quantity != 3 {
		t.Fatalf("merge result = %+v", resolved.Recipe.Ingredients)
	}

	req = jsonRequest(t, http.MethodPost, fmt.Sprintf("/app/api/recipes/%d/duplicates", created.ID), duplicateResolutionRequest{
		Positions:  []int{0, 1},
		Resolution: "sideways",
	})
	w = httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown resolution status = %d", w.Code)
	}
}

func TestRecipeNotFoundAndBadID(t *testing.T) {
	_, _ = setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/app/api/recipes/9999", nil)
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/app/api/recipes/bogus", nil)
	w = httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("malformed id status = %d", w.Code)
	}
}

func TestRecipeDelete(t *testing.T) {
	_, _ = setupHandlerTest(t)

	created := createTestRecipe(t, recipeRequest{
		Name:        "Pancakes",
		Ingredients: []ingredientLineRequest{{Name: "Flour", Quantity: 2, Unit: "cup"}},
	})

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/app/api/recipes/%d", created.ID), nil)
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/app/api/recipes/%d", created.ID), nil)
	w = httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("show after delete status = %d", w.Code)
	}
}
