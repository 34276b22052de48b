package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	applog "mise/internal/log"
	"mise/internal/recipes"
	"mise/models"
)

type ingredientLineRequest struct {
	LineID          string  `json:"line_id"`
	Name            string  `json:"name"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	InventoryItemID *uint   `json:"inventory_item_id"`
}

type recipeRequest struct {
	Name        string                  `json:"name"`
	Notes       string                  `json:"notes"`
	SourceType  string                  `json:"source_type"`
	Ingredients []ingredientLineRequest `json:"ingredients"`
}

type duplicateResolutionRequest struct {
	Positions  []int  `json:"positions"`
	Resolution string `json:"resolution"`
}

type matchRequest struct {
	InventoryItemID uint `json:"inventory_item_id"`
}

type ingredientLineResponse struct {
	LineID            string  `json:"line_id"`
	Position          int     `json:"position"`
	Name              string  `json:"name"`
	Quantity          float64 `json:"quantity"`
	Unit              string  `json:"unit"`
	OriginalUnit      string  `json:"original_unit,omitempty"`
	UnitUnclear       bool    `json:"unit_unclear"`
	InventoryItemID   *uint   `json:"inventory_item_id,omitempty"`
	InventoryItemName string  `json:"inventory_item_name,omitempty"`
	IsNew             bool    `json:"is_new"`
	Confidence        string  `json:"confidence"`
}

type issueResponse struct {
	Kind             string `json:"kind"`
	Message          string `json:"message"`
	LineID           string `json:"line_id,omitempty"`
	CorrelatedName   string `json:"correlated_name,omitempty"`
	SuggestedFix     string `json:"suggested_fix,omitempty"`
	DuplicateIndices []int  `json:"duplicate_indices,omitempty"`
}

type recipeResponse struct {
	ID          uint                     `json:"id"`
	Name        string                   `json:"name"`
	Status      string                   `json:"status"`
	Confidence  string                   `json:"confidence"`
	SourceType  string                   `json:"source_type"`
	Notes       string                   `json:"notes,omitempty"`
	MenuItemID  *uint                    `json:"menu_item_id,omitempty"`
	Ingredients []ingredientLineResponse `json:"ingredients"`
	Issues      []issueResponse          `json:"issues"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

type duplicateResolutionResponse struct {
	Recipe        recipeResponse `json:"recipe"`
	NeedsDecision bool           `json:"needs_decision"`
}

// RecipeResource handles REST-style interactions for recipes, including the
// nested ingredient-line and duplicate-resolution operations.
func RecipeResource(w http.ResponseWriter, r *http.Request) {
	if recipeService == nil {
		applog.Debug(r.Context(), "recipe request without service")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/recipes")
	path = strings.Trim(path, "/")

	if path == "import" {
		importRecipe(w, r)
		return
	}

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listRecipes(w, r)
		case http.MethodPost:
			createRecipe(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid recipe identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}
	recipeID := uint(idValue)

	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			showRecipe(w, r, recipeID)
		case http.MethodPut:
			updateRecipe(w, r, recipeID)
		case http.MethodDelete:
			deleteRecipe(w, r, recipeID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch segments[1] {
	case "export":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		exportRecipe(w, r, recipeID)
	case "duplicates":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		resolveRecipeDuplicates(w, r, recipeID)
	case "ingredients":
		recipeIngredientResource(w, r, recipeID, segments[2:])
	default:
		http.NotFound(w, r)
	}
}

func recipeIngredientResource(w http.ResponseWriter, r *http.Request, recipeID uint, segments []string) {
	if len(segments) == 0 || segments[0] == "" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		addRecipeIngredient(w, r, recipeID)
		return
	}

	lineID := segments[0]

	if len(segments) > 1 && segments[1] == "match" {
		switch r.Method {
		case http.MethodPost:
			setIngredientMatch(w, r, recipeID, lineID)
		case http.MethodDelete:
			clearIngredientMatch(w, r, recipeID, lineID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodPut:
		updateRecipeIngredient(w, r, recipeID, lineID)
	case http.MethodDelete:
		removeRecipeIngredient(w, r, recipeID, lineID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	headers, err := recipeService.List(ctx)
	if err != nil {
		applog.Error(ctx, "failed to list recipes", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipes")
		return
	}

	responses := make([]recipeResponse, 0, len(headers))
	for _, recipe := range headers {
		responses = append(responses, projectRecipe(&recipe))
	}
	writeJSON(w, http.StatusOK, responses)
}

func createRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload recipeRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid recipe payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	recipe := recipeFromRequest(payload)
	if err := recipeService.Save(ctx, recipe); err != nil {
		writeRecipeError(w, r, err)
		return
	}

	applog.Debug(ctx, "recipe created", "recipeID", recipe.ID, "status", recipe.Status)
	writeJSON(w, http.StatusCreated, projectRecipe(recipe))
}

func showRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	recipe, err := recipeService.Load(r.Context(), recipeID)
	if err != nil {
		writeRecipeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(recipe))
}

func updateRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	ctx := r.Context()

	var payload recipeRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid recipe update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	recipe, err := recipeService.Load(ctx, recipeID)
	if err != nil {
		writeRecipeError(w, r, err)
		return
	}

	if name := strings.TrimSpace(payload.Name); name != "" {
		recipe.Name = name
	}
	recipe.Notes = strings.TrimSpace(payload.Notes)
	if payload.Ingredients != nil {
		recipe.Ingredients = linesFromRequest(payload.Ingredients)
	}

	if err := recipeService.Save(ctx, recipe); err != nil {
		writeRecipeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(recipe))
}

func deleteRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	ctx := r.Context()
	if _, err := recipeService.Load(ctx, recipeID); err != nil {
		writeRecipeError(w, r, err)
		return
	}
	if err := recipeService.Delete(ctx, recipeID); err != nil {
		applog.Error(ctx, "failed to delete recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete recipe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportRecipe hands the recipe to the point-of-sale import. Refused while
// the recipe still carries unresolved issues.
func exportRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	ctx := r.Context()
	recipe, err := recipeService.Export(ctx, recipeID)
	if err != nil {
		if errors.Is(err, recipes.ErrNotReady) {
			applog.Debug(ctx, "export refused", "recipeID", recipeID, "error", err)
			writeJSONError(w, http.StatusConflict, "recipe has unresolved issues and cannot be exported")
			return
		}
		writeRecipeError(w, r, err)
		return
	}

	applog.Debug(ctx, "recipe exported", "recipeID", recipeID)
	writeJSON(w, http.StatusOK, projectRecipe(recipe))
}

func resolveRecipeDuplicates(w http.ResponseWriter, r *http.Request, recipeID uint) {
	ctx := r.Context()

	var payload duplicateResolutionRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid duplicate resolution payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	resolution := recipes.DuplicateResolution(strings.TrimSpace(payload.Resolution))
	switch resolution {
	case recipes.ResolutionMerge, recipes.ResolutionKeepSeparate, recipes.ResolutionForceMerge:
	default:
		writeJSONError(w, http.StatusBadRequest, "resolution must be merge, keep_separate, or force_merge")
		return
	}

	recipe, needsDecision, err := recipeService.ResolveDuplicates(ctx, recipeID, payload.Positions, resolution)
	if err != nil {
		writeRecipeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, duplicateResolutionResponse{
		Recipe:        projectRecipe(recipe),
		NeedsDecision: needsDecision,
	})
}

func addRecipeIngredient(w http.ResponseWriter, r *http.Request, recipeID uint) {
	ctx := r.Context()

	var payload ingredientLineRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid ingredient payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	recipe, err := recipeService.AddIngredient(ctx, recipeID, lineFromRequest(payload))
	if err != nil {
		writeRecipeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, projectRecipe(recipe))
}

func updateRecipeIngredient(w http.ResponseWriter, r *http.Request, recipeID uint, lineID string) {
	ctx := r.Context()

	var payload ingredientLineRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid ingredient update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	recipe, err := recipeService.UpdateIngredient(ctx, recipeID, lineID, lineFromRequest(payload))
	if err != nil {
		writeRecipeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(recipe))
}

func removeRecipeIngredient(w http.ResponseWriter, r *http.Request, recipeID uint, lineID string) {
	recipe, err := recipeService.RemoveIngredient(r.Context(), recipeID, lineID)
	if err != nil {
		writeRecipeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(recipe))
}

func setIngredientMatch(w http.ResponseWriter, r *http.Request, recipeID uint, lineID string) {
	ctx := r.Context()

	var payload matchRequest
	if err := decodeJSON(r, &payload); err != nil || payload.InventoryItemID == 0 {
		writeJSONError(w, http.StatusBadRequest, "inventory_item_id is required")
		return
	}

	recipe, err := recipeService.SetIngredientMatch(ctx, recipeID, lineID, payload.InventoryItemID)
	if err != nil {
		writeRecipeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(recipe))
}

func clearIngredientMatch(w http.ResponseWriter, r *http.Request, recipeID uint, lineID string) {
	recipe, err := recipeService.ClearIngredientMatch(r.Context(), recipeID, lineID)
	if err != nil {
		writeRecipeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(recipe))
}

// writeRecipeError maps service errors to HTTP status codes.
func writeRecipeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		http.NotFound(w, r)
	case errors.Is(err, recipes.ErrMissingName),
		errors.Is(err, recipes.ErrNoIngredients),
		errors.Is(err, recipes.ErrInvalidQuantity),
		errors.Is(err, recipes.ErrNotDuplicates):
		applog.Debug(ctx, "recipe request rejected", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		applog.Error(ctx, "recipe operation failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to process recipe")
	}
}

func recipeFromRequest(payload recipeRequest) *models.Recipe {
	source := models.SourceType(strings.TrimSpace(payload.SourceType))
	if source == "" {
		source = models.SourceManual
	}
	return &models.Recipe{
		Name:        strings.TrimSpace(payload.Name),
		Notes:       strings.TrimSpace(payload.Notes),
		SourceType:  source,
		Ingredients: linesFromRequest(payload.Ingredients),
	}
}

func linesFromRequest(payloads []ingredientLineRequest) []models.IngredientLine {
	lines := make([]models.IngredientLine, 0, len(payloads))
	for _, payload := range payloads {
		lines = append(lines, lineFromRequest(payload))
	}
	return lines
}

func lineFromRequest(payload ingredientLineRequest) models.IngredientLine {
	line := models.IngredientLine{
		LineID:     strings.TrimSpace(payload.LineID),
		Name:       strings.TrimSpace(payload.Name),
		Quantity:   payload.Quantity,
		Unit:       strings.TrimSpace(payload.Unit),
		Confidence: models.ConfidenceLow,
	}
	if payload.InventoryItemID != nil && *payload.InventoryItemID != 0 {
		line.InventoryItemID = payload.InventoryItemID
		line.Confidence = models.ConfidenceHigh
	}
	return line
}

func projectRecipe(recipe *models.Recipe) recipeResponse {
	lines := make([]ingredientLineResponse, 0, len(recipe.Ingredients))
	for _, line := range recipe.Ingredients {
		projected := ingredientLineResponse{
			LineID:          line.LineID,
			Position:        line.Position,
			Name:            line.Name,
			Quantity:        line.Quantity,
			Unit:            line.Unit,
			OriginalUnit:    line.OriginalUnit,
			UnitUnclear:     line.UnitUnclear,
			InventoryItemID: line.InventoryItemID,
			IsNew:           line.IsNew,
			Confidence:      string(line.Confidence),
		}
		if line.InventoryItem != nil {
			projected.InventoryItemName = line.InventoryItem.Name
		}
		lines = append(lines, projected)
	}

	issues := make([]issueResponse, 0, len(recipe.Issues))
	for _, issue := range recipe.Issues {
		issues = append(issues, issueResponse{
			Kind:             string(issue.Kind),
			Message:          issue.Message,
			LineID:           issue.LineID,
			CorrelatedName:   issue.CorrelatedName,
			SuggestedFix:     issue.SuggestedFix,
			DuplicateIndices: issue.DuplicateIndices,
		})
	}

	return recipeResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Status:      string(recipe.Status),
		Confidence:  string(recipe.Confidence),
		SourceType:  string(recipe.SourceType),
		Notes:       recipe.Notes,
		MenuItemID:  recipe.MenuItemID,
		Ingredients: lines,
		Issues:      issues,
		CreatedAt:   recipe.CreatedAt,
		UpdatedAt:   recipe.UpdatedAt,
	}
}
