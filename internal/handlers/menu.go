package handlers

import (
	"net/http"
	"strings"

	applog "mise/internal/log"
	"mise/internal/menulink"
	"mise/models"
)

type menuItemRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type menuItemResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	RecipeID *uint  `json:"recipe_id,omitempty"`
}

// MenuItemResource lists and creates menu items. Pass ?unlinked=true to see
// only items without a linked recipe.
func MenuItemResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "menu item request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	switch r.Method {
	case http.MethodGet:
		listMenuItems(w, r)
	case http.MethodPost:
		createMenuItem(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listMenuItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := database.WithContext(ctx).Order("name asc")
	if r.URL.Query().Get("unlinked") == "true" {
		query = query.Where("recipe_id IS NULL")
	}

	var items []models.MenuItem
	if err := query.Find(&items).Error; err != nil {
		applog.Error(ctx, "failed to list menu items", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load menu items")
		return
	}

	responses := make([]menuItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, projectMenuItem(item))
	}
	writeJSON(w, http.StatusOK, responses)
}

func createMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload menuItemRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid menu item payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	item := models.MenuItem{
		Name:     name,
		Category: strings.TrimSpace(payload.Category),
	}
	if item.Category == "" {
		item.Category = menulink.DefaultCategory
	}

	if err := database.WithContext(ctx).Create(&item).Error; err != nil {
		applog.Error(ctx, "failed to create menu item", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create menu item")
		return
	}
	writeJSON(w, http.StatusCreated, projectMenuItem(item))
}

func projectMenuItem(item models.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:       item.ID,
		Name:     item.Name,
		Category: item.Category,
		RecipeID: item.RecipeID,
	}
}
