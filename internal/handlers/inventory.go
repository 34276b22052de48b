package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	applog "mise/internal/log"
	"mise/internal/match"
	"mise/models"
)

type inventoryItemRequest struct {
	Name    string   `json:"name"`
	Unit    string   `json:"unit"`
	Active  *bool    `json:"active"`
	Aliases []string `json:"aliases"`
	Units   []string `json:"units"`
}

type inventoryItemResponse struct {
	ID      uint     `json:"id"`
	Name    string   `json:"name"`
	Unit    string   `json:"unit"`
	Active  bool     `json:"active"`
	Aliases []string `json:"aliases"`
	Units   []string `json:"units"`
}

type suggestionResponse struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Score float64 `json:"score"`
}

// InventoryResource handles REST-style interactions for inventory items.
func InventoryResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "inventory request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/inventory")
	path = strings.Trim(path, "/")

	if path == "suggest" {
		suggestInventory(w, r)
		return
	}

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listInventory(w, r)
		case http.MethodPost:
			createInventoryItem(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid inventory identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}
	itemID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showInventoryItem(w, r, itemID)
	case http.MethodPut:
		updateInventoryItem(w, r, itemID)
	case http.MethodDelete:
		deleteInventoryItem(w, r, itemID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var items []models.InventoryItem
	err := database.WithContext(ctx).
		Preload("Aliases").
		Preload("Units").
		Order("name asc").
		Find(&items).Error
	if err != nil {
		applog.Error(ctx, "failed to list inventory", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load inventory")
		return
	}

	responses := make([]inventoryItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, projectInventoryItem(item))
	}
	writeJSON(w, http.StatusOK, responses)
}

// suggestInventory serves the interactive typeahead used while correcting
// unmatched ingredient lines.
func suggestInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var items []models.InventoryItem
	if err := database.WithContext(ctx).Preload("Aliases").Find(&items).Error; err != nil {
		applog.Error(ctx, "failed to load inventory for suggestions", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load inventory")
		return
	}

	candidates := match.Rank(query, items)
	responses := make([]suggestionResponse, 0, len(candidates))
	for _, candidate := range candidates {
		responses = append(responses, suggestionResponse{
			ID:    candidate.Item.ID,
			Name:  candidate.Item.Name,
			Unit:  candidate.Item.Unit,
			Score: candidate.Score,
		})
	}
	writeJSON(w, http.StatusOK, responses)
}

func createInventoryItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload inventoryItemRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid inventory payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	unit := strings.TrimSpace(payload.Unit)
	if unit == "" {
		writeJSONError(w, http.StatusBadRequest, "unit is required")
		return
	}

	item := models.InventoryItem{
		Name:   name,
		Unit:   unit,
		Active: true,
	}
	if payload.Active != nil {
		item.Active = *payload.Active
	}

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		if err := replaceAliases(ctx, tx, item.ID, payload.Aliases); err != nil {
			return err
		}
		return replaceUnits(ctx, tx, item.ID, payload.Units)
	})
	if err != nil {
		applog.Error(ctx, "failed to create inventory item", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create inventory item")
		return
	}

	if err := database.WithContext(ctx).Preload("Aliases").Preload("Units").First(&item, item.ID).Error; err != nil {
		applog.Error(ctx, "failed to reload inventory item", "error", err, "id", item.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load created item")
		return
	}
	writeJSON(w, http.StatusCreated, projectInventoryItem(item))
}

func showInventoryItem(w http.ResponseWriter, r *http.Request, itemID uint) {
	ctx := r.Context()
	var item models.InventoryItem
	if err := database.WithContext(ctx).Preload("Aliases").Preload("Units").First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load inventory item", "error", err, "id", itemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load inventory item")
		return
	}
	writeJSON(w, http.StatusOK, projectInventoryItem(item))
}

func updateInventoryItem(w http.ResponseWriter, r *http.Request, itemID uint) {
	ctx := r.Context()
	var item models.InventoryItem
	if err := database.WithContext(ctx).First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load inventory item for update", "error", err, "id", itemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load inventory item")
		return
	}

	var payload inventoryItemRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid inventory update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	updates := map[string]any{
		"name": name,
	}
	if unit := strings.TrimSpace(payload.Unit); unit != "" {
		updates["unit"] = unit
	}
	if payload.Active != nil {
		updates["active"] = *payload.Active
	}

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&item).Updates(updates).Error; err != nil {
			return err
		}
		if payload.Aliases != nil {
			if err := replaceAliases(ctx, tx, item.ID, payload.Aliases); err != nil {
				return err
			}
		}
		if payload.Units != nil {
			if err := replaceUnits(ctx, tx, item.ID, payload.Units); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		applog.Error(ctx, "failed to update inventory item", "error", err, "id", itemID)
		writeJSONError(w, http.StatusBadRequest, "unable to update inventory item")
		return
	}

	if err := database.WithContext(ctx).Preload("Aliases").Preload("Units").First(&item, itemID).Error; err != nil {
		applog.Error(ctx, "failed to reload inventory item after update", "error", err, "id", itemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load updated item")
		return
	}
	writeJSON(w, http.StatusOK, projectInventoryItem(item))
}

// deleteInventoryItem removes the master record. Recipe lines that reference
// it are not touched here; they are repaired lazily the next time their
// recipe loads.
func deleteInventoryItem(w http.ResponseWriter, r *http.Request, itemID uint) {
	ctx := r.Context()
	var item models.InventoryItem
	if err := database.WithContext(ctx).First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load inventory item for delete", "error", err, "id", itemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load inventory item")
		return
	}

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inventory_item_id = ?", itemID).Delete(&models.InventoryAlias{}).Error; err != nil {
			return err
		}
		if err := tx.Where("inventory_item_id = ?", itemID).Delete(&models.InventoryUnit{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&item).Error
	})
	if err != nil {
		applog.Error(ctx, "failed to delete inventory item", "error", err, "id", itemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete inventory item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func replaceAliases(ctx context.Context, tx *gorm.DB, itemID uint, names []string) error {
	if err := tx.WithContext(ctx).Where("inventory_item_id = ?", itemID).Delete(&models.InventoryAlias{}).Error; err != nil {
		return err
	}

	entries := make([]models.InventoryAlias, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, models.InventoryAlias{Name: trimmed, InventoryItemID: itemID})
	}

	if len(entries) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&entries).Error
}

func replaceUnits(ctx context.Context, tx *gorm.DB, itemID uint, units []string) error {
	if err := tx.WithContext(ctx).Where("inventory_item_id = ?", itemID).Delete(&models.InventoryUnit{}).Error; err != nil {
		return err
	}

	entries := make([]models.InventoryUnit, 0, len(units))
	seen := make(map[string]struct{}, len(units))
	for _, unit := range units {
		trimmed := strings.TrimSpace(unit)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, models.InventoryUnit{Unit: trimmed, InventoryItemID: itemID})
	}

	if len(entries) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&entries).Error
}

func projectInventoryItem(item models.InventoryItem) inventoryItemResponse {
	units := make([]string, 0, len(item.Units))
	for _, unit := range item.Units {
		units = append(units, unit.Unit)
	}
	return inventoryItemResponse{
		ID:      item.ID,
		Name:    item.Name,
		Unit:    item.Unit,
		Active:  item.Active,
		Aliases: item.AliasNames(),
		Units:   units,
	}
}
