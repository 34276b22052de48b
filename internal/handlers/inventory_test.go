package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mise/models"
)

func TestInventoryCreateAndShow(t *testing.T) {
	_, _ = setupHandlerTest(t)

	req := jsonRequest(t, http.MethodPost, "/app/api/inventory", inventoryItemRequest{
		Name:    "All-Purpose Flour",
		Unit:    "g",
		Aliases: []string{"Flour", "AP Flour", "flour"},
		Units:   []string{"cup", "kg"},
	})
	w := httptest.NewRecorder()
	InventoryResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}

	var created inventoryItemResponse
	decodeBody(t, w, &created)
	if created.ID == 0 || created.Name != "All-Purpose Flour" || !created.Active {
		t.Fatalf("unexpected created item: %+v", created)
	}
	if len(created.Aliases) != 2 {
		t.Fatalf("case-duplicate alias not collapsed: %+v", created.Aliases)
	}
	if len(created.Units) != 2 {
		t.Fatalf("units = %+v", created.Units)
	}

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/app/api/inventory/%d", created.ID), nil)
	w = httptest.NewRecorder()
	InventoryResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("show status = %d", w.Code)
	}
}

func TestInventoryCreateValidation(t *testing.T) {
	_, _ = setupHandlerTest(t)

	req := jsonRequest(t, http.MethodPost, "/app/api/inventory", inventoryItemRequest{Unit: "g"})
	w := httptest.NewRecorder()
	InventoryResource(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing name status = %d", w.Code)
	}

	req = jsonRequest(t, http.MethodPost, "/app/api/inventory", inventoryItemRequest{Name: "Flour"})
	w = httptest.NewRecorder()
	InventoryResource(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing unit status = %d", w.Code)
	}
}

func TestInventoryUpdateReplacesAliases(t *testing.T) {
	db, _ := setupHandlerTest(t)

	item := models.InventoryItem{Name: "Sugar", Unit: "g", Active: true}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}
	if err := db.Create(&models.InventoryAlias{Name: "White Sugar", InventoryItemID: item.ID}).Error; err != nil {
		t.Fatalf("failed to seed alias: %v", err)
	}

	inactive := false
	req := jsonRequest(t, http.MethodPut, fmt.Sprintf("/app/api/inventory/%d", item.ID), inventoryItemRequest{
		Name:    "Granulated Sugar",
		Active:  &inactive,
		Aliases: []string{"Caster Sugar"},
	})
	w := httptest.NewRecorder()
	InventoryResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}

	var updated inventoryItemResponse
	decodeBody(t, w, &updated)
	if updated.Name != "Granulated Sugar" || updated.Active {
		t.Fatalf("unexpected update: %+v", updated)
	}
	if len(updated.Aliases) != 1 || updated.Aliases[0] != "Caster Sugar" {
		t.Fatalf("aliases not replaced: %+v", updated.Aliases)
	}
}

func TestInventoryDelete(t *testing.T) {
	db, _ := setupHandlerTest(t)

	item := models.InventoryItem{Name: "Sugar", Unit: "g", Active: true}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/app/api/inventory/%d", item.ID), nil)
	w := httptest.NewRecorder()
	InventoryResource(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/app/api/inventory/%d", item.ID), nil)
	w = httptest.NewRecorder()
	InventoryResource(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("show after delete status = %d", w.Code)
	}
}

func TestInventorySuggest(t *testing.T) {
	db, _ := setupHandlerTest(t)

	items := []models.InventoryItem{
		{Name: "All-Purpose Flour", Unit: "g", Active: true},
		{Name: "Bread Flour", Unit: "g", Active: true},
		{Name: "Whole Milk", Unit: "ml", Active: true},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("failed to seed item: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/app/api/inventory/suggest?q=Flour", nil)
	w := httptest.NewRecorder()
	InventoryResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("suggest status = %d", w.Code)
	}

	var suggestions []suggestionResponse
	decodeBody(t, w, &suggestions)
	if len(suggestions) != 2 {
		t.Fatalf("suggestions = %+v", suggestions)
	}
	for _, s := range suggestions {
		if s.Score < 0.4 {
			t.Fatalf("suggestion below threshold: %+v", s)
		}
		if s.Name == "Whole Milk" {
			t.Fatalf("unrelated item suggested: %+v", suggestions)
		}
	}

	// a query below the minimum length yields no candidates
	req = httptest.NewRequest(http.MethodGet, "/app/api/inventory/suggest?q=F", nil)
	w = httptest.NewRecorder()
	InventoryResource(w, req)
	decodeBody(t, w, &suggestions)
	if len(suggestions) != 0 {
		t.Fatalf("short query suggestions = %+v", suggestions)
	}
}
