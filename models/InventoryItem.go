package models

import (
	"strings"

	"gorm.io/gorm"
)

// InventoryItem is a merchant's master ingredient record. Recipe ingredient
// lines reference inventory items but never own them.
type InventoryItem struct {
	gorm.Model
	Name    string           `gorm:"uniqueIndex;not null" json:"name"`
	Unit    string           `gorm:"not null" json:"unit"`
	Active  bool             `gorm:"not null;default:true" json:"active"`
	Aliases []InventoryAlias `gorm:"foreignKey:InventoryItemID" json:"aliases"`
	Units   []InventoryUnit  `gorm:"foreignKey:InventoryItemID" json:"units"`
}

// InventoryAlias holds an alternative name an inventory item is known by.
type InventoryAlias struct {
	gorm.Model
	Name            string `gorm:"not null" json:"name"`
	InventoryItemID uint
}

// InventoryUnit records one unit of measure an inventory item can be ordered in.
type InventoryUnit struct {
	gorm.Model
	Unit            string `gorm:"not null" json:"unit"`
	InventoryItemID uint
}

// AliasNames returns the item's alias strings in stored order.
func (i InventoryItem) AliasNames() []string {
	names := make([]string, 0, len(i.Aliases))
	for _, alias := range i.Aliases {
		names = append(names, alias.Name)
	}
	return names
}

// SupportsUnit reports whether the unit token matches the item's primary unit
// or any of its supported units. Comparison is case-insensitive on the trimmed
// token; units are otherwise opaque.
func (i InventoryItem) SupportsUnit(unit string) bool {
	token := strings.ToLower(strings.TrimSpace(unit))
	if token == "" {
		return false
	}
	if strings.ToLower(strings.TrimSpace(i.Unit)) == token {
		return true
	}
	for _, u := range i.Units {
		if strings.ToLower(strings.TrimSpace(u.Unit)) == token {
			return true
		}
	}
	return false
}
