package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"mise/internal/config"
	"mise/internal/db"
	"mise/models"
)

func main() {
	csvPath := "inventory.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	if err := run(csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(csvPath string) error {
	if strings.TrimSpace(csvPath) == "" {
		return fmt.Errorf("csv path must not be empty")
	}

	if _, err := os.Stat(csvPath); err != nil {
		return fmt.Errorf("locate csv: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	records, err := readCSV(csvPath)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	imported := 0
	for idx, record := range records {
		if err := database.Transaction(func(tx *gorm.DB) error {
			item := buildInventoryItem(record)
			if item.Name == "" {
				return fmt.Errorf("name column is empty")
			}
			if item.Unit == "" {
				return fmt.Errorf("unit column is empty for %q", item.Name)
			}

			var existing models.InventoryItem
			err := tx.Where("lower(name) = ?", strings.ToLower(item.Name)).First(&existing).Error
			switch {
			case err == nil:
				updates := map[string]any{
					"name":   item.Name,
					"unit":   item.Unit,
					"active": item.Active,
				}
				if err := tx.Model(&existing).Updates(updates).Error; err != nil {
					return fmt.Errorf("update inventory item %q: %w", item.Name, err)
				}
				item.ID = existing.ID
			case errors.Is(err, gorm.ErrRecordNotFound):
				aliases, units := item.Aliases, item.Units
				item.Aliases, item.Units = nil, nil
				if err := tx.Create(&item).Error; err != nil {
					return fmt.Errorf("create inventory item %q: %w", item.Name, err)
				}
				item.Aliases, item.Units = aliases, units
			default:
				return fmt.Errorf("find inventory item %q: %w", item.Name, err)
			}

			if err := replaceAliases(tx, item.ID, item.Aliases); err != nil {
				return fmt.Errorf("replace aliases for %q: %w", item.Name, err)
			}
			if err := replaceUnits(tx, item.ID, item.Units); err != nil {
				return fmt.Errorf("replace units for %q: %w", item.Name, err)
			}

			return nil
		}); err != nil {
			return fmt.Errorf("record %d (%s): %w", idx+1, record["name"], err)
		}
		imported++
	}

	fmt.Fprintf(os.Stdout, "Imported %d inventory items from %s\n", imported, filepath.Base(csvPath))
	return nil
}

func readCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	header := make([]string, len(rows[0]))
	for idx, key := range rows[0] {
		header[idx] = strings.ToLower(strings.TrimSpace(key))
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		record := make(map[string]string, len(header))
		for idx, key := range header {
			if idx >= len(row) {
				continue
			}
			record[key] = strings.TrimSpace(row[idx])
		}
		records = append(records, record)
	}

	return records, nil
}

// buildInventoryItem maps a csv record onto an InventoryItem. Expected
// columns are name, unit, aliases, units, and active; aliases and units are
// pipe-separated lists and active defaults to true.
func buildInventoryItem(row map[string]string) models.InventoryItem {
	item := models.InventoryItem{
		Name:   strings.TrimSpace(row["name"]),
		Unit:   strings.ToLower(strings.TrimSpace(row["unit"])),
		Active: parseActive(row["active"]),
	}

	for _, alias := range splitList(row["aliases"]) {
		if strings.EqualFold(alias, item.Name) {
			continue
		}
		item.Aliases = append(item.Aliases, models.InventoryAlias{Name: alias})
	}

	for _, unit := range splitList(row["units"]) {
		unit = strings.ToLower(unit)
		if unit == item.Unit {
			continue
		}
		item.Units = append(item.Units, models.InventoryUnit{Unit: unit})
	}

	return item
}

func parseActive(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return true
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return true
	}
	return parsed
}

func splitList(value string) []string {
	parts := strings.Split(value, "|")
	result := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, clean)
	}
	return result
}

func replaceAliases(tx *gorm.DB, itemID uint, aliases []models.InventoryAlias) error {
	if err := tx.Where("inventory_item_id = ?", itemID).Delete(&models.InventoryAlias{}).Error; err != nil {
		return err
	}
	for idx := range aliases {
		aliases[idx].ID = 0
		aliases[idx].InventoryItemID = itemID
	}
	if len(aliases) == 0 {
		return nil
	}
	return tx.Create(&aliases).Error
}

func replaceUnits(tx *gorm.DB, itemID uint, units []models.InventoryUnit) error {
	if err := tx.Where("inventory_item_id = ?", itemID).Delete(&models.InventoryUnit{}).Error; err != nil {
		return err
	}
	for idx := range units {
		units[idx].ID = 0
		units[idx].InventoryItemID = itemID
	}
	if len(units) == 0 {
		return nil
	}
	return tx.Create(&units).Error
}
