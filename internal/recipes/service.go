// Package recipes orchestrates recipe persistence around the pure
// reconciliation core: validation, the transactional save covering recipe,
// ingredient, and issue rows, the lazy read-time repair on load, duplicate
// resolution, and the best-effort post-commit menu link.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	applog "mise/internal/log"
	"mise/internal/menulink"
	"mise/internal/recon"
	"mise/models"
)

var (
	ErrMissingName     = errors.New("recipes: recipe name is required")
	ErrNoIngredients   = errors.New("recipes: recipe needs at least one ingredient")
	ErrInvalidQuantity = errors.New("recipes: ingredient quantity must be greater than zero")
	ErrNotReady        = errors.New("recipes: recipe has unresolved issues and cannot be exported")
	ErrNotDuplicates   = errors.New("recipes: positions do not form a duplicate group")
)

// DuplicateResolution names the caller's choice for a duplicate group.
type DuplicateResolution string

const (
	// ResolutionMerge collapses a same-unit group automatically.
	ResolutionMerge DuplicateResolution = "merge"
	// ResolutionKeepSeparate acknowledges a cross-unit group: the lines
	// stay, only the duplicate issue is dropped.
	ResolutionKeepSeparate DuplicateResolution = "keep_separate"
	// ResolutionForceMerge sums raw quantities under the first unit.
	ResolutionForceMerge DuplicateResolution = "force_merge"
)

// Service owns recipe persistence. All mutations reconcile and rescore
// before committing, so the stored issue list always reflects the stored
// ingredient list.
type Service struct {
	db *gorm.DB
}

// NewService wires a Service to the given database handle.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, gorm.ErrInvalidDB
	}
	return &Service{db: db}, nil
}

// Validate rejects recipes that must not reach reconciliation: a missing
// name, an empty ingredient list, or a non-positive quantity. Terminal
// recipes (drafts, failed imports) are exempt, they are allowed to be
// incomplete.
func Validate(recipe *models.Recipe) error {
	if recipe.Status.IsTerminal() {
		return nil
	}
	return validateContent(recipe)
}

func validateContent(recipe *models.Recipe) error {
	if strings.TrimSpace(recipe.Name) == "" {
		return ErrMissingName
	}
	if len(recipe.Ingredients) == 0 {
		return ErrNoIngredients
	}
	for i := range recipe.Ingredients {
		if recipe.Ingredients[i].Quantity <= 0 {
			return fmt.Errorf("%w: %q", ErrInvalidQuantity, recipe.Ingredients[i].Name)
		}
	}
	return nil
}

// EnsureLineIDs assigns a stable identifier to every line that lacks one and
// renumbers positions to match list order. Line identity survives renames;
// positions never do.
func EnsureLineIDs(lines []models.IngredientLine) {
	for i := range lines {
		if strings.TrimSpace(lines[i].LineID) == "" {
			lines[i].LineID = uuid.NewString()
		}
		lines[i].Position = i
	}
}

// Save validates, reconciles, rescores, and persists the recipe with its
// ingredient and issue rows in a single transaction. Either everything
// commits or nothing does.
func (s *Service) Save(ctx context.Context, recipe *models.Recipe) error {
	if recipe == nil {
		return errors.New("recipes: nil recipe")
	}
	EnsureLineIDs(recipe.Ingredients)
	if recipe.Status.IsTerminal() {
		completeTerminal(recipe)
	}
	if err := Validate(recipe); err != nil {
		return err
	}

	recipe.Issues = recon.Reconcile(recipe.Ingredients, recipe.Issues)
	return s.persist(ctx, recipe)
}

// completeTerminal is the exit path from the caller-supplied draft and
// import-failed states. A missing_data issue clears as soon as its line
// carries a positive quantity; once the content validates and no missing_data
// issue remains, the failure marker is considered resolved and the recipe
// rejoins the scored lifecycle.
func completeTerminal(recipe *models.Recipe) {
	quantities := make(map[string]float64, len(recipe.Ingredients))
	for i := range recipe.Ingredients {
		quantities[recipe.Ingredients[i].LineID] = recipe.Ingredients[i].Quantity
	}

	kept := recipe.Issues[:0]
	for _, issue := range recipe.Issues {
		if issue.Kind == models.IssueMissingData && issue.LineID != "" {
			quantity, ok := quantities[issue.LineID]
			if !ok || quantity > 0 {
				continue
			}
		}
		kept = append(kept, issue)
	}
	recipe.Issues = kept

	if validateContent(recipe) != nil {
		return
	}
	for _, issue := range recipe.Issues {
		if issue.Kind == models.IssueMissingData {
			return
		}
	}

	kept = recipe.Issues[:0]
	for _, issue := range recipe.Issues {
		if issue.Kind == models.IssueImportFailed {
			continue
		}
		kept = append(kept, issue)
	}
	recipe.Issues = kept
	recipe.Status = models.StatusNeedsReview
}

// persist rescores and writes the recipe without reconciling, for callers
// that have already settled the issue list (keep-separate resolution).
func (s *Service) persist(ctx context.Context, recipe *models.Recipe) error {
	if !recipe.Status.IsTerminal() {
		recipe.Confidence, recipe.Status = recon.Score(recipe.Ingredients)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if recipe.ID == 0 {
			return tx.Create(recipe).Error
		}

		if err := tx.Omit("Ingredients", "Issues").Save(recipe).Error; err != nil {
			return fmt.Errorf("save recipe: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.IngredientLine{}).Error; err != nil {
			return fmt.Errorf("clear ingredient rows: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Issue{}).Error; err != nil {
			return fmt.Errorf("clear issue rows: %w", err)
		}

		for i := range recipe.Ingredients {
			recipe.Ingredients[i].ID = 0
			recipe.Ingredients[i].RecipeID = recipe.ID
		}
		if len(recipe.Ingredients) > 0 {
			if err := tx.Create(&recipe.Ingredients).Error; err != nil {
				return fmt.Errorf("save ingredient rows: %w", err)
			}
		}

		for i := range recipe.Issues {
			recipe.Issues[i].ID = 0
			recipe.Issues[i].RecipeID = recipe.ID
		}
		if len(recipe.Issues) > 0 {
			if err := tx.Create(&recipe.Issues).Error; err != nil {
				return fmt.Errorf("save issue rows: %w", err)
			}
		}
		return nil
	})
}

// Load fetches a recipe with its ordered ingredients and issues. Inventory
// references that no longer resolve are repaired before the recipe is handed
// back, and confidence/status are always recomputed from the (possibly
// repaired) match state. The repair is read-time only; the next save
// persists it.
func (s *Service) Load(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Preload("Ingredients.InventoryItem").
		Preload("Issues").
		First(&recipe, id).Error
	if err != nil {
		return nil, err
	}

	live, err := s.liveInventoryIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory ids: %w", err)
	}

	if repaired := recon.RepairLines(recipe.Ingredients, live); repaired > 0 {
		applog.Debug(ctx, "repaired dangling inventory references",
			"recipeID", recipe.ID,
			"count", repaired,
		)
		recipe.Issues = recon.Reconcile(recipe.Ingredients, recipe.Issues)
	}

	if !recipe.Status.IsTerminal() {
		recipe.Confidence, recipe.Status = recon.Score(recipe.Ingredients)
	}
	return &recipe, nil
}

// List returns recipe headers without their ingredient or issue rows.
func (s *Service) List(ctx context.Context) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Order("id asc").Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

// Export returns the recipe for export to the point of sale. A recipe with
// unresolved issues is not an error case, it is a blocking condition: the
// export is refused with ErrNotReady until every ingredient carries a
// resolved inventory reference.
func (s *Service) Export(ctx context.Context, id uint) (*models.Recipe, error) {
	recipe, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.Status != models.StatusReadyToImport {
		return nil, fmt.Errorf("%w: status is %s", ErrNotReady, recipe.Status)
	}
	return recipe, nil
}

// Delete removes the recipe and cascades to its ingredient and issue rows.
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&models.IngredientLine{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.Issue{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Recipe{}, id).Error
	})
}

// ResolveDuplicates applies the caller's resolution to a duplicate group on
// the stored recipe and persists the result. The second return value is true
// when an automatic merge hit a cross-unit group and the caller must choose
// a resolution.
func (s *Service) ResolveDuplicates(ctx context.Context, id uint, positions []int, resolution DuplicateResolution) (*models.Recipe, bool, error) {
	recipe, err := s.Load(ctx, id)
	if err != nil {
		return nil, false, err
	}

	// Every resolution requires the positions to form one duplicate group;
	// without this check a merge would sum unrelated ingredients.
	key, err := groupKey(recipe.Ingredients, positions)
	if err != nil {
		return nil, false, err
	}

	switch resolution {
	case ResolutionMerge:
		merged, needsDecision, err := recon.MergeDuplicates(recipe.Ingredients, positions)
		if err != nil {
			return nil, false, err
		}
		if needsDecision {
			return recipe, true, nil
		}
		recipe.Ingredients = merged

	case ResolutionForceMerge:
		merged, err := recon.ForceMerge(recipe.Ingredients, positions)
		if err != nil {
			return nil, false, err
		}
		recipe.Ingredients = merged

	case ResolutionKeepSeparate:
		recipe.Issues = dropDuplicateIssue(recipe.Issues, key)
		// Acknowledged: persist without reconciling so the issue is not
		// immediately re-raised. The next list mutation raises it again.
		return recipe, false, s.persist(ctx, recipe)

	default:
		return nil, false, fmt.Errorf("recipes: unknown duplicate resolution %q", resolution)
	}

	return recipe, false, s.Save(ctx, recipe)
}

func groupKey(lines []models.IngredientLine, positions []int) (string, error) {
	if len(positions) < 2 {
		return "", ErrNotDuplicates
	}
	key := ""
	for _, pos := range positions {
		if pos < 0 || pos >= len(lines) {
			return "", fmt.Errorf("%w: position %d is out of range", ErrNotDuplicates, pos)
		}
		name := recon.NormalizeName(lines[pos].Name)
		if key == "" {
			key = name
			continue
		}
		if name != key {
			return "", ErrNotDuplicates
		}
	}
	return key, nil
}

func dropDuplicateIssue(issues []models.Issue, key string) []models.Issue {
	filtered := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.Kind == models.IssueDuplicateIngredient && recon.NormalizeName(issue.CorrelatedName) == key {
			continue
		}
		filtered = append(filtered, issue)
	}
	return filtered
}

// AddIngredient appends a line to the recipe and saves.
func (s *Service) AddIngredient(ctx context.Context, id uint, line models.IngredientLine) (*models.Recipe, error) {
	recipe, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	line.LineID = ""
	recipe.Ingredients = append(recipe.Ingredients, line)
	if err := s.Save(ctx, recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}

// UpdateIngredient replaces the named line's editable fields and saves. The
// line keeps its identity, so issues raised against it survive the edit.
func (s *Service) UpdateIngredient(ctx context.Context, id uint, lineID string, update models.IngredientLine) (*models.Recipe, error) {
	return s.mutateLine(ctx, id, lineID, func(line *models.IngredientLine) {
		line.Name = update.Name
		line.Quantity = update.Quantity
		if update.Unit != line.Unit {
			line.Unit = update.Unit
			line.OriginalUnit = ""
			line.UnitUnclear = false
		}
	})
}

// RemoveIngredient deletes the named line and saves. Positions are
// renumbered; issues tied to the removed line disappear on reconciliation.
func (s *Service) RemoveIngredient(ctx context.Context, id uint, lineID string) (*models.Recipe, error) {
	recipe, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	kept := recipe.Ingredients[:0]
	found := false
	for _, line := range recipe.Ingredients {
		if line.LineID == lineID {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return nil, gorm.ErrRecordNotFound
	}
	recipe.Ingredients = kept
	if err := s.Save(ctx, recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}

// SetIngredientMatch points the named line at an inventory item with full
// confidence and saves. The not-found or similar issue for the line clears on
// the reconciliation pass inside the save.
func (s *Service) SetIngredientMatch(ctx context.Context, id uint, lineID string, itemID uint) (*models.Recipe, error) {
	var item models.InventoryItem
	if err := s.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return nil, fmt.Errorf("load inventory item: %w", err)
	}
	return s.mutateLine(ctx, id, lineID, func(line *models.IngredientLine) {
		line.InventoryItemID = &item.ID
		line.IsNew = false
		line.Confidence = models.ConfidenceHigh
		if line.Unit != "" && !item.SupportsUnit(line.Unit) {
			line.OriginalUnit = line.Unit
			line.UnitUnclear = true
		} else {
			line.UnitUnclear = false
		}
	})
}

// ClearIngredientMatch detaches the named line from its inventory item and
// saves, re-raising the not-found issue for it.
func (s *Service) ClearIngredientMatch(ctx context.Context, id uint, lineID string) (*models.Recipe, error) {
	return s.mutateLine(ctx, id, lineID, func(line *models.IngredientLine) {
		line.InventoryItemID = nil
		line.InventoryItem = nil
		line.IsNew = true
		line.Confidence = models.ConfidenceLow
	})
}

func (s *Service) mutateLine(ctx context.Context, id uint, lineID string, apply func(*models.IngredientLine)) (*models.Recipe, error) {
	recipe, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range recipe.Ingredients {
		if recipe.Ingredients[i].LineID == lineID {
			apply(&recipe.Ingredients[i])
			found = true
			break
		}
	}
	if !found {
		return nil, gorm.ErrRecordNotFound
	}
	if err := s.Save(ctx, recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}

// LinkResult reports what the post-save linker did.
type LinkResult struct {
	MenuItemID uint    `json:"menu_item_id"`
	Created    bool    `json:"created"`
	Score      float64 `json:"score,omitempty"`
}

// LinkMenuItem attaches the recipe to the best unlinked menu item, or
// creates a pre-linked "Uncategorized" draft when nothing qualifies. It runs
// strictly after the save transaction has committed and is best-effort: a
// failure here never unwinds the save, callers log it and may retry.
func (s *Service) LinkMenuItem(ctx context.Context, recipe *models.Recipe) (*LinkResult, error) {
	if recipe == nil || recipe.ID == 0 {
		return nil, errors.New("recipes: link requires a saved recipe")
	}
	if recipe.MenuItemID != nil {
		return &LinkResult{MenuItemID: *recipe.MenuItemID}, nil
	}

	var candidates []models.MenuItem
	if err := s.db.WithContext(ctx).Where("recipe_id IS NULL").Order("id asc").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("list unlinked menu items: %w", err)
	}

	outcome := menulink.Choose(recipe.Name, candidates)

	if outcome.Draft != nil {
		item := models.MenuItem{
			Name:     outcome.Draft.Name,
			Category: outcome.Draft.Category,
			RecipeID: &recipe.ID,
		}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			return tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).
				Update("menu_item_id", item.ID).Error
		})
		if err != nil {
			return nil, fmt.Errorf("create menu item draft: %w", err)
		}
		recipe.MenuItemID = &item.ID
		return &LinkResult{MenuItemID: item.ID, Created: true}, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MenuItem{}).Where("id = ?", outcome.MenuItemID).
			Update("recipe_id", recipe.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).
			Update("menu_item_id", outcome.MenuItemID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("link menu item: %w", err)
	}
	recipe.MenuItemID = &outcome.MenuItemID
	return &LinkResult{MenuItemID: outcome.MenuItemID, Score: outcome.Score}, nil
}

// liveInventoryIDs returns the ids of every inventory item that still
// exists. Deactivated items keep their links; only deletion dangles.
func (s *Service) liveInventoryIDs(ctx context.Context) (map[uint]bool, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.InventoryItem{}).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	live := make(map[uint]bool, len(ids))
	for _, id := range ids {
		live[id] = true
	}
	return live, nil
}
