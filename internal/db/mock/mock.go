package mock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "mise/internal/log"
	"mise/models"
)

// New returns an in-memory sqlite database seeded with representative
// merchant data: a demo user, a small inventory, an imported recipe mid
// review, and a couple of menu items.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:mise-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.InventoryItem{},
		&models.InventoryAlias{},
		&models.InventoryUnit{},
		&models.Recipe{},
		&models.IngredientLine{},
		&models.Issue{},
		&models.MenuItem{},
		&models.User{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte("kitchen"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:         "Rowan Beal",
		Email:        "rowan@mise.app",
		PasswordHash: string(password),
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}

	flour := models.InventoryItem{
		Name:   "All-Purpose Flour",
		Unit:   "g",
		Active: true,
		Aliases: []models.InventoryAlias{
			{Name: "AP Flour"},
			{Name: "Plain Flour"},
		},
		Units: []models.InventoryUnit{
			{Unit: "g"},
			{Unit: "kg"},
			{Unit: "cup"},
		},
	}

	sugar := models.InventoryItem{
		Name:   "Granulated Sugar",
		Unit:   "g",
		Active: true,
		Aliases: []models.InventoryAlias{
			{Name: "White Sugar"},
		},
		Units: []models.InventoryUnit{
			{Unit: "g"},
			{Unit: "cup"},
		},
	}

	milk := models.InventoryItem{
		Name:   "Whole Milk",
		Unit:   "ml",
		Active: true,
		Units: []models.InventoryUnit{
			{Unit: "ml"},
			{Unit: "l"},
			{Unit: "cup"},
		},
	}

	items := []*models.InventoryItem{&flour, &sugar, &milk}
	for _, item := range items {
		if err := db.WithContext(ctx).Create(item).Error; err != nil {
			return err
		}
	}

	flourLine := uuid.NewString()
	sugarLine := uuid.NewString()
	saffronLine := uuid.NewString()

	pancakes := models.Recipe{
		Name:       "Buttermilk Pancakes",
		Status:     models.StatusNeedsReview,
		Confidence: models.ConfidenceMedium,
		SourceType: models.SourceSpreadsheet,
		Notes:      "Imported from the weekend brunch prep sheet.",
		Ingredients: []models.IngredientLine{
			{
				LineID:          flourLine,
				Position:        0,
				Name:            "All-Purpose Flour",
				Quantity:        250,
				Unit:            "g",
				InventoryItemID: &flour.ID,
				Confidence:      models.ConfidenceHigh,
			},
			{
				LineID:          sugarLine,
				Position:        1,
				Name:            "Granulated Sugar",
				Quantity:        30,
				Unit:            "g",
				InventoryItemID: &sugar.ID,
				Confidence:      models.ConfidenceHigh,
			},
			{
				LineID:      saffronLine,
				Position:    2,
				Name:        "Saffron Threads",
				Quantity:    1,
				Unit:        "pinch",
				IsNew:       true,
				UnitUnclear: true,
				Confidence:  models.ConfidenceLow,
			},
		},
		Issues: []models.Issue{
			{
				Kind:           models.IssueIngredientNotFound,
				Message:        `ingredient "Saffron Threads" is not in your inventory`,
				LineID:         saffronLine,
				CorrelatedName: "Saffron Threads",
			},
			{
				Kind:           models.IssueUnitUnclear,
				Message:        `unit "pinch" for "Saffron Threads" could not be verified`,
				LineID:         saffronLine,
				CorrelatedName: "Saffron Threads",
			},
		},
	}
	if err := db.WithContext(ctx).Create(&pancakes).Error; err != nil {
		return err
	}

	menuItems := []models.MenuItem{
		{Name: "Buttermilk Pancakes", Category: "Breakfast", RecipeID: &pancakes.ID},
		{Name: "Iced Vanilla Latte", Category: "Drinks"},
	}
	for _, item := range menuItems {
		itemCopy := item
		if err := db.WithContext(ctx).Create(&itemCopy).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
