package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yishak-cs/themenu/internal/database"
	"github.com/yishak-cs/themenu/internal/models"
)

// NewDB opens a migrated in-memory sqlite database private to the test.
// It keeps a single connection so the in-memory schema survives.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateTeam stores a team named name.
func CreateTeam(t *testing.T, db *gorm.DB, name string) *models.Team {
	t.Helper()
	team := &models.Team{Name: name}
	require.NoError(t, db.Create(team).Error)
	return team
}

// CreateUser stores a user, on team when it is non-nil.
func CreateUser(t *testing.T, db *gorm.DB, email string, team *models.Team) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x", Name: email}
	if team != nil {
		id := team.ID
		user.TeamID = &id
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateDish stores a dish owned by user with one ingredient amount per name.
func CreateDish(t *testing.T, db *gorm.DB, user *models.User, name string, ingredients ...string) *models.Dish {
	t.Helper()
	dish := &models.Dish{Name: name, CreatedByID: user.ID}
	require.NoError(t, db.Create(dish).Error)
	for _, ingName := range ingredients {
		ing := models.Ingredient{Name: ingName}
		require.NoError(t, db.Where(models.Ingredient{Name: ingName}).FirstOrCreate(&ing).Error)
		ia := models.IngredientAmount{DishID: dish.ID, IngredientID: ing.ID, Amount: "1"}
		require.NoError(t, db.Create(&ia).Error)
	}
	require.NoError(t, db.Preload("IngredientAmounts.Ingredient").First(dish, dish.ID).Error)
	return dish
}

// Date parses a YYYY-MM-DD date or fails the test.
func Date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	require.NoError(t, err)
	return d
}
