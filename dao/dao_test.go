package dao

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/acskang/endless-openrouter/models"
)

// newTestDB opens a throwaway sqlite database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Question{}, &models.Response{}))
	return db
}

// newTestUser inserts a user with the given quota limit
func newTestUser(t *testing.T, d *UserDAO, email string, limit int64) *models.User {
	t.Helper()
	user, err := d.CreateUser(email, email, "x", limit)
	require.NoError(t, err)
	return user
}
