package services

import (
	"testing"

	"github.com/jkor2/lifeof/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.DailyEntry{},
		&models.EntryAttribute{},
		&models.EntryNote{},
		&models.AttributeDefinition{},
		&models.WhoopToken{},
		&models.WhoopRecovery{},
		&models.WhoopSleep{},
		&models.WhoopWorkout{},
	))
	return db
}

func strPtr(s string) *string { return &s }
