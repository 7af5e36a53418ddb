package services

import (
	"testing"

	"sitesafe-api/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

// useSettings primes the settings cache so services skip the settings query.
func useSettings(t *testing.T, mutate func(*models.CompanySettings)) models.CompanySettings {
	t.Helper()
	cs := models.DefaultCompanySettings()
	if mutate != nil {
		mutate(&cs)
	}
	storeSettingsCache(cs)
	t.Cleanup(ClearSettingsCache)
	return cs
}
