// Package dbtest opens throwaway in-memory databases so handler tests run
// without a Postgres instance.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwell-app/inkwell-server/cmd/models"
)

// New returns a migrated in-memory database. A single connection is kept open
// so the SQLite memory database survives for the whole test.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	migrations := []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.Comment{},
		&models.ContactMessage{},
	}
	for _, model := range migrations {
		if err := db.AutoMigrate(model); err != nil {
			t.Fatalf("migrating %T: %v", model, err)
		}
	}

	return db
}
