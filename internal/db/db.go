// Package db opens the persistent store. The handle is constructed once at
// startup and injected into the repositories; there is no package-level
// singleton.
package db

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/hkarimi/telegpt/internal/session"
	"github.com/hkarimi/telegpt/internal/user"
)

// Connect picks the driver from the DSN shape: a mysql DSN contains a
// "@tcp(" (or "@unix(") network segment, anything else is treated as a
// sqlite path.
func Connect(dsn string) (*gorm.DB, error) {
	if strings.Contains(dsn, "@tcp(") || strings.Contains(dsn, "@unix(") {
		return gorm.Open(mysql.Open(dsn), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
}

// Migrate creates or updates the four tables owned by this service.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&user.User{},
		&user.DailyUsage{},
		&session.Session{},
		&session.Message{},
	)
}
