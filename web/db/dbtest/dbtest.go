// Package dbtest opens throwaway in-memory databases with the full schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"elitehub/web/db"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated SQLite database private to t. A single
// connection is used so transactions serialize the way row locks would
// on MySQL.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Sync(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// User inserts a user with the given referral code.
func User(t testing.TB, conn *gorm.DB, name, code string) db.User {
	t.Helper()

	u := db.User{
		UID:          fmt.Sprintf("uid-%s", strings.ToLower(strings.ReplaceAll(name, " ", "-"))),
		FullName:     name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Password:     "x",
		Role:         db.RoleUser,
		ReferralCode: code,
	}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}
