package models

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&User{},
		&UserInfo{},
		&Bookmark{},
		&Scholarship{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, username string) User {
	t.Helper()
	user := User{
		FirstName:    "Test",
		LastName:     "User",
		DisplayEmail: email,
		Username:     username,
	}
	user.Normalize()
	if err := user.SetPassword("Me@Passw0rd!"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}
