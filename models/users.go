package models

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	AuthMethodLocal  = "local"
	AuthMethodGoogle = "google"
)

// bcryptCost is fixed; bcrypt embeds a fresh random salt per call so the
// same password never hashes to the same value twice.
const bcryptCost = 10

// User contains the user table. Email and Username are stored lowercased and
// carry the unique indexes; DisplayEmail keeps the raw casing the user typed.
// Mobile and GoogleID are pointers so multiple NULLs never trip the unique
// constraint (sparse uniqueness).
type User struct {
	gorm.Model
	FirstName      string  `json:"first_name" binding:"required"`
	LastName       string  `json:"last_name" binding:"required"`
	Email          string  `json:"email" gorm:"index:idx_users_email,unique"`
	DisplayEmail   string  `json:"display_email"`
	Username       string  `json:"username" gorm:"index:idx_users_username,unique"`
	Mobile         *string `json:"mobile,omitempty" gorm:"index:idx_users_mobile,unique"`
	Password       string  `json:"-"`
	GoogleID       *string `json:"-" gorm:"index:idx_users_google_id,unique"`
	AuthMethod     string  `json:"auth_method" gorm:"default:local"`
	IsVerified     bool    `json:"is_verified"`
	ProfilePicture string  `json:"profile_picture,omitempty"`
}

// Normalize populates the canonical fields before a write. Email is
// lowercased into the indexed column, the raw casing is preserved in
// DisplayEmail, and the username falls back to the lowercased email.
func (u *User) Normalize() {
	raw := strings.TrimSpace(u.DisplayEmail)
	if raw == "" {
		raw = strings.TrimSpace(u.Email)
	}
	u.DisplayEmail = raw
	u.Email = strings.ToLower(raw)
	if u.Username == "" {
		u.Username = u.Email
	}
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	if u.AuthMethod == "" {
		u.AuthMethod = AuthMethodLocal
	}
}

// SetPassword hashes plaintext into the Password column. It is the only
// code path that writes the hash; unrelated updates must use selected
// columns so a stored hash is never re-hashed.
func (u *User) SetPassword(plaintext string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// VerifyPassword recomputes with the embedded salt and compares in constant
// time.
func (u *User) VerifyPassword(plaintext string) bool {
	if u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plaintext)) == nil
}

// Snapshot is the minimal identity copy held in the session, distinct from
// the full row. Mutating code paths must refresh it explicitly.
type Snapshot struct {
	ID        uint    `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Mobile    *string `json:"mobile,omitempty"`
}

func (u *User) Snapshot() Snapshot {
	return Snapshot{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.DisplayEmail,
		Mobile:    u.Mobile,
	}
}

// GetUserByID retrieves a user by primary key.
func GetUserByID(id uint, db *gorm.DB) (*User, error) {
	var user User
	if err := db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail looks up the canonical (lowercased) email column. The
// caller's input is normalized here so login lookups behave the same as
// signup writes.
func GetUserByEmail(email string, db *gorm.DB) (*User, error) {
	var user User
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByGoogleID retrieves a user by the OAuth subject identifier.
func GetUserByGoogleID(sub string, db *gorm.DB) (*User, error) {
	var user User
	if err := db.Where("google_id = ?", sub).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// NextFreeUsername derives a username from the local part of email and
// probes with an increasing numeric suffix until a free name is found.
// The probe is not isolated from concurrent signups; the caller must treat
// a unique-constraint failure on create as retryable.
func NextFreeUsername(email string, db *gorm.DB) (string, error) {
	base := strings.ToLower(email)
	if at := strings.Index(base, "@"); at > 0 {
		base = base[:at]
	}
	if base == "" {
		return "", errors.New("empty email for username derivation")
	}
	candidate := base
	for counter := 1; ; counter++ {
		var count int64
		if err := db.Model(&User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, counter)
	}
}

// IsDuplicateErr reports whether err is a unique-constraint violation from
// the underlying store.
func IsDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed") ||
		strings.Contains(msg, "duplicate key")
}
