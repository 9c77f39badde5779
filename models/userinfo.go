package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Education is the nested education block of a profile. Every field is an
// optional string defaulting to empty; partial updates must not clobber
// sibling UserInfo columns.
type Education struct {
	Class          string `json:"class,omitempty"`
	Stream         string `json:"stream,omitempty"`
	Board          string `json:"board,omitempty"`
	Institution    string `json:"institution,omitempty"`
	PassingYear    string `json:"passing_year,omitempty"`
	Percentage     string `json:"percentage,omitempty"`
	AcademicStatus string `json:"academic_status,omitempty"`
	Category       string `json:"category,omitempty"`
	IncomeRange    string `json:"income_range,omitempty"`
}

// UserInfo is the profile-extension record, owned 1:1 by a user. It is
// created eagerly on signup, but creation can fail independently of the
// user row, so every read path repairs a missing record via EnsureUserInfo.
type UserInfo struct {
	gorm.Model
	UserID                 uint      `json:"user_id" gorm:"index:idx_user_infos_user_id,unique"`
	DateOfBirth            string    `json:"date_of_birth,omitempty"`
	Gender                 string    `json:"gender,omitempty"`
	EducationLevel         string    `json:"education_level,omitempty"`
	State                  string    `json:"state,omitempty"`
	City                   string    `json:"city,omitempty"`
	EnableAIRecommendation bool      `json:"enable_ai_recommendation"`
	ApplicationsSubmitted  int       `json:"applications_submitted"`
	Education              Education `json:"education" gorm:"embedded;embeddedPrefix:education_"`
}

// Bookmark marks a scholarship as saved by a user. The composite unique
// index makes the toggle idempotent under retries.
type Bookmark struct {
	gorm.Model
	UserID        uint `json:"user_id" gorm:"index:idx_bookmarks_user_scholarship,unique"`
	ScholarshipID uint `json:"scholarship_id" gorm:"index:idx_bookmarks_user_scholarship,unique"`
}

// EnsureUserInfo returns the extension record for userID, creating an empty
// one when missing.
func EnsureUserInfo(userID uint, db *gorm.DB) (*UserInfo, error) {
	var info UserInfo
	err := db.Where(UserInfo{UserID: userID}).FirstOrCreate(&info).Error
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// SetApplicationsSubmitted writes the counter with an atomic create-or-update
// keyed by user id. A read-modify-write pair would lose updates under
// concurrent requests from the same user; the upsert makes the final value
// whichever write applied last.
func SetApplicationsSubmitted(userID uint, count int, db *gorm.DB) (*UserInfo, error) {
	info := UserInfo{UserID: userID, ApplicationsSubmitted: count}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"applications_submitted": count}),
	}).Create(&info).Error
	if err != nil {
		return nil, err
	}
	var out UserInfo
	if err := db.Where("user_id = ?", userID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleBookmark flips the saved state of a scholarship for a user and
// reports the resulting state.
func ToggleBookmark(userID, scholarshipID uint, db *gorm.DB) (bool, error) {
	var existing Bookmark
	err := db.Where("user_id = ? AND scholarship_id = ?", userID, scholarshipID).First(&existing).Error
	if err == nil {
		if err := db.Unscoped().Delete(&existing).Error; err != nil {
			return true, err
		}
		return false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}
	if err := db.Create(&Bookmark{UserID: userID, ScholarshipID: scholarshipID}).Error; err != nil {
		return false, err
	}
	return true, nil
}

// SavedScholarships returns the scholarships a user bookmarked, newest
// bookmark first.
func SavedScholarships(userID uint, db *gorm.DB) ([]Scholarship, error) {
	var out []Scholarship
	err := db.
		Joins("JOIN bookmarks ON bookmarks.scholarship_id = scholarships.id").
		Where("bookmarks.user_id = ? AND bookmarks.deleted_at IS NULL", userID).
		Order("bookmarks.created_at DESC").
		Find(&out).Error
	return out, err
}
