package models

import (
	"time"

	"gorm.io/gorm"
)

// Scholarship is a catalog entry curated by admins. The enum columns mirror
// the filters exposed on the discovery pages; optional ones accept empty.
type Scholarship struct {
	gorm.Model
	Title          string    `json:"title" binding:"required"`
	Type           string    `json:"type" binding:"required,oneof=government private other"`
	Amount         int       `json:"amount" binding:"required,min=0"`
	About          string    `json:"about" binding:"required"`
	Eligibility    string    `json:"eligibility" binding:"required"`
	Deadline       time.Time `json:"deadline" binding:"required"`
	Benefits       string    `json:"benefits" binding:"required"`
	Region         string    `json:"region" binding:"required"`
	Documents      string    `json:"documents" binding:"required"`
	ApplyLink      string    `json:"apply_link" binding:"required,url"`
	Gender         string    `json:"gender,omitempty" binding:"omitempty,oneof=female both"`
	Category       string    `json:"category,omitempty"`
	CourseCategory string    `json:"course_category,omitempty" binding:"omitempty,oneof=engineering medical management arts science commerce other all"`
	State          string    `json:"state,omitempty"`
	Education      string    `json:"education,omitempty"`
	Note           string    `json:"note,omitempty"`
}

// ListScholarships returns catalog entries, newest first.
func ListScholarships(db *gorm.DB) ([]Scholarship, error) {
	var out []Scholarship
	err := db.Order("created_at DESC").Find(&out).Error
	return out, err
}

// GetScholarship retrieves one catalog entry by id.
func GetScholarship(id uint, db *gorm.DB) (*Scholarship, error) {
	var s Scholarship
	if err := db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
