package users

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/scholarseek/scholarseek/apperr"
	gateway "github.com/scholarseek/scholarseek/apigateway"
	"github.com/scholarseek/scholarseek/models"
)

// currentIdentity resolves the session snapshot to the full row. A deleted
// identity degrades to unauthenticated rather than a server error.
func (s *Service) currentIdentity(c *fiber.Ctx) (*models.User, error) {
	snap, ok := gateway.CurrentUser(c)
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	user, err := models.GetUserByID(snap.ID, s.Db)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = s.Sessions.Clear(c)
			return nil, apperr.ErrUnauthenticated
		}
		return nil, apperr.Wrap(err, apperr.ErrDatabase, "")
	}
	return user, nil
}

// Dashboard returns the identity plus its extension record, repairing a
// missing extension on the way.
func (s *Service) Dashboard(c *fiber.Ctx) error {
	user, err := s.currentIdentity(c)
	if err != nil {
		return s.fail(c, err)
	}
	info, err := models.EnsureUserInfo(user.ID, s.Db)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	saved, err := models.SavedScholarships(user.ID, s.Db)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user":        user,
		"user_info":   info,
		"saved_count": len(saved),
	})
}

// Profile returns the editable view of the identity and extension record.
func (s *Service) Profile(c *fiber.Ctx) error {
	user, err := s.currentIdentity(c)
	if err != nil {
		return s.fail(c, err)
	}
	info, err := models.EnsureUserInfo(user.ID, s.Db)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": user, "user_info": info})
}

type updateProfileRequest struct {
	FirstName              string            `json:"first_name"`
	LastName               string            `json:"last_name"`
	Mobile                 string            `json:"mobile"`
	DateOfBirth            string            `json:"date_of_birth"`
	Gender                 string            `json:"gender"`
	EducationLevel         string            `json:"education_level"`
	State                  string            `json:"state"`
	City                   string            `json:"city"`
	EnableAIRecommendation *bool             `json:"enable_ai_recommendation"`
	Education              *models.Education `json:"education"`
}

// UpdateProfile writes the basic identity fields and the extension record.
// Only named columns are updated so the password hash is never touched, and
// the education block updates without clobbering its sibling fields. The
// session snapshot is refreshed afterwards so it cannot go stale.
func (s *Service) UpdateProfile(c *fiber.Ctx) error {
	user, err := s.currentIdentity(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req updateProfileRequest
	if err := parseJSON(c, &req); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrBadRequest, "malformed json body"))
	}

	userUpdates := map[string]interface{}{}
	if v := strings.TrimSpace(req.FirstName); v != "" {
		userUpdates["first_name"] = v
	}
	if v := strings.TrimSpace(req.LastName); v != "" {
		userUpdates["last_name"] = v
	}
	if v := strings.TrimSpace(req.Mobile); v != "" {
		userUpdates["mobile"] = v
	}
	if len(userUpdates) > 0 {
		if err := s.Db.Model(user).Updates(userUpdates).Error; err != nil {
			if models.IsDuplicateErr(err) {
				return s.fail(c, apperr.ErrDuplicateField)
			}
			return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
		}
	}

	info, err := models.EnsureUserInfo(user.ID, s.Db)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	// Absent fields stay untouched; an education-only update must not wipe
	// its sibling columns.
	infoUpdates := map[string]interface{}{}
	if v := strings.TrimSpace(req.DateOfBirth); v != "" {
		infoUpdates["date_of_birth"] = v
	}
	if v := strings.TrimSpace(req.Gender); v != "" {
		infoUpdates["gender"] = v
	}
	if v := strings.TrimSpace(req.EducationLevel); v != "" {
		infoUpdates["education_level"] = v
	}
	if v := strings.TrimSpace(req.State); v != "" {
		infoUpdates["state"] = v
	}
	if v := strings.TrimSpace(req.City); v != "" {
		infoUpdates["city"] = v
	}
	if req.EnableAIRecommendation != nil {
		infoUpdates["enable_ai_recommendation"] = *req.EnableAIRecommendation
	}
	if req.Education != nil {
		infoUpdates["education_class"] = req.Education.Class
		infoUpdates["education_stream"] = req.Education.Stream
		infoUpdates["education_board"] = req.Education.Board
		infoUpdates["education_institution"] = req.Education.Institution
		infoUpdates["education_passing_year"] = req.Education.PassingYear
		infoUpdates["education_percentage"] = req.Education.Percentage
		infoUpdates["education_academic_status"] = req.Education.AcademicStatus
		infoUpdates["education_category"] = req.Education.Category
		infoUpdates["education_income_range"] = req.Education.IncomeRange
	}
	if len(infoUpdates) > 0 {
		if err := s.Db.Model(info).Updates(infoUpdates).Error; err != nil {
			return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
		}
	}

	fresh, err := models.GetUserByID(user.ID, s.Db)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	if err := s.Sessions.RefreshUser(c, fresh.Snapshot()); err != nil {
		s.Logger.WithError(err).Warn("session snapshot refresh failed")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "profile updated", "user": fresh.Snapshot()})
}

// SavedScholarships lists the user's bookmarked scholarships.
func (s *Service) SavedScholarships(c *fiber.Ctx) error {
	user, err := s.currentIdentity(c)
	if err != nil {
		return s.fail(c, err)
	}
	if _, err := models.EnsureUserInfo(user.ID, s.Db); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	saved, err := models.SavedScholarships(user.ID, s.Db)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"saved_scholarships": saved})
}

// ToggleBookmark saves or unsaves a scholarship for the current user.
func (s *Service) ToggleBookmark(c *fiber.Ctx) error {
	snap, ok := gateway.CurrentUser(c)
	if !ok {
		return s.fail(c, apperr.ErrUnauthenticated)
	}
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrValidation, "invalid scholarship id"))
	}
	if _, err := models.GetScholarship(uint(id), s.Db); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.fail(c, apperr.WithFields(apperr.ErrNotFound, map[string]any{"scholarship_id": id}))
		}
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}

	bookmarked, err := models.ToggleBookmark(snap.ID, uint(id), s.Db)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	message := "scholarship removed from saved list"
	if bookmarked {
		message = "scholarship saved successfully"
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":    true,
		"bookmarked": bookmarked,
		"message":    message,
	})
}

type applicationsRequest struct {
	ApplicationsSubmitted *float64 `json:"applications_submitted"`
}

// UpdateApplicationsSubmitted validates the count and writes it with an
// atomic upsert keyed by user id.
func (s *Service) UpdateApplicationsSubmitted(c *fiber.Ctx) error {
	snap, ok := gateway.CurrentUser(c)
	if !ok {
		return s.fail(c, apperr.ErrUnauthenticated)
	}
	var req applicationsRequest
	if err := parseJSON(c, &req); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrBadRequest, "malformed json body"))
	}
	if req.ApplicationsSubmitted == nil {
		return s.fail(c, apperr.New("validation_error", http.StatusBadRequest, "applications_submitted is required"))
	}
	num := *req.ApplicationsSubmitted
	// The bound also guards the int conversion: a huge float64 would wrap
	// negative and slip past the non-negative check.
	if num < 0 || num > math.MaxInt32 {
		return s.fail(c, apperr.New("validation_error", http.StatusBadRequest, "please enter a valid non-negative number"))
	}
	count := int(num) // enforce integer

	info, err := models.SetApplicationsSubmitted(snap.ID, count, s.Db)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":                true,
		"applications_submitted": info.ApplicationsSubmitted,
		"message":                "applications count updated successfully",
	})
}
