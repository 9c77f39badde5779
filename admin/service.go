// Package admin holds the curated-catalog handlers. Admins authenticate
// against a single configured credential pair, not rows in the user table.
package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/scholarseek/scholarseek/apperr"
	gateway "github.com/scholarseek/scholarseek/apigateway"
	"github.com/scholarseek/scholarseek/models"
	"github.com/scholarseek/scholarseek/session"
	"github.com/scholarseek/scholarseek/store"
)

const adminRole = "admin"

type Service struct {
	Db       *gorm.DB
	Store    *store.Store
	Sessions *session.Manager
	Auth     gateway.AdminAuthConfig
	Logger   *logrus.Logger
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login starts an admin session. Failures are as generic as user login
// failures; an unconfigured admin area rejects everyone.
func (s *Service) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrBadRequest, "malformed json body"))
	}
	if err := models.ValidateStruct(&req); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrValidation, err.Error()))
	}
	if !s.Auth.Check(req.Email, req.Password) {
		return s.fail(c, apperr.ErrInvalidCredentials)
	}
	if err := s.Sessions.IssueAdmin(c, adminRole); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrInternal, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "admin logged in"})
}

// Logout ends the admin session.
func (s *Service) Logout(c *fiber.Ctx) error {
	if err := s.Sessions.Clear(c); err != nil {
		s.Logger.WithError(err).Warn("session clear failed")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

// Dashboard serves the aggregate counts for the admin landing page.
func (s *Service) Dashboard(c *fiber.Ctx) error {
	stats, err := s.Store.DashboardStats(c.UserContext())
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"stats": stats})
}

// ListScholarships returns the whole catalog for curation.
func (s *Service) ListScholarships(c *fiber.Ctx) error {
	scholarships, err := models.ListScholarships(s.Db)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"scholarships": scholarships})
}

// CreateScholarship adds a catalog entry.
func (s *Service) CreateScholarship(c *fiber.Ctx) error {
	var sch models.Scholarship
	if err := json.Unmarshal(c.Body(), &sch); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrBadRequest, "malformed json body"))
	}
	if err := models.ValidateStruct(&sch); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrValidation, err.Error()))
	}
	if err := s.Db.Create(&sch).Error; err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"scholarship": sch})
}

// UpdateScholarship replaces the editable fields of a catalog entry.
func (s *Service) UpdateScholarship(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrValidation, "invalid scholarship id"))
	}
	existing, err := models.GetScholarship(uint(id), s.Db)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.fail(c, apperr.ErrNotFound)
		}
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}

	var sch models.Scholarship
	if err := json.Unmarshal(c.Body(), &sch); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrBadRequest, "malformed json body"))
	}
	if err := models.ValidateStruct(&sch); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrValidation, err.Error()))
	}
	sch.ID = existing.ID
	sch.CreatedAt = existing.CreatedAt
	if err := s.Db.Save(&sch).Error; err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"scholarship": sch})
}

// DeleteScholarship soft-deletes a catalog entry.
func (s *Service) DeleteScholarship(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrValidation, "invalid scholarship id"))
	}
	res := s.Db.Delete(&models.Scholarship{}, uint(id))
	if res.Error != nil {
		return s.fail(c, apperr.Wrap(res.Error, apperr.ErrDatabase, ""))
	}
	if res.RowsAffected == 0 {
		return s.fail(c, apperr.ErrNotFound)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "scholarship deleted"})
}

func (s *Service) fail(c *fiber.Ctx, err error) error {
	if e, ok := apperr.As(err); ok && e.Err != nil {
		s.Logger.WithError(e.Err).WithField("code", e.Code).Warn("admin request failed")
	}
	return c.Status(apperr.Status(err)).JSON(apperr.Payload(err))
}
