package users

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/scholarseek/scholarseek/apperr"
	gateway "github.com/scholarseek/scholarseek/apigateway"
	"github.com/scholarseek/scholarseek/models"
)

type signupRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Mobile    string `json:"mobile" binding:"required"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
}

// Signup registers a local-auth user, eagerly creates the empty profile
// extension and starts a user session.
func (s *Service) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := bindJSON(c, &req); err != nil {
		return s.fail(c, err)
	}

	mobile := strings.TrimSpace(req.Mobile)
	var existing models.User
	err := s.Db.Where("email = ? OR mobile = ?", strings.ToLower(strings.TrimSpace(req.Email)), mobile).
		First(&existing).Error
	if err == nil {
		return s.fail(c, apperr.ErrDuplicateField)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}

	user := models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		DisplayEmail: req.Email,
		Mobile:       &mobile,
		AuthMethod:   models.AuthMethodLocal,
	}
	user.Normalize()
	if err := user.SetPassword(req.Password); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrInternal, ""))
	}
	if err := s.Db.Create(&user).Error; err != nil {
		if models.IsDuplicateErr(err) {
			return s.fail(c, apperr.ErrDuplicateField)
		}
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}

	// Two-step saga: the extension record is created eagerly but a failure
	// here doesn't undo the signup. Read paths repair a missing record.
	if _, err := models.EnsureUserInfo(user.ID, s.Db); err != nil {
		s.Logger.WithError(err).WithField("user_id", user.ID).Warn("profile extension creation failed")
	}

	if err := s.Sessions.IssueUser(c, user.Snapshot()); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrInternal, ""))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"user": user.Snapshot()})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a local user. Unknown emails and wrong passwords get
// the same answer so accounts can't be enumerated.
func (s *Service) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return s.fail(c, err)
	}

	user, err := models.GetUserByEmail(req.Email, s.Db)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.fail(c, apperr.ErrInvalidCredentials)
		}
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	if user.AuthMethod == models.AuthMethodGoogle {
		return s.fail(c, apperr.ErrWrongAuthMethod)
	}
	if !user.VerifyPassword(req.Password) {
		return s.fail(c, apperr.ErrInvalidCredentials)
	}

	if err := s.Sessions.IssueUser(c, user.Snapshot()); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrInternal, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": user.Snapshot()})
}

// Logout clears the session regardless of which principal held it.
func (s *Service) Logout(c *fiber.Ctx) error {
	if err := s.Sessions.Clear(c); err != nil {
		s.Logger.WithError(err).Warn("session clear failed")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

// Me resolves the session snapshot back to the full identity. A snapshot
// whose row no longer exists is treated as anonymous, never an error.
func (s *Service) Me(c *fiber.Ctx) error {
	snap, ok := gateway.CurrentUser(c)
	if !ok {
		return s.fail(c, apperr.ErrUnauthenticated)
	}
	user, err := models.GetUserByID(snap.ID, s.Db)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = s.Sessions.Clear(c)
			return s.fail(c, apperr.ErrUnauthenticated)
		}
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": user})
}
