// Package users holds the user-facing handlers: signup, login, Google
// OAuth, profile, bookmarks and the public scholarship catalog.
package users

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/scholarseek/scholarseek/apperr"
	"github.com/scholarseek/scholarseek/models"
	"github.com/scholarseek/scholarseek/session"
)

// Service carries the shared dependencies for user handlers.
type Service struct {
	Db       *gorm.DB
	Sessions *session.Manager
	Config   models.Config
	Logger   *logrus.Logger
}

func bindJSON(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return apperr.ErrEmptyBody
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return apperr.Wrap(err, apperr.ErrBadRequest, "malformed json body")
	}
	if err := models.ValidateStruct(dst); err != nil {
		return apperr.Wrap(err, apperr.ErrValidation, err.Error())
	}
	return nil
}

func parseJSON(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return apperr.ErrEmptyBody
	}
	return json.Unmarshal(c.Body(), dst)
}

// fail logs the underlying cause and answers with the typed payload; wrapped
// causes never reach the client.
func (s *Service) fail(c *fiber.Ctx, err error) error {
	if e, ok := apperr.As(err); ok && e.Err != nil {
		s.Logger.WithError(e.Err).WithField("code", e.Code).Warn("request failed")
	}
	return c.Status(apperr.Status(err)).JSON(apperr.Payload(err))
}
