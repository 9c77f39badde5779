package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/scholarseek/scholarseek/apperr"
	gateway "github.com/scholarseek/scholarseek/apigateway"
	"github.com/scholarseek/scholarseek/models"
)

// ListScholarships is the public catalog. When a user session is present
// the response also marks which entries are bookmarked.
func (s *Service) ListScholarships(c *fiber.Ctx) error {
	scholarships, err := models.ListScholarships(s.Db)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}

	resp := fiber.Map{"scholarships": scholarships}
	if snap, ok := gateway.CurrentUser(c); ok {
		saved, err := models.SavedScholarships(snap.ID, s.Db)
		if err == nil {
			ids := make([]uint, 0, len(saved))
			for _, sch := range saved {
				ids = append(ids, sch.ID)
			}
			resp["saved_ids"] = ids
		}
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// GetScholarship returns one catalog entry.
func (s *Service) GetScholarship(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrValidation, "invalid scholarship id"))
	}
	scholarship, err := models.GetScholarship(uint(id), s.Db)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.fail(c, apperr.ErrNotFound)
		}
		return s.fail(c, apperr.Wrap(err, apperr.ErrDatabase, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"scholarship": scholarship})
}
