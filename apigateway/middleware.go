package gateway

import (
	"github.com/gofiber/fiber/v2"
	"github.com/scholarseek/scholarseek/apperr"
	"github.com/scholarseek/scholarseek/models"
	"github.com/scholarseek/scholarseek/session"
)

const (
	localsPrincipal   = "principal"
	localsCurrentUser = "current_user"
)

// ExposeCurrentUser resolves the session once per request and attaches the
// principal (and the user snapshot, when present) for downstream handlers.
// It never blocks a request.
func ExposeCurrentUser(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := m.Current(c)
		c.Locals(localsPrincipal, p)
		if p.IsUser() {
			c.Locals(localsCurrentUser, *p.User)
		}
		return c.Next()
	}
}

// CurrentPrincipal returns the principal attached by ExposeCurrentUser.
func CurrentPrincipal(c *fiber.Ctx) session.Principal {
	if v := c.Locals(localsPrincipal); v != nil {
		if p, ok := v.(session.Principal); ok {
			return p
		}
	}
	return session.Anonymous
}

// CurrentUser returns the session's user snapshot, or false for anonymous
// and admin sessions.
func CurrentUser(c *fiber.Ctx) (models.Snapshot, bool) {
	if v := c.Locals(localsCurrentUser); v != nil {
		if snap, ok := v.(models.Snapshot); ok {
			return snap, true
		}
	}
	return models.Snapshot{}, false
}

// RequireUser admits only user sessions. Anonymous requests get
// unauthenticated; an admin session on a user route is a principal
// crossover, not a missing login.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := CurrentPrincipal(c)
		switch {
		case p.IsUser():
			return c.Next()
		case p.IsAdmin():
			return reject(c, apperr.ErrWrongPrincipal)
		default:
			return reject(c, apperr.ErrUnauthenticated)
		}
	}
}

// RequireAdmin admits only admin sessions.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := CurrentPrincipal(c)
		switch {
		case p.IsAdmin():
			return c.Next()
		case p.IsUser():
			return reject(c, apperr.ErrWrongPrincipal)
		default:
			return reject(c, apperr.ErrUnauthenticated)
		}
	}
}

// ForbidUserContext guards login/signup entry points. A logged-in user is
// bounced to the dashboard; an admin must log out before using user pages.
func ForbidUserContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := CurrentPrincipal(c)
		switch {
		case p.IsUser():
			return c.Redirect("/dashboard", fiber.StatusSeeOther)
		case p.IsAdmin():
			return reject(c, apperr.ErrWrongPrincipal)
		default:
			return c.Next()
		}
	}
}

// ForbidAdminContext guards the admin login entry point, symmetric to
// ForbidUserContext.
func ForbidAdminContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := CurrentPrincipal(c)
		switch {
		case p.IsAdmin():
			return c.Redirect("/admin/dashboard", fiber.StatusSeeOther)
		case p.IsUser():
			return reject(c, apperr.ErrWrongPrincipal)
		default:
			return c.Next()
		}
	}
}

func reject(c *fiber.Ctx, err *apperr.Error) error {
	return c.Status(apperr.Status(err)).JSON(apperr.Payload(err))
}
