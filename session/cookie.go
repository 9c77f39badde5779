package session

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const CookieName = "scholarseek_session"

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	Secure   bool
	SameSite string
	Domain   string
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == "" {
		o.SameSite = fiber.CookieSameSiteLaxMode
	}
	return o
}

// SetCookie issues the session cookie. HttpOnly is unconditional; the token
// is never readable from scripts.
func SetCookie(c *fiber.Ctx, sessionID string, expiresAt time.Time, opts CookieOptions) {
	opts = opts.normalize()
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     opts.Path,
		Domain:   opts.Domain,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearCookie removes the session cookie from the client.
func ClearCookie(c *fiber.Ctx, opts CookieOptions) {
	opts = opts.normalize()
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
