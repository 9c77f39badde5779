// Package session holds the cookie-addressed server-side session. A session
// carries exactly one principal: anonymous, a user snapshot, or an admin
// role. The tagged union makes a simultaneous user+admin session
// unrepresentable; switching roles requires an explicit logout.
package session

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/scholarseek/scholarseek/models"
)

type Kind string

const (
	KindAnonymous Kind = ""
	KindUser      Kind = "user"
	KindAdmin     Kind = "admin"
)

// Principal is the authenticated role attached to a session.
type Principal struct {
	Kind      Kind             `json:"kind"`
	User      *models.Snapshot `json:"user,omitempty"`
	AdminRole string           `json:"admin_role,omitempty"`
}

func (p Principal) IsAnonymous() bool { return p.Kind == KindAnonymous }
func (p Principal) IsUser() bool      { return p.Kind == KindUser && p.User != nil }
func (p Principal) IsAdmin() bool     { return p.Kind == KindAdmin }

var Anonymous = Principal{Kind: KindAnonymous}

// Session is the persisted entry keyed by the cookie-delivered token.
type Session struct {
	SessionID string    `json:"session_id"`
	Principal Principal `json:"principal"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store defines how sessions are stored and retrieved. Implementations must
// treat a missing session as (nil, nil), not an error.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}

// Manager issues, resolves and clears sessions for fiber handlers.
type Manager struct {
	Store  Store
	TTL    time.Duration
	Cookie CookieOptions
}

func NewManager(store Store, ttl time.Duration, cookie CookieOptions) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{Store: store, TTL: ttl, Cookie: cookie}
}

// IssueUser starts a fresh user session holding the minimal identity
// snapshot and delivers the token via cookie.
func (m *Manager) IssueUser(c *fiber.Ctx, snap models.Snapshot) error {
	return m.issue(c, Principal{Kind: KindUser, User: &snap})
}

// IssueAdmin starts a fresh admin session.
func (m *Manager) IssueAdmin(c *fiber.Ctx, role string) error {
	return m.issue(c, Principal{Kind: KindAdmin, AdminRole: role})
}

func (m *Manager) issue(c *fiber.Ctx, p Principal) error {
	id, err := GenerateID()
	if err != nil {
		return err
	}
	s := Session{
		SessionID: id,
		Principal: p,
		ExpiresAt: time.Now().Add(m.TTL),
	}
	if err := m.Store.Create(c.UserContext(), s); err != nil {
		return err
	}
	SetCookie(c, id, s.ExpiresAt, m.Cookie)
	return nil
}

// Current resolves the request's cookie to a principal. Any failure — no
// cookie, expired entry, store miss — degrades to anonymous, never an error.
func (m *Manager) Current(c *fiber.Ctx) Principal {
	s := m.lookup(c)
	if s == nil {
		return Anonymous
	}
	return s.Principal
}

func (m *Manager) lookup(c *fiber.Ctx) *Session {
	token := c.Cookies(CookieName)
	if token == "" {
		return nil
	}
	s, err := m.Store.Get(c.UserContext(), token)
	if err != nil || s == nil {
		return nil
	}
	if !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt) {
		return nil
	}
	return s
}

// RefreshUser rewrites the stored snapshot after an identity mutation so the
// session does not serve stale profile data. A non-user session is left
// untouched.
func (m *Manager) RefreshUser(c *fiber.Ctx, snap models.Snapshot) error {
	s := m.lookup(c)
	if s == nil || s.Principal.Kind != KindUser {
		return nil
	}
	s.Principal.User = &snap
	return m.Store.Update(c.UserContext(), *s)
}

// Clear ends the session and expires the cookie.
func (m *Manager) Clear(c *fiber.Ctx) error {
	token := c.Cookies(CookieName)
	ClearCookie(c, m.Cookie)
	if token == "" {
		return nil
	}
	return m.Store.Delete(c.UserContext(), token)
}
