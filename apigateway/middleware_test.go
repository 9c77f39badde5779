package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/scholarseek/scholarseek/models"
	"github.com/scholarseek/scholarseek/session"
)

type gateEnv struct {
	App      *fiber.App
	Sessions *session.Manager
}

func newGateEnv(t *testing.T) *gateEnv {
	t.Helper()
	m := session.NewManager(session.NewMemoryStore(), time.Hour, session.CookieOptions{})

	app := fiber.New()
	app.Use(ExposeCurrentUser(m))
	app.Post("/seed-user", func(c *fiber.Ctx) error {
		return m.IssueUser(c, models.Snapshot{ID: 1, FirstName: "Jane", Email: "jane@example.com"})
	})
	app.Post("/seed-admin", func(c *fiber.Ctx) error {
		return m.IssueAdmin(c, "admin")
	})
	app.Get("/user-only", RequireUser(), func(c *fiber.Ctx) error {
		snap, _ := CurrentUser(c)
		return c.JSON(fiber.Map{"id": snap.ID})
	})
	app.Get("/admin-only", RequireAdmin(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Post("/guest-only", ForbidUserContext(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Post("/admin-guest-only", ForbidAdminContext(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return &gateEnv{App: app, Sessions: m}
}

func (e *gateEnv) login(t *testing.T, path string) string {
	t.Helper()
	resp, err := e.App.Test(httptest.NewRequest("POST", path, nil))
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	t.Fatal("no session cookie issued")
	return ""
}

func (e *gateEnv) get(t *testing.T, method, path, cookie string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookie})
	}
	resp, err := e.App.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func errCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error payload: %v (%s)", err, body)
	}
	return payload.Code
}

func TestRequireUser(t *testing.T) {
	env := newGateEnv(t)

	resp := env.get(t, "GET", "/user-only", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", resp.StatusCode)
	}
	if code := errCode(t, resp); code != "unauthenticated" {
		t.Errorf("anonymous: expected unauthenticated, got %q", code)
	}

	userCookie := env.login(t, "/seed-user")
	resp = env.get(t, "GET", "/user-only", userCookie)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("user: expected 200, got %d", resp.StatusCode)
	}

	// An admin session on a user route is a crossover, not a missing login.
	adminCookie := env.login(t, "/seed-admin")
	resp = env.get(t, "GET", "/user-only", adminCookie)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("admin crossover: expected 403, got %d", resp.StatusCode)
	}
	if code := errCode(t, resp); code != "wrong_principal" {
		t.Errorf("admin crossover: expected wrong_principal, got %q", code)
	}
}

func TestRequireAdmin(t *testing.T) {
	env := newGateEnv(t)

	resp := env.get(t, "GET", "/admin-only", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", resp.StatusCode)
	}

	userCookie := env.login(t, "/seed-user")
	resp = env.get(t, "GET", "/admin-only", userCookie)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("user crossover: expected 403, got %d", resp.StatusCode)
	}

	adminCookie := env.login(t, "/seed-admin")
	resp = env.get(t, "GET", "/admin-only", adminCookie)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", resp.StatusCode)
	}
}

func TestForbidUserContext(t *testing.T) {
	env := newGateEnv(t)

	resp := env.get(t, "POST", "/guest-only", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("guest: expected 200, got %d", resp.StatusCode)
	}

	userCookie := env.login(t, "/seed-user")
	resp = env.get(t, "POST", "/guest-only", userCookie)
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("user: expected 303 redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/dashboard" {
		t.Errorf("user: expected /dashboard redirect, got %q", loc)
	}

	adminCookie := env.login(t, "/seed-admin")
	resp = env.get(t, "POST", "/guest-only", adminCookie)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("admin: expected 403, got %d", resp.StatusCode)
	}
}

func TestForbidAdminContext(t *testing.T) {
	env := newGateEnv(t)

	adminCookie := env.login(t, "/seed-admin")
	resp := env.get(t, "POST", "/admin-guest-only", adminCookie)
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("admin: expected 303 redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/admin/dashboard" {
		t.Errorf("admin: expected /admin/dashboard redirect, got %q", loc)
	}

	userCookie := env.login(t, "/seed-user")
	resp = env.get(t, "POST", "/admin-guest-only", userCookie)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("user: expected 403, got %d", resp.StatusCode)
	}
}

func TestAdminAuthConfig(t *testing.T) {
	unconfigured := AdminAuthConfig{}
	if unconfigured.Configured() {
		t.Error("empty config reported as configured")
	}
	if unconfigured.Check("", "") {
		t.Error("unconfigured admin must reject everyone, even empty input")
	}

	cfg := AdminAuthConfig{Email: "admin@example.com", Password: "sekrit"}
	if !cfg.Check("admin@example.com", "sekrit") {
		t.Error("correct admin credentials rejected")
	}
	if cfg.Check("admin@example.com", "wrong") {
		t.Error("wrong admin password accepted")
	}
	if cfg.Check("other@example.com", "sekrit") {
		t.Error("wrong admin email accepted")
	}
}
