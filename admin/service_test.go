package admin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	gateway "github.com/scholarseek/scholarseek/apigateway"
	"github.com/scholarseek/scholarseek/models"
	"github.com/scholarseek/scholarseek/session"
	"github.com/scholarseek/scholarseek/store"
)

type testEnv struct {
	Router   *fiber.App
	Service  *Service
	Sessions *session.Manager
	DB       *gorm.DB
	Store    *store.Store
}

// newTestEnv runs the real embedded migrations over a throwaway sqlite file
// so the sqlx stats queries see the same schema production gets.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := store.OpenFromConfig("", dbPath, "sqlite")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Migrate(ctx, database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ormDb, err := database.Gorm(false)
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}

	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, session.CookieOptions{})
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	service := &Service{
		Db:       ormDb,
		Store:    store.New(database),
		Sessions: sessions,
		Auth:     gateway.AdminAuthConfig{Email: "admin@example.com", Password: "sekrit"},
		Logger:   logger,
	}

	r := fiber.New()
	r.Use(gateway.ExposeCurrentUser(sessions))
	adminGroup := r.Group("/admin")
	adminGroup.Post("/login", gateway.ForbidAdminContext(), service.Login)
	adminGroup.Use(gateway.RequireAdmin())
	adminGroup.Post("/logout", service.Logout)
	adminGroup.Get("/dashboard", service.Dashboard)
	adminGroup.Get("/scholarships", service.ListScholarships)
	adminGroup.Post("/scholarships", service.CreateScholarship)
	adminGroup.Put("/scholarships/:id", service.UpdateScholarship)
	adminGroup.Delete("/scholarships/:id", service.DeleteScholarship)

	return &testEnv{Router: r, Service: service, Sessions: sessions, DB: ormDb, Store: service.Store}
}

func (e *testEnv) do(t *testing.T, method, path, cookie string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookie})
	}
	resp, err := e.Router.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	resp := e.do(t, "POST", "/admin/login", "", map[string]string{
		"email": "admin@example.com", "password": "sekrit",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin login: expected 200, got %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("no session cookie from admin login")
	return ""
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode body: %v (%s)", err, raw)
	}
	return out
}

func scholarshipBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"type":        "government",
		"amount":      50000,
		"about":       "about",
		"eligibility": "open",
		"deadline":    time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
		"benefits":    "tuition",
		"region":      "national",
		"documents":   "id card",
		"apply_link":  "https://example.com/apply",
	}
}

func TestService_Login(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "POST", "/admin/login", "", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", resp.StatusCode)
	}

	cookie := env.login(t)
	resp = env.do(t, "GET", "/admin/dashboard", cookie, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("admin session rejected: %d", resp.StatusCode)
	}
}

func TestService_Login_Unconfigured(t *testing.T) {
	env := newTestEnv(t)
	env.Service.Auth = gateway.AdminAuthConfig{}

	resp := env.do(t, "POST", "/admin/login", "", map[string]string{
		"email": "", "password": "",
	})
	if resp.StatusCode == http.StatusOK {
		t.Error("unconfigured admin area accepted a login")
	}
}

func TestService_RoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "GET", "/admin/scholarships", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", resp.StatusCode)
	}
}

func TestService_ScholarshipCRUD(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	resp := env.do(t, "POST", "/admin/scholarships", cookie, scholarshipBody("STEM Grant"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created, _ := decodeBody(t, resp)["scholarship"].(map[string]interface{})
	id := created["ID"]
	if id == nil {
		// gorm.Model serializes as ID; fall back for json-tagged variants.
		id = created["id"]
	}
	idNum, _ := id.(float64)
	if idNum == 0 {
		t.Fatalf("created scholarship has no id: %v", created)
	}

	resp = env.do(t, "GET", "/admin/scholarships", cookie, nil)
	body := decodeBody(t, resp)
	list, _ := body["scholarships"].([]interface{})
	if len(list) != 1 {
		t.Fatalf("expected 1 scholarship, got %d", len(list))
	}

	update := scholarshipBody("STEM Grant 2026")
	resp = env.do(t, "PUT", fmt.Sprintf("/admin/scholarships/%.0f", idNum), cookie, update)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	got, err := models.GetScholarship(uint(idNum), env.DB)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Title != "STEM Grant 2026" {
		t.Errorf("title not updated: %q", got.Title)
	}

	resp = env.do(t, "DELETE", fmt.Sprintf("/admin/scholarships/%.0f", idNum), cookie, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	if _, err := models.GetScholarship(uint(idNum), env.DB); err == nil {
		t.Error("scholarship still readable after delete")
	}

	resp = env.do(t, "DELETE", fmt.Sprintf("/admin/scholarships/%.0f", idNum), cookie, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("double delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestService_CreateScholarship_Validation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	body := scholarshipBody("Bad Type")
	body["type"] = "imaginary"
	resp := env.do(t, "POST", "/admin/scholarships", cookie, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad enum: expected 400, got %d", resp.StatusCode)
	}

	body = scholarshipBody("Bad Link")
	body["apply_link"] = "not-a-url"
	resp = env.do(t, "POST", "/admin/scholarships", cookie, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad url: expected 400, got %d", resp.StatusCode)
	}
}

func TestService_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	user := models.User{FirstName: "Jane", LastName: "Doe", DisplayEmail: "jane@example.com"}
	user.Normalize()
	if err := env.DB.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	env.do(t, "POST", "/admin/scholarships", cookie, scholarshipBody("One"))
	env.do(t, "POST", "/admin/scholarships", cookie, scholarshipBody("Two"))

	resp := env.do(t, "GET", "/admin/dashboard", cookie, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	stats, _ := decodeBody(t, resp)["stats"].(map[string]interface{})
	if stats["users"] != float64(1) {
		t.Errorf("expected 1 user, got %v", stats["users"])
	}
	if stats["scholarships"] != float64(2) {
		t.Errorf("expected 2 scholarships, got %v", stats["scholarships"])
	}
	if stats["recent_signups"] != float64(1) {
		t.Errorf("expected 1 recent signup, got %v", stats["recent_signups"])
	}
}
