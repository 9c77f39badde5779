package users

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	gateway "github.com/scholarseek/scholarseek/apigateway"
	"github.com/scholarseek/scholarseek/models"
	"github.com/scholarseek/scholarseek/session"
)

type testEnv struct {
	Router   *fiber.App
	Service  *Service
	Sessions *session.Manager
	DB       *gorm.DB
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserInfo{},
		&models.Bookmark{},
		&models.Scholarship{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, models.Config{})
}

func newTestEnvWithConfig(t *testing.T, cfg models.Config) *testEnv {
	t.Helper()
	db := newTestDB(t)
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, session.CookieOptions{})

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	service := &Service{Db: db, Sessions: sessions, Config: cfg, Logger: logger}

	r := fiber.New()
	r.Use(gateway.ExposeCurrentUser(sessions))
	r.Get("/scholarships", service.ListScholarships)
	r.Get("/scholarships/:id", service.GetScholarship)
	r.Post("/signup", gateway.ForbidUserContext(), service.Signup)
	r.Post("/login", gateway.ForbidUserContext(), service.Login)
	r.Post("/auth/google", gateway.ForbidUserContext(), service.GoogleAuth)

	authed := r.Group("", gateway.RequireUser())
	authed.Post("/logout", service.Logout)
	authed.Get("/me", service.Me)
	authed.Get("/dashboard", service.Dashboard)
	authed.Get("/profile", service.Profile)
	authed.Post("/profile", service.UpdateProfile)
	authed.Get("/saved-scholarships", service.SavedScholarships)
	authed.Post("/scholarship/:id/bookmark", service.ToggleBookmark)
	authed.Post("/applications-submitted", service.UpdateApplicationsSubmitted)

	return &testEnv{Router: r, Service: service, Sessions: sessions, DB: db}
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

func sessionCookie(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("no session cookie in response")
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

func signupBody(email, mobile string) map[string]interface{} {
	return map[string]interface{}{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      email,
		"mobile":     mobile,
		"password":   "Me@Passw0rd!",
	}
}

func seedScholarship(t *testing.T, db *gorm.DB, title string) models.Scholarship {
	t.Helper()
	s := models.Scholarship{
		Title:       title,
		Type:        "government",
		Amount:      50000,
		About:       "about",
		Eligibility: "open",
		Deadline:    time.Now().AddDate(0, 1, 0),
		Benefits:    "tuition",
		Region:      "national",
		Documents:   "id card",
		ApplyLink:   "https://example.com/apply",
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create scholarship %s: %v", title, err)
	}
	return s
}
