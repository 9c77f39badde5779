package main

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gateway "github.com/scholarseek/scholarseek/apigateway"
)

// GetMainEngine function responsible for getting all of our routes to be delivered for fiber
func GetMainEngine() *fiber.App {
	route := fiber.New()
	route.Use(gateway.Instrumentation())
	route.Use(gateway.RequestID())
	route.Use(gateway.RequestLogger(logrusLogger, logSampling))
	route.Use(gateway.ExposeCurrentUser(sessions))

	route.Get("/healthz", func(c *fiber.Ctx) error {
		if err := database.DB.PingContext(c.UserContext()); err != nil {
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	route.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Catalog browsing is public; the handlers enrich responses for
	// signed-in users on their own.
	route.Get("/scholarships", userService.ListScholarships)
	route.Get("/scholarships/:id", userService.GetScholarship)

	// Guest-only entry points.
	route.Post("/signup", gateway.ForbidUserContext(), userService.Signup)
	route.Post("/login", gateway.ForbidUserContext(), userService.Login)
	route.Post("/auth/google", gateway.ForbidUserContext(), userService.GoogleAuth)

	authed := route.Group("", gateway.RequireUser())
	{
		authed.Post("/logout", userService.Logout)
		authed.Get("/me", userService.Me)
		authed.Get("/dashboard", userService.Dashboard)
		authed.Get("/profile", userService.Profile)
		authed.Post("/profile", userService.UpdateProfile)
		authed.Get("/saved-scholarships", userService.SavedScholarships)
		authed.Post("/scholarship/:id/bookmark", userService.ToggleBookmark)
		authed.Post("/applications-submitted", userService.UpdateApplicationsSubmitted)
	}

	adminGroup := route.Group("/admin")
	{
		adminGroup.Post("/login", gateway.ForbidAdminContext(), adminService.Login)

		adminGroup.Use(gateway.RequireAdmin())
		adminGroup.Post("/logout", adminService.Logout)
		adminGroup.Get("/dashboard", adminService.Dashboard)
		adminGroup.Get("/scholarships", adminService.ListScholarships)
		adminGroup.Post("/scholarships", adminService.CreateScholarship)
		adminGroup.Put("/scholarships/:id", adminService.UpdateScholarship)
		adminGroup.Delete("/scholarships/:id", adminService.DeleteScholarship)
	}

	return route
}
