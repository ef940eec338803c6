// handlers/auth.go
package handlers

import (
	"campus-community-system/middleware"
	"campus-community-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService) {
	app.Post("/auth/register", authService.Register)
	app.Post("/auth/login", authService.Login)
	app.Get("/campuses", authService.GetCampuses)

	secured := app.Group("/", middleware.RequireAuth(db))
	secured.Get("/me", authService.Me)
}
