// handlers/news.go
package handlers

import (
	"campus-community-system/middleware"
	"campus-community-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupNewsRoutes(app *fiber.App, db *gorm.DB, newsService *services.NewsService) {
	app.Get("/themes", newsService.ListThemes)

	staff := app.Group("/", middleware.RequireAuth(db), middleware.RequirePermission("publications:moderate"))
	staff.Post("/news", newsService.CreateInstitutionalNews)
	staff.Delete("/news/:id", newsService.DeleteInstitutionalNews)
	staff.Post("/themes", newsService.CreateTheme)
}
