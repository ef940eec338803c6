// handlers/publication.go
package handlers

import (
	"campus-community-system/middleware"
	"campus-community-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupPublicationRoutes(app *fiber.App, db *gorm.DB, publicationService *services.PublicationService) {
	app.Get("/publications/:id", middleware.OptionalAuth(db), publicationService.GetPublication)
	app.Post("/publications/:id/report", middleware.OptionalAuth(db), publicationService.ReportPublication)

	secured := app.Group("/publications", middleware.RequireAuth(db))
	secured.Post("/", middleware.RequirePermission("publications:create"), publicationService.CreatePublication)
	secured.Put("/:id", publicationService.UpdatePublication)
	secured.Patch("/:id", publicationService.UpdatePublication)
	secured.Delete("/:id", publicationService.DeletePublication)
}
