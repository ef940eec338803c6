// handlers/feed.go
package handlers

import (
	"campus-community-system/middleware"
	"campus-community-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupFeedRoutes(app *fiber.App, db *gorm.DB, feedService *services.FeedService) {
	// Anonymous viewers get the PUBLIC_ONLY feed; a valid token unlocks
	// the campus and following filters.
	app.Get("/feed", middleware.OptionalAuth(db), feedService.GetFeed)
}
