// handlers/profile.go
package handlers

import (
	"campus-community-system/middleware"
	"campus-community-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupProfileRoutes(app *fiber.App, db *gorm.DB, profileService *services.ProfileService) {
	app.Get("/profiles/:userId", profileService.GetProfile)

	secured := app.Group("/", middleware.RequireAuth(db))
	secured.Get("/profile", profileService.GetMyProfile)
	secured.Patch("/profile", profileService.UpdateMyProfile)
	secured.Post("/profile/avatar", profileService.UploadAvatar)

	secured.Post("/users/:userId/follow", profileService.FollowUser)
	secured.Delete("/users/:userId/follow", profileService.UnfollowUser)
}
