// handlers/challenge.go
package handlers

import (
	"campus-community-system/middleware"
	"campus-community-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupChallengeRoutes(app *fiber.App, db *gorm.DB, challengeService *services.ChallengeService) {
	secured := app.Group("/challenges", middleware.RequireAuth(db))

	secured.Get("/", middleware.RequirePermission("challenges:read"), challengeService.ListChallenges)
	secured.Post("/", middleware.RequirePermission("challenges:create"), challengeService.CreateChallenge)

	// Moderation routes
	secured.Get("/pending", middleware.RequirePermission("challenges:moderate"), challengeService.ListPendingChallenges)
	secured.Patch("/:id/moderate", middleware.RequirePermission("challenges:moderate"), challengeService.ModerateChallenge)
	secured.Post("/:id/winners", middleware.RequirePermission("challenges:moderate"), challengeService.SetWinners)
	secured.Get("/:id/judging", middleware.RequirePermission("challenges:moderate"), challengeService.GetJudgingBundle)

	// Participation routes
	secured.Post("/:id/register", middleware.RequirePermission("challenges:participate"), challengeService.RegisterForChallenge)
	secured.Post("/:id/submission", middleware.RequirePermission("challenges:submit"), challengeService.SubmitProof)
	secured.Post("/:id/attachments", middleware.RequirePermission("challenges:submit"), challengeService.UploadAttachment)
}
