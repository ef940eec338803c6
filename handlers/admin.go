// handlers/admin.go
package handlers

import (
	"campus-community-system/middleware"
	"campus-community-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAdminRoutes(app *fiber.App, db *gorm.DB, adminService *services.AdminService) {
	admin := app.Group("/admin", middleware.RequireAuth(db), middleware.RequirePermission("roles:assign"))

	admin.Get("/users", adminService.ListUsers)
	admin.Patch("/users/:userId/roles", adminService.AssignRole)
	admin.Get("/reports", adminService.ListReports)
	admin.Delete("/reports/:id", adminService.DismissReport)
}
