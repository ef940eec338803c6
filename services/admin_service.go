package services

import (
	"errors"
	"fmt"

	"campus-community-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AdminService struct {
	DB *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{DB: db}
}

type assignRoleRequest struct {
	Role    string `json:"role"`
	Granted bool   `json:"granted"`
}

// Roles an admin may grant or revoke. The base role derived from the email
// domain is never touched here.
var assignableRoles = map[string]bool{
	"bde":   true,
	"staff": true,
}

// AssignRole toggles an assignable role on a user.
func (s *AdminService) AssignRole(c *fiber.Ctx) error {
	var req assignRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	if !assignableRoles[req.Role] {
		return fail(c, fmt.Errorf("%w: role %q is not assignable", ErrValidation, req.Role))
	}

	userID := c.Params("userId")

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user not found", ErrNotFound)
			}
			return err
		}
		var role models.Role
		if err := tx.First(&role, "code = ?", req.Role).Error; err != nil {
			return err
		}

		assoc := tx.Model(&user).Association("Roles")
		if req.Granted {
			return assoc.Append(&role)
		}
		return assoc.Delete(&role)
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"userId": userID, "role": req.Role, "granted": req.Granted})
}

func (s *AdminService) ListUsers(c *fiber.Ctx) error {
	var users []models.User
	err := s.DB.Preload("Roles").Order("created_at DESC").Limit(200).Find(&users).Error
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

func (s *AdminService) ListReports(c *fiber.Ctx) error {
	var reports []models.PublicationReport
	err := s.DB.Order("created_at DESC").Limit(200).Find(&reports).Error
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(reports)
}

func (s *AdminService) DismissReport(c *fiber.Ctx) error {
	result := s.DB.Delete(&models.PublicationReport{}, "id = ?", c.Params("id"))
	if result.Error != nil {
		return fail(c, result.Error)
	}
	if result.RowsAffected == 0 {
		return fail(c, fmt.Errorf("%w: report not found", ErrNotFound))
	}
	return c.JSON(fiber.Map{"dismissed": true})
}
