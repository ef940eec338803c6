package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"campus-community-system/middleware"
	"campus-community-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

const bcryptCost = 12

var roleLabelCaser = cases.Title(language.French)

type AuthService struct {
	DB *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{DB: db}
}

type registerRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName string  `json:"displayName"`
	Role        string  `json:"role"`
	CampusID    *string `json:"campusId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// roleFromEmail infers the default role from the email domain when the
// client does not pick one explicitly.
func roleFromEmail(email string) string {
	e := strings.ToLower(strings.TrimSpace(email))
	if strings.HasSuffix(e, "@mediaschool.me") {
		return "student"
	}
	if strings.HasSuffix(e, "@mediaschool.eu") {
		return "staff"
	}
	return "external"
}

func signAccessToken(userID string) (string, error) {
	ttlHours := 168 // 7 days
	if v := os.Getenv("JWT_EXPIRES_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttlHours = n
		}
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "campus-secret-change-in-production"
	}

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(ttlHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Register creates a user, hashes the password and grants the default role.
func (s *AuthService) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return fail(c, fmt.Errorf("%w: email invalid", ErrValidation))
	}
	if len(req.Password) < 6 {
		return fail(c, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation))
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if len(displayName) < 2 {
		return fail(c, fmt.Errorf("%w: displayName must be at least 2 characters", ErrValidation))
	}

	roleCode := req.Role
	switch roleCode {
	case "":
		roleCode = roleFromEmail(email)
	case "student", "external":
		// self-service roles
	default:
		return fail(c, fmt.Errorf("%w: role invalid", ErrValidation))
	}

	var existing models.User
	if err := s.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return fail(c, fmt.Errorf("%w: email already used", ErrConflict))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return fail(c, err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CampusID:     req.CampusID,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		var role models.Role
		if err := tx.Where("code = ?", roleCode).First(&role).Error; err != nil {
			return fmt.Errorf("role not found: %s", roleCode)
		}
		return tx.Model(&user).Association("Roles").Append(&role)
	})
	if err != nil {
		log.Printf("[auth] register failed for %s: %v", email, err)
		return fail(c, err)
	}

	token, err := signAccessToken(user.ID)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"accessToken": token,
		"user": fiber.Map{
			"id":          user.ID,
			"email":       user.Email,
			"displayName": user.DisplayName,
		},
	})
}

// Login verifies credentials. Unknown email and bad password are
// indistinguishable to the caller.
func (s *AuthService) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	if req.Email == "" || req.Password == "" {
		return fail(c, fmt.Errorf("%w: email and password required", ErrValidation))
	}

	var user models.User
	err := s.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("%w: invalid credentials", ErrUnauthorized))
		}
		return fail(c, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return fail(c, fmt.Errorf("%w: invalid credentials", ErrUnauthorized))
	}

	token, err := signAccessToken(user.ID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"accessToken": token,
		"user": fiber.Map{
			"id":          user.ID,
			"email":       user.Email,
			"displayName": user.DisplayName,
		},
	})
}

// Me returns the identity resolved by the auth middleware.
func (s *AuthService) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.GetMe(c))
}

func (s *AuthService) GetCampuses(c *fiber.Ctx) error {
	var campuses []models.Campus
	if err := s.DB.Order("name ASC").Find(&campuses).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(campuses)
}

// rolePermissions is the access matrix seeded at boot. Roles accumulate:
// student extends external, bde and staff extend student.
var rolePermissions = map[string][]string{
	"external": {"challenges:read", "publications:read"},
	"student": {
		"challenges:read", "challenges:create", "challenges:participate", "challenges:submit",
		"publications:read", "publications:create",
	},
	"staff": {
		"challenges:read", "challenges:create", "challenges:participate", "challenges:submit",
		"challenges:moderate",
		"publications:read", "publications:create", "publications:moderate",
	},
	"bde": {
		"challenges:read", "challenges:create", "challenges:participate", "challenges:submit",
		"challenges:moderate",
		"publications:read", "publications:create", "publications:moderate",
	},
	"admin": {
		"challenges:read", "challenges:create", "challenges:participate", "challenges:submit",
		"challenges:moderate",
		"publications:read", "publications:create", "publications:moderate",
		"roles:assign",
	},
}

// SeedAccessControl inserts any missing roles and permissions and wires the
// role→permission links. Safe to run on every boot.
func (s *AuthService) SeedAccessControl() error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		perms := map[string]models.Permission{}
		for _, keys := range rolePermissions {
			for _, key := range keys {
				if _, ok := perms[key]; ok {
					continue
				}
				var p models.Permission
				if err := tx.Where("key = ?", key).First(&p).Error; err != nil {
					if !errors.Is(err, gorm.ErrRecordNotFound) {
						return err
					}
					p = models.Permission{ID: uuid.NewString(), Key: key}
					if err := tx.Create(&p).Error; err != nil {
						return err
					}
				}
				perms[key] = p
			}
		}

		for code, keys := range rolePermissions {
			var role models.Role
			if err := tx.Where("code = ?", code).First(&role).Error; err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				role = models.Role{ID: uuid.NewString(), Code: code, Label: roleLabelCaser.String(code)}
				if err := tx.Create(&role).Error; err != nil {
					return err
				}
			}
			var grant []models.Permission
			for _, key := range keys {
				grant = append(grant, perms[key])
			}
			if err := tx.Model(&role).Association("Permissions").Replace(grant); err != nil {
				return err
			}
		}
		return nil
	})
}
