// middleware/auth.go
package middleware

import (
	"os"
	"strings"
	"time"

	"campus-community-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const localsMeKey = "me"

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "campus-secret-change-in-production"
	}
	return []byte(secret)
}

func parseBearer(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func subjectFromToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(401, "invalid signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return "", fiber.NewError(401, "invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fiber.NewError(401, "invalid token claims")
	}
	if exp, ok := claims["exp"].(float64); !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		return "", fiber.NewError(401, "token expired")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fiber.NewError(401, "token missing subject")
	}
	return sub, nil
}

// loadMe resolves a user id to the identity plus flattened roles and
// permissions. This runs on every authenticated request; the role and
// permission tables are tiny so the joins stay cheap.
func loadMe(db *gorm.DB, userID string) (*models.Me, error) {
	var user models.User
	if err := db.Preload("Roles.Permissions").First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	me := &models.Me{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CampusID:    user.CampusID,
		Roles:       []string{},
		Permissions: []string{},
	}
	seen := map[string]bool{}
	for _, role := range user.Roles {
		me.Roles = append(me.Roles, role.Code)
		for _, perm := range role.Permissions {
			if !seen[perm.Key] {
				seen[perm.Key] = true
				me.Permissions = append(me.Permissions, perm.Key)
			}
		}
	}
	return me, nil
}

// RequireAuth rejects requests without a valid bearer token and attaches
// the resolved identity to the request context.
func RequireAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := parseBearer(c)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"message": "Missing Authorization Bearer token"})
		}

		sub, err := subjectFromToken(tokenString)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"message": "Invalid or expired token"})
		}

		me, err := loadMe(db, sub)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"message": "Invalid or expired token"})
		}

		c.Locals(localsMeKey, me)
		return c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// passes through silently otherwise. The feed uses it to switch between
// anonymous and authenticated visibility.
func OptionalAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := parseBearer(c)
		if !ok {
			return c.Next()
		}
		sub, err := subjectFromToken(tokenString)
		if err != nil {
			return c.Next()
		}
		if me, err := loadMe(db, sub); err == nil {
			c.Locals(localsMeKey, me)
		}
		return c.Next()
	}
}

// RequirePermission must run after RequireAuth.
func RequirePermission(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		me := GetMe(c)
		if me == nil {
			return c.Status(401).JSON(fiber.Map{"message": "User not authenticated"})
		}
		if !me.HasPermission(key) {
			return c.Status(403).JSON(fiber.Map{"message": "Forbidden", "missing": key})
		}
		return c.Next()
	}
}

// GetMe returns the identity set by RequireAuth/OptionalAuth, or nil.
func GetMe(c *fiber.Ctx) *models.Me {
	if me, ok := c.Locals(localsMeKey).(*models.Me); ok {
		return me
	}
	return nil
}
