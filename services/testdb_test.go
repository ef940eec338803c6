package services

import (
	"testing"
	"time"

	"campus-community-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// A single connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserFollow{},
		&models.UserProfile{},
		&models.Campus{},
		&models.Theme{},
		&models.Challenge{},
		&models.ChallengeParticipant{},
		&models.Team{},
		&models.TeamMember{},
		&models.ChallengeSubmission{},
		&models.ChallengeWinner{},
		&models.Publication{},
		&models.PublicationReport{},
		&models.InstitutionalNews{},
		&models.CityNews{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, campusID *string) models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "x",
		DisplayName:  "Test User",
		CampusID:     campusID,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func timePtr(t time.Time) *time.Time { return &t }

// loadMeForTest flattens a user's roles and permissions the way the auth
// middleware does.
func loadMeForTest(db *gorm.DB, userID string) (*models.Me, error) {
	var user models.User
	if err := db.Preload("Roles.Permissions").First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	me := &models.Me{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName, CampusID: user.CampusID}
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
