package services

import (
	"testing"
	"time"

	"campus-community-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newChallengeService(db *gorm.DB) *ChallengeService {
	svc := NewChallengeService(db)
	svc.now = func() time.Time { return testNow }
	return svc
}

// seedChallenge inserts an APPROVED challenge whose derived phase at
// testNow is the one requested.
func seedChallenge(t *testing.T, db *gorm.DB, mode, phase string) *models.Challenge {
	t.Helper()

	challenge := models.Challenge{
		ID:                uuid.NewString(),
		Title:             "Chasse au trésor",
		Description:       "Trouvez tous les indices du campus.",
		Category:          "groupe",
		Difficulty:        "moyen",
		Points:            100,
		DurationMin:       120,
		ParticipationMode: mode,
		RequiresProof:     true,
		PodiumSize:        3,
		Status:            models.ChallengeStatusApproved,
		CreatedBy:         "creator",
	}
	switch phase {
	case models.PhaseRegistration:
		challenge.StartAt = timePtr(testNow.Add(1 * time.Hour))
		challenge.EndAt = timePtr(testNow.Add(3 * time.Hour))
	case models.PhaseRunning:
		challenge.StartAt = timePtr(testNow.Add(-1 * time.Hour))
		challenge.EndAt = timePtr(testNow.Add(1 * time.Hour))
	case models.PhaseJudging:
		challenge.StartAt = timePtr(testNow.Add(-3 * time.Hour))
		challenge.EndAt = timePtr(testNow.Add(-1 * time.Hour))
	}
	challenge.Phase = phase
	if err := db.Create(&challenge).Error; err != nil {
		t.Fatalf("seed challenge: %v", err)
	}
	return &challenge
}

func seedSoloParticipant(t *testing.T, db *gorm.DB, challengeID, userID string) *models.ChallengeParticipant {
	t.Helper()
	p := models.ChallengeParticipant{
		ID:              uuid.NewString(),
		ChallengeID:     challengeID,
		ParticipantType: models.ParticipantTypeUser,
		UserID:          &userID,
		Status:          models.ParticipantStatusRegistered,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed participant: %v", err)
	}
	return &p
}

func TestCreateChallengeValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newChallengeService(db)

	valid := createChallengeRequest{
		Title:       "Défi photo",
		Description: "Prenez la meilleure photo du campus.",
	}

	t.Run("defaults applied", func(t *testing.T) {
		challenge, err := svc.createChallenge("u1", valid)
		assert.NoError(t, err)
		assert.Equal(t, models.ChallengeStatusPending, challenge.Status)
		assert.Equal(t, models.PhaseRegistration, challenge.Phase)
		assert.Equal(t, "autre", challenge.Category)
		assert.Equal(t, "moyen", challenge.Difficulty)
		assert.Equal(t, models.ModeSolo, challenge.ParticipationMode)
		assert.Equal(t, 3, challenge.PodiumSize)
		assert.True(t, challenge.RequiresProof)
	})

	t.Run("title too short", func(t *testing.T) {
		req := valid
		req.Title = "ab"
		_, err := svc.createChallenge("u1", req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("description too short", func(t *testing.T) {
		req := valid
		req.Description = "court"
		_, err := svc.createChallenge("u1", req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("points out of range", func(t *testing.T) {
		req := valid
		points := 6000
		req.Points = &points
		_, err := svc.createChallenge("u1", req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("window requires both ends", func(t *testing.T) {
		req := valid
		req.StartAt = timePtr(testNow)
		_, err := svc.createChallenge("u1", req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("end must follow start", func(t *testing.T) {
		req := valid
		req.StartAt = timePtr(testNow.Add(time.Hour))
		req.EndAt = timePtr(testNow)
		_, err := svc.createChallenge("u1", req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown category falls back", func(t *testing.T) {
		req := valid
		req.Category = "cuisine"
		challenge, err := svc.createChallenge("u1", req)
		assert.NoError(t, err)
		assert.Equal(t, "autre", challenge.Category)
	})
}

func TestModerateChallenge(t *testing.T) {
	db := newTestDB(t)
	svc := newChallengeService(db)

	pending, err := svc.createChallenge("u1", createChallengeRequest{
		Title:       "Défi cuisine",
		Description: "Le meilleur plat du campus gagne.",
	})
	assert.NoError(t, err)

	t.Run("reject requires reason", func(t *testing.T) {
		_, err := svc.moderate("mod", pending.ID, moderateChallengeRequest{Action: "reject"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown challenge", func(t *testing.T) {
		_, err := svc.moderate("mod", "missing", moderateChallengeRequest{Action: "approve"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("approve", func(t *testing.T) {
		updated, err := svc.moderate("mod", pending.ID, moderateChallengeRequest{Action: "approve"})
		assert.NoError(t, err)
		assert.Equal(t, models.ChallengeStatusApproved, updated.Status)
		assert.NotNil(t, updated.ModeratedAt)
	})
}

func TestRegisterSolo(t *testing.T) {
	db := newTestDB(t)
	svc := newChallengeService(db)
	user := createTestUser(t, db, "alice@mediaschool.me", nil)
	challenge := seedChallenge(t, db, models.ModeSolo, models.PhaseRegistration)

	result, err := svc.register(user.ID, challenge.ID, registerChallengeRequest{})
	assert.NoError(t, err)
	assert.Equal(t, models.ParticipantTypeUser, result.ParticipantType)
	assert.Nil(t, result.TeamID)

	_, err = svc.register(user.ID, challenge.ID, registerChallengeRequest{})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	var count int64
	db.Model(&models.ChallengeParticipant{}).Where("challenge_id = ?", challenge.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestRegisterTeam(t *testing.T) {
	db := newTestDB(t)
	svc := newChallengeService(db)
	user := createTestUser(t, db, "bob@mediaschool.me", nil)
	challenge := seedChallenge(t, db, models.ModeTeam, models.PhaseRegistration)

	t.Run("team name required", func(t *testing.T) {
		_, err := svc.register(user.ID, challenge.ID, registerChallengeRequest{TeamName: " a "})
		assert.ErrorIs(t, err, ErrValidation)

		var teams int64
		db.Model(&models.Team{}).Count(&teams)
		assert.EqualValues(t, 0, teams)
	})

	t.Run("creates team, membership and participant", func(t *testing.T) {
		result, err := svc.register(user.ID, challenge.ID, registerChallengeRequest{TeamName: "Les Invincibles"})
		assert.NoError(t, err)
		assert.Equal(t, models.ParticipantTypeTeam, result.ParticipantType)
		assert.NotNil(t, result.TeamID)

		var team models.Team
		assert.NoError(t, db.First(&team, "id = ?", *result.TeamID).Error)
		assert.Equal(t, "les-invincibles", team.Slug)
		assert.Equal(t, user.ID, team.CreatorID)

		var member models.TeamMember
		assert.NoError(t, db.First(&member, "team_id = ? AND user_id = ?", team.ID, user.ID).Error)
		assert.Equal(t, "owner", member.Role)
	})

	t.Run("member of a registered team cannot register again", func(t *testing.T) {
		_, err := svc.register(user.ID, challenge.ID, registerChallengeRequest{TeamName: "Seconde Chance"})
		assert.ErrorIs(t, err, ErrAlreadyRegistered)

		// The failed attempt must not leave an orphan team behind.
		var teams int64
		db.Model(&models.Team{}).Count(&teams)
		assert.EqualValues(t, 1, teams)
	})
}

func TestRegisterPhaseGating(t *testing.T) {
	db := newTestDB(t)
	svc := newChallengeService(db)
	user := createTestUser(t, db, "carol@mediaschool.me", nil)

	t.Run("running challenge rejects registration", func(t *testing.T) {
		challenge := seedChallenge(t, db, models.ModeSolo, models.PhaseRunning)
		_, err := svc.register(user.ID, challenge.ID, registerChallengeRequest{})
		assert.ErrorIs(t, err, ErrWrongPhase)
	})

	t.Run("pending challenge rejects registration", func(t *testing.T) {
		challenge := seedChallenge(t, db, models.ModeSolo, models.PhaseRegistration)
		db.Model(challenge).Update("status", models.ChallengeStatusPending)
		_, err := svc.register(user.ID, challenge.ID, registerChallengeRequest{})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown challenge", func(t *testing.T) {
		_, err := svc.register(user.ID, "missing", registerChallengeRequest{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSubmitProof(t *testing.T) {
	db := newTestDB(t)
	svc := newChallengeService(db)
	user := createTestUser(t, db, "dave@mediaschool.me", nil)
	challenge := seedChallenge(t, db, models.ModeSolo, models.PhaseRunning)
	participant := seedSoloParticipant(t, db, challenge.ID, user.ID)

	t.Run("unregistered user cannot submit", func(t *testing.T) {
		stranger := createTestUser(t, db, "eve@mediaschool.me", nil)
		_, err := svc.submitProof(stranger.ID, challenge.ID, submitProofRequest{Content: "preuve"})
		assert.ErrorIs(t, err, ErrConflict)

		var count int64
		db.Model(&models.ChallengeSubmission{}).Count(&count)
		assert.EqualValues(t, 0, count)
	})

	t.Run("proof required", func(t *testing.T) {
		_, err := svc.submitProof(user.ID, challenge.ID, submitProofRequest{})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("first submission flips status", func(t *testing.T) {
		result, err := svc.submitProof(user.ID, challenge.ID, submitProofRequest{
			Content:     "voici la preuve",
			Attachments: []string{"https://cdn.example.com/a.jpg"},
		})
		assert.NoError(t, err)
		assert.Equal(t, models.ParticipantTypeUser, result.ParticipantType)

		var stored models.ChallengeParticipant
		assert.NoError(t, db.First(&stored, "id = ?", participant.ID).Error)
		assert.Equal(t, models.ParticipantStatusSubmitted, stored.Status)
		assert.NotNil(t, stored.SubmittedAt)
	})

	t.Run("resubmission overwrites, no second row", func(t *testing.T) {
		_, err := svc.submitProof(user.ID, challenge.ID, submitProofRequest{Content: "nouvelle version"})
		assert.NoError(t, err)

		var submissions []models.ChallengeSubmission
		db.Where("challenge_id = ?", challenge.ID).Find(&submissions)
		assert.Len(t, submissions, 1)
		assert.Equal(t, "nouvelle version", submissions[0].Content)
	})

	t.Run("wrong phase", func(t *testing.T) {
		early := seedChallenge(t, db, models.ModeSolo, models.PhaseRegistration)
		seedSoloParticipant(t, db, early.ID, user.ID)
		_, err := svc.submitProof(user.ID, early.ID, submitProofRequest{Content: "trop tôt"})
		assert.ErrorIs(t, err, ErrWrongPhase)
	})
}

func TestSubmitProofTeam(t *testing.T) {
	db := newTestDB(t)
	svc := newChallengeService(db)
	owner := createTestUser(t, db, "frank@mediaschool.me", nil)
	challenge := seedChallenge(t, db, models.ModeTeam, models.PhaseRunning)

	team := models.Team{ID: uuid.NewString(), Name: "Les Rapides", Slug: "les-rapides", CreatorID: owner.ID}
	assert.NoError(t, db.Create(&team).Error)
	assert.NoError(t, db.Create(&models.TeamMember{ID: uuid.NewString(), TeamID: team.ID, UserID: owner.ID, Role: "owner"}).Error)
	assert.NoError(t, db.Create(&models.ChallengeParticipant{
		ID:              uuid.NewString(),
		ChallengeID:     challenge.ID,
		ParticipantType: models.ParticipantTypeTeam,
		TeamID:          &team.ID,
		Status:          models.ParticipantStatusRegistered,
	}).Error)

	result, err := svc.submitProof(owner.ID, challenge.ID, submitProofRequest{Content: "preuve d'équipe"})
	assert.NoError(t, err)
	assert.Equal(t, models.ParticipantTypeTeam, result.ParticipantType)
	assert.Equal(t, team.ID, *result.TeamID)
}

func TestSetWinners(t *testing.T) {
	db := newTestDB(t)
	svc := newChallengeService(db)
	alice := createTestUser(t, db, "alice@mediaschool.me", nil)
	bob := createTestUser(t, db, "bob@mediaschool.me", nil)
	challenge := seedChallenge(t, db, models.ModeSolo, models.PhaseJudging)
	seedSoloParticipant(t, db, challenge.ID, alice.ID)
	seedSoloParticipant(t, db, challenge.ID, bob.ID)

	assertNoWinners := func(t *testing.T) {
		var count int64
		db.Model(&models.ChallengeWinner{}).Where("challenge_id = ?", challenge.ID).Count(&count)
		assert.EqualValues(t, 0, count)
	}

	t.Run("empty list", func(t *testing.T) {
		_, err := svc.setWinners("mod", challenge.ID, setWinnersRequest{})
		assert.ErrorIs(t, err, ErrValidation)
		assertNoWinners(t)
	})

	t.Run("rank out of range", func(t *testing.T) {
		_, err := svc.setWinners("mod", challenge.ID, setWinnersRequest{Winners: []winnerEntry{
			{Rank: 4, UserID: &alice.ID},
		}})
		assert.ErrorIs(t, err, ErrValidation)
		assertNoWinners(t)
	})

	t.Run("duplicate rank", func(t *testing.T) {
		_, err := svc.setWinners("mod", challenge.ID, setWinnersRequest{Winners: []winnerEntry{
			{Rank: 1, UserID: &alice.ID},
			{Rank: 1, UserID: &bob.ID},
		}})
		assert.ErrorIs(t, err, ErrValidation)
		assertNoWinners(t)
	})

	t.Run("winner must be a participant", func(t *testing.T) {
		stranger := "not-registered"
		_, err := svc.setWinners("mod", challenge.ID, setWinnersRequest{Winners: []winnerEntry{
			{Rank: 1, UserID: &stranger},
		}})
		assert.ErrorIs(t, err, ErrValidation)
		assertNoWinners(t)
	})

	t.Run("entry shape must match mode", func(t *testing.T) {
		teamID := uuid.NewString()
		_, err := svc.setWinners("mod", challenge.ID, setWinnersRequest{Winners: []winnerEntry{
			{Rank: 1, TeamID: &teamID},
		}})
		assert.ErrorIs(t, err, ErrValidation)
		assertNoWinners(t)
	})

	t.Run("success finalizes", func(t *testing.T) {
		count, err := svc.setWinners("mod", challenge.ID, setWinnersRequest{Winners: []winnerEntry{
			{Rank: 1, UserID: &alice.ID},
			{Rank: 2, UserID: &bob.ID},
		}})
		assert.NoError(t, err)
		assert.Equal(t, 2, count)

		var stored models.Challenge
		assert.NoError(t, db.First(&stored, "id = ?", challenge.ID).Error)
		assert.True(t, stored.WinnersFinalized)
		assert.Equal(t, models.PhaseFinished, stored.Phase)
	})

	t.Run("second finalization rejected", func(t *testing.T) {
		_, err := svc.setWinners("mod", challenge.ID, setWinnersRequest{Winners: []winnerEntry{
			{Rank: 1, UserID: &bob.ID},
		}})
		assert.ErrorIs(t, err, ErrWrongPhase)
	})
}

func TestJudgingBundle(t *testing.T) {
	db := newTestDB(t)
	svc := newChallengeService(db)
	user := createTestUser(t, db, "gina@mediaschool.me", nil)

	t.Run("only available while judging", func(t *testing.T) {
		running := seedChallenge(t, db, models.ModeSolo, models.PhaseRunning)
		_, err := svc.judging(running.ID)
		assert.ErrorIs(t, err, ErrWrongPhase)
	})

	t.Run("returns participants and submissions", func(t *testing.T) {
		challenge := seedChallenge(t, db, models.ModeSolo, models.PhaseJudging)
		participant := seedSoloParticipant(t, db, challenge.ID, user.ID)
		assert.NoError(t, db.Create(&models.ChallengeSubmission{
			ID:            uuid.NewString(),
			ChallengeID:   challenge.ID,
			ParticipantID: participant.ID,
			Content:       "résultat final",
			Attachments:   "[]",
			SubmittedAt:   testNow.Add(-90 * time.Minute),
		}).Error)

		bundle, err := svc.judging(challenge.ID)
		assert.NoError(t, err)
		assert.Len(t, bundle.Participants, 1)
		assert.Len(t, bundle.Submissions, 1)
		assert.Empty(t, bundle.Winners)
	})
}

func TestListApprovedRefreshesPhase(t *testing.T) {
	db := newTestDB(t)
	svc := newChallengeService(db)

	// Stored with a stale REGISTRATION phase but the window is over.
	challenge := seedChallenge(t, db, models.ModeSolo, models.PhaseJudging)
	db.Model(challenge).UpdateColumn("phase", models.PhaseRegistration)
	seedChallenge(t, db, models.ModeSolo, models.PhaseRegistration)
	pending, _ := svc.createChallenge("u1", createChallengeRequest{
		Title:       "Non approuvé",
		Description: "Ne doit pas apparaître dans la liste.",
	})

	challenges, err := svc.listApproved()
	assert.NoError(t, err)
	assert.Len(t, challenges, 2)
	for _, c := range challenges {
		assert.NotEqual(t, pending.ID, c.ID)
		if c.ID == challenge.ID {
			assert.Equal(t, models.PhaseJudging, c.Phase)
		}
	}
}
