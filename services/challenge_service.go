package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"campus-community-system/middleware"
	"campus-community-system/models"
	"campus-community-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type ChallengeService struct {
	DB *gorm.DB

	// now is swapped out in tests to pin the phase clock.
	now func() time.Time
}

func NewChallengeService(db *gorm.DB) *ChallengeService {
	return &ChallengeService{DB: db, now: time.Now}
}

type createChallengeRequest struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Difficulty        string     `json:"difficulty"`
	Points            *int       `json:"points"`
	DurationMin       *int       `json:"durationMin"`
	ParticipationMode string     `json:"participationMode"`
	RequiresProof     *bool      `json:"requiresProof"`
	PodiumSize        *int       `json:"podiumSize"`
	StartAt           *time.Time `json:"startAt"`
	EndAt             *time.Time `json:"endAt"`
}

type moderateChallengeRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type registerChallengeRequest struct {
	TeamName string `json:"teamName"`
}

type submitProofRequest struct {
	Content     string   `json:"content"`
	Attachments []string `json:"attachments"`
}

type winnerEntry struct {
	Rank   int     `json:"rank"`
	UserID *string `json:"userId"`
	TeamID *string `json:"teamId"`
}

type setWinnersRequest struct {
	Winners []winnerEntry `json:"winners"`
}

// participationResult is the common response shape for register and submit.
type participationResult struct {
	ParticipantType string  `json:"participantType"`
	ChallengeID     string  `json:"challengeId"`
	TeamID          *string `json:"teamId,omitempty"`
}

func isOneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// createChallenge validates the payload and inserts a PENDING challenge.
func (s *ChallengeService) createChallenge(userID string, req createChallengeRequest) (*models.Challenge, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)

	if len(title) < 3 {
		return nil, fmt.Errorf("%w: title invalid", ErrValidation)
	}
	if len(description) < 10 {
		return nil, fmt.Errorf("%w: description invalid", ErrValidation)
	}

	category := req.Category
	if !isOneOf(category, models.ChallengeCategories) {
		category = "autre"
	}
	difficulty := req.Difficulty
	if !isOneOf(difficulty, models.ChallengeDifficulties) {
		difficulty = "moyen"
	}

	points := 0
	if req.Points != nil {
		points = *req.Points
	}
	if points < 0 || points > 5000 {
		return nil, fmt.Errorf("%w: points invalid", ErrValidation)
	}

	durationMin := 60
	if req.DurationMin != nil {
		durationMin = *req.DurationMin
	}
	if durationMin < 5 || durationMin > 24*60 {
		return nil, fmt.Errorf("%w: durationMin invalid", ErrValidation)
	}

	mode := req.ParticipationMode
	if mode == "" {
		mode = models.ModeSolo
	}
	if mode != models.ModeSolo && mode != models.ModeTeam {
		return nil, fmt.Errorf("%w: participationMode invalid", ErrValidation)
	}

	requiresProof := true
	if req.RequiresProof != nil {
		requiresProof = *req.RequiresProof
	}

	podiumSize := 3
	if req.PodiumSize != nil {
		podiumSize = *req.PodiumSize
	}
	if podiumSize < 1 || podiumSize > 10 {
		return nil, fmt.Errorf("%w: podiumSize invalid", ErrValidation)
	}

	// Window: both ends or neither, end strictly after start.
	if (req.StartAt == nil) != (req.EndAt == nil) {
		return nil, fmt.Errorf("%w: startAt and endAt must be provided together", ErrValidation)
	}
	if req.StartAt != nil && !req.EndAt.After(*req.StartAt) {
		return nil, fmt.Errorf("%w: endAt must be after startAt", ErrValidation)
	}

	challenge := &models.Challenge{
		ID:                uuid.NewString(),
		Title:             title,
		Description:       description,
		Category:          category,
		Difficulty:        difficulty,
		Points:            points,
		DurationMin:       durationMin,
		ParticipationMode: mode,
		RequiresProof:     requiresProof,
		PodiumSize:        podiumSize,
		StartAt:           req.StartAt,
		EndAt:             req.EndAt,
		Status:            models.ChallengeStatusPending,
		Phase:             ComputePhase(req.StartAt, req.EndAt, false, s.now()),
		CreatedBy:         userID,
	}
	if err := s.DB.Create(challenge).Error; err != nil {
		return nil, err
	}
	return challenge, nil
}

func (s *ChallengeService) listApproved() ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := s.DB.Where("status = ?", models.ChallengeStatusApproved).
		Order("created_at DESC").
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range challenges {
		refreshPhase(s.DB, &challenges[i], now)
	}
	return challenges, nil
}

func (s *ChallengeService) listPending() ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := s.DB.Where("status = ?", models.ChallengeStatusPending).
		Order("created_at ASC").
		Find(&challenges).Error
	return challenges, err
}

// moderate approves or rejects a pending challenge.
func (s *ChallengeService) moderate(moderatorID, challengeID string, req moderateChallengeRequest) (*models.Challenge, error) {
	if req.Action != "approve" && req.Action != "reject" {
		return nil, fmt.Errorf("%w: action invalid", ErrValidation)
	}
	reason := strings.TrimSpace(req.Reason)
	if req.Action == "reject" && len(reason) < 3 {
		return nil, fmt.Errorf("%w: reason required", ErrValidation)
	}

	var challenge models.Challenge
	if err := s.DB.First(&challenge, "id = ?", challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: challenge not found", ErrNotFound)
		}
		return nil, err
	}

	status := models.ChallengeStatusApproved
	var rejectionReason *string
	if req.Action == "reject" {
		status = models.ChallengeStatusRejected
		rejectionReason = &reason
	}

	now := s.now()
	updates := map[string]interface{}{
		"status":           status,
		"moderated_by":     moderatorID,
		"moderated_at":     now,
		"rejection_reason": rejectionReason,
	}
	if err := s.DB.Model(&challenge).Updates(updates).Error; err != nil {
		return nil, err
	}
	refreshPhase(s.DB, &challenge, now)
	return &challenge, nil
}

// loadApproved fetches the challenge inside the transaction and checks it
// is APPROVED. Phase gating happens at the caller against the freshly
// derived phase, never the cached column.
func (s *ChallengeService) loadApproved(tx *gorm.DB, challengeID string) (*models.Challenge, string, error) {
	var challenge models.Challenge
	if err := tx.First(&challenge, "id = ?", challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("%w: challenge not found", ErrNotFound)
		}
		return nil, "", err
	}
	if challenge.Status != models.ChallengeStatusApproved {
		return nil, "", fmt.Errorf("%w: challenge is not approved", ErrConflict)
	}
	phase := refreshPhase(tx, &challenge, s.now())
	return &challenge, phase, nil
}

// teamParticipantForUser returns the participant row of the team the user
// belongs to for this challenge, if any.
func teamParticipantForUser(tx *gorm.DB, challengeID, userID string) (*models.ChallengeParticipant, error) {
	var participant models.ChallengeParticipant
	err := tx.
		Joins("JOIN team_members ON team_members.team_id = challenge_participants.team_id").
		Where("challenge_participants.challenge_id = ? AND team_members.user_id = ?", challengeID, userID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &participant, nil
}

// register creates the participation for a challenge in REGISTRATION phase.
// TEAM mode creates a brand-new team with the caller as owner; all inserts
// commit or roll back together.
func (s *ChallengeService) register(userID, challengeID string, req registerChallengeRequest) (*participationResult, error) {
	var result *participationResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		challenge, phase, err := s.loadApproved(tx, challengeID)
		if err != nil {
			return err
		}
		if phase != models.PhaseRegistration {
			return fmt.Errorf("%w: registration is closed", ErrWrongPhase)
		}

		switch challenge.ParticipationMode {
		case models.ModeSolo:
			var count int64
			err := tx.Model(&models.ChallengeParticipant{}).
				Where("challenge_id = ? AND user_id = ?", challengeID, userID).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrAlreadyRegistered
			}

			participant := models.ChallengeParticipant{
				ID:              uuid.NewString(),
				ChallengeID:     challengeID,
				ParticipantType: models.ParticipantTypeUser,
				UserID:          &userID,
				Status:          models.ParticipantStatusRegistered,
			}
			if err := tx.Create(&participant).Error; err != nil {
				// The unique index is the backstop against a concurrent
				// registration racing past the count above.
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrAlreadyRegistered
				}
				return err
			}
			result = &participationResult{
				ParticipantType: models.ParticipantTypeUser,
				ChallengeID:     challengeID,
			}
			return nil

		case models.ModeTeam:
			teamName := strings.TrimSpace(req.TeamName)
			if len(teamName) < 2 {
				return fmt.Errorf("%w: teamName must be at least 2 characters", ErrValidation)
			}

			existing, err := teamParticipantForUser(tx, challengeID, userID)
			if err != nil {
				return err
			}
			if existing != nil {
				return ErrAlreadyRegistered
			}

			team := models.Team{
				ID:        uuid.NewString(),
				Name:      teamName,
				Slug:      slug.Make(teamName),
				CreatorID: userID,
			}
			if err := tx.Create(&team).Error; err != nil {
				return err
			}
			owner := models.TeamMember{
				ID:     uuid.NewString(),
				TeamID: team.ID,
				UserID: userID,
				Role:   "owner",
			}
			if err := tx.Create(&owner).Error; err != nil {
				return err
			}
			participant := models.ChallengeParticipant{
				ID:              uuid.NewString(),
				ChallengeID:     challengeID,
				ParticipantType: models.ParticipantTypeTeam,
				TeamID:          &team.ID,
				Status:          models.ParticipantStatusRegistered,
			}
			if err := tx.Create(&participant).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrAlreadyRegistered
				}
				return err
			}
			result = &participationResult{
				ParticipantType: models.ParticipantTypeTeam,
				ChallengeID:     challengeID,
				TeamID:          &team.ID,
			}
			return nil

		default:
			return fmt.Errorf("%w: challenge has invalid participation mode", ErrConflict)
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// submitProof upserts the submission for the caller's participation while
// the challenge is RUNNING. Resubmission overwrites; no history is kept.
func (s *ChallengeService) submitProof(userID, challengeID string, req submitProofRequest) (*participationResult, error) {
	var result *participationResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		challenge, phase, err := s.loadApproved(tx, challengeID)
		if err != nil {
			return err
		}
		if phase != models.PhaseRunning {
			return fmt.Errorf("%w: challenge is not running", ErrWrongPhase)
		}

		if challenge.RequiresProof && strings.TrimSpace(req.Content) == "" && len(req.Attachments) == 0 {
			return fmt.Errorf("%w: proof content or attachments required", ErrValidation)
		}

		var participant *models.ChallengeParticipant
		if challenge.ParticipationMode == models.ModeSolo {
			var p models.ChallengeParticipant
			err := tx.Where("challenge_id = ? AND user_id = ?", challengeID, userID).First(&p).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: not registered for this challenge", ErrConflict)
				}
				return err
			}
			participant = &p
		} else {
			participant, err = teamParticipantForUser(tx, challengeID, userID)
			if err != nil {
				return err
			}
			if participant == nil {
				return fmt.Errorf("%w: not registered for this challenge", ErrConflict)
			}
		}

		attachments := "[]"
		if len(req.Attachments) > 0 {
			raw, err := json.Marshal(req.Attachments)
			if err != nil {
				return err
			}
			attachments = string(raw)
		}

		now := s.now()
		var submission models.ChallengeSubmission
		err = tx.Where("challenge_id = ? AND participant_id = ?", challengeID, participant.ID).
			First(&submission).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			submission = models.ChallengeSubmission{
				ID:            uuid.NewString(),
				ChallengeID:   challengeID,
				ParticipantID: participant.ID,
				Content:       req.Content,
				Attachments:   attachments,
				SubmittedAt:   now,
			}
			if err := tx.Create(&submission).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			updates := map[string]interface{}{
				"content":      req.Content,
				"attachments":  attachments,
				"submitted_at": now,
			}
			if err := tx.Model(&submission).Updates(updates).Error; err != nil {
				return err
			}
		}

		if participant.Status != models.ParticipantStatusSubmitted {
			err := tx.Model(participant).Updates(map[string]interface{}{
				"status":       models.ParticipantStatusSubmitted,
				"submitted_at": now,
			}).Error
			if err != nil {
				return err
			}
		}

		result = &participationResult{
			ParticipantType: participant.ParticipantType,
			ChallengeID:     challengeID,
			TeamID:          participant.TeamID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// setWinners replaces the full winner set and finalizes the challenge.
// Only valid in JUDGING phase, which also makes finalization one-way: after
// success the phase is FINISHED and a second call fails here.
func (s *ChallengeService) setWinners(moderatorID, challengeID string, req setWinnersRequest) (int, error) {
	count := 0

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		challenge, phase, err := s.loadApproved(tx, challengeID)
		if err != nil {
			return err
		}
		if phase != models.PhaseJudging {
			return fmt.Errorf("%w: winners can only be set while judging", ErrWrongPhase)
		}

		if len(req.Winners) == 0 {
			return fmt.Errorf("%w: winners must not be empty", ErrValidation)
		}

		seenRanks := map[int]bool{}
		winners := make([]models.ChallengeWinner, 0, len(req.Winners))
		for _, entry := range req.Winners {
			if entry.Rank < 1 || entry.Rank > challenge.PodiumSize {
				return fmt.Errorf("%w: rank %d out of range [1, %d]", ErrValidation, entry.Rank, challenge.PodiumSize)
			}
			if seenRanks[entry.Rank] {
				return fmt.Errorf("%w: duplicate rank %d", ErrValidation, entry.Rank)
			}
			seenRanks[entry.Rank] = true

			winner := models.ChallengeWinner{
				ID:          uuid.NewString(),
				ChallengeID: challengeID,
				Rank:        entry.Rank,
				DecidedBy:   moderatorID,
			}

			// Entry shape must match the participation mode, and the
			// named user/team must actually be registered.
			switch challenge.ParticipationMode {
			case models.ModeSolo:
				if entry.UserID == nil || entry.TeamID != nil {
					return fmt.Errorf("%w: SOLO winners require userId", ErrValidation)
				}
				var n int64
				err := tx.Model(&models.ChallengeParticipant{}).
					Where("challenge_id = ? AND user_id = ?", challengeID, *entry.UserID).
					Count(&n).Error
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("%w: user %s is not a participant", ErrValidation, *entry.UserID)
				}
				winner.ParticipantType = models.ParticipantTypeUser
				winner.UserID = entry.UserID
			case models.ModeTeam:
				if entry.TeamID == nil || entry.UserID != nil {
					return fmt.Errorf("%w: TEAM winners require teamId", ErrValidation)
				}
				var n int64
				err := tx.Model(&models.ChallengeParticipant{}).
					Where("challenge_id = ? AND team_id = ?", challengeID, *entry.TeamID).
					Count(&n).Error
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("%w: team %s is not a participant", ErrValidation, *entry.TeamID)
				}
				winner.ParticipantType = models.ParticipantTypeTeam
				winner.TeamID = entry.TeamID
			}
			winners = append(winners, winner)
		}

		// Full replace: wipe any prior set before inserting the new one.
		if err := tx.Where("challenge_id = ?", challengeID).Delete(&models.ChallengeWinner{}).Error; err != nil {
			return err
		}
		for i := range winners {
			if err := tx.Create(&winners[i]).Error; err != nil {
				return err
			}
		}

		err = tx.Model(&models.Challenge{}).
			Where("id = ?", challengeID).
			Updates(map[string]interface{}{
				"winners_finalized": true,
				"phase":             models.PhaseFinished,
			}).Error
		if err != nil {
			return err
		}

		count = len(winners)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

type judgingBundle struct {
	Challenge    *models.Challenge             `json:"challenge"`
	Participants []models.ChallengeParticipant `json:"participants"`
	Submissions  []models.ChallengeSubmission  `json:"submissions"`
	Winners      []models.ChallengeWinner      `json:"winners"`
}

// judging returns everything a moderator needs to pick winners. Available
// only while the challenge is in JUDGING phase.
func (s *ChallengeService) judging(challengeID string) (*judgingBundle, error) {
	var challenge models.Challenge
	if err := s.DB.First(&challenge, "id = ?", challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: challenge not found", ErrNotFound)
		}
		return nil, err
	}
	if challenge.Status != models.ChallengeStatusApproved {
		return nil, fmt.Errorf("%w: challenge is not approved", ErrConflict)
	}
	if phase := refreshPhase(s.DB, &challenge, s.now()); phase != models.PhaseJudging {
		return nil, fmt.Errorf("%w: judging bundle only available while judging", ErrWrongPhase)
	}

	bundle := &judgingBundle{Challenge: &challenge}
	if err := s.DB.Where("challenge_id = ?", challengeID).Order("registered_at ASC").Find(&bundle.Participants).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Where("challenge_id = ?", challengeID).Find(&bundle.Submissions).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Where("challenge_id = ?", challengeID).Order("rank ASC").Find(&bundle.Winners).Error; err != nil {
		return nil, err
	}
	return bundle, nil
}

// --- Fiber handlers ---

func (s *ChallengeService) CreateChallenge(c *fiber.Ctx) error {
	var req createChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	me := middleware.GetMe(c)
	challenge, err := s.createChallenge(me.ID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(challenge)
}

func (s *ChallengeService) ListChallenges(c *fiber.Ctx) error {
	challenges, err := s.listApproved()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(challenges)
}

func (s *ChallengeService) ListPendingChallenges(c *fiber.Ctx) error {
	challenges, err := s.listPending()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(challenges)
}

func (s *ChallengeService) ModerateChallenge(c *fiber.Ctx) error {
	var req moderateChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	me := middleware.GetMe(c)
	challenge, err := s.moderate(me.ID, c.Params("id"), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(challenge)
}

func (s *ChallengeService) RegisterForChallenge(c *fiber.Ctx) error {
	var req registerChallengeRequest
	// TEAM mode carries a body, SOLO mode may send none at all.
	_ = c.BodyParser(&req)

	me := middleware.GetMe(c)
	result, err := s.register(me.ID, c.Params("id"), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(result)
}

func (s *ChallengeService) SubmitProof(c *fiber.Ctx) error {
	var req submitProofRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	me := middleware.GetMe(c)
	result, err := s.submitProof(me.ID, c.Params("id"), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(result)
}

// UploadAttachment stores a proof file in R2 and returns its URL, to be
// referenced from a later submission body.
func (s *ChallengeService) UploadAttachment(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fail(c, fmt.Errorf("%w: file is required", ErrValidation))
	}
	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".bin"
	}
	key := "challenges/" + c.Params("id") + "/" + uuid.NewString() + ext
	url, err := utils.UploadFileToR2(file, key)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"url": url})
}

func (s *ChallengeService) SetWinners(c *fiber.Ctx) error {
	var req setWinnersRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	me := middleware.GetMe(c)
	count, err := s.setWinners(me.ID, c.Params("id"), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"winnersCount": count})
}

func (s *ChallengeService) GetJudgingBundle(c *fiber.Ctx) error {
	bundle, err := s.judging(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(bundle)
}
