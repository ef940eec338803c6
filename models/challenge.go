package models

import (
	"time"
)

// Challenge status is the moderation outcome, set by staff with challenges:moderate.
const (
	ChallengeStatusPending  = "PENDING"
	ChallengeStatusApproved = "APPROVED"
	ChallengeStatusRejected = "REJECTED"
)

// Challenge phase is derived from the timestamps, never trusted as stored.
// The stored column is a cache refreshed on read.
const (
	PhaseRegistration = "REGISTRATION"
	PhaseRunning      = "RUNNING"
	PhaseJudging      = "JUDGING"
	PhaseFinished     = "FINISHED"
)

const (
	ModeSolo = "SOLO"
	ModeTeam = "TEAM"
)

const (
	ParticipantTypeUser = "USER"
	ParticipantTypeTeam = "TEAM"
)

const (
	ParticipantStatusRegistered = "REGISTERED"
	ParticipantStatusSubmitted  = "SUBMITTED"
)

var ChallengeCategories = []string{"creation", "nourriture", "photo", "groupe", "style", "autre"}
var ChallengeDifficulties = []string{"facile", "moyen", "difficile"}

type Challenge struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	Title             string     `json:"title" gorm:"not null"`
	Description       string     `json:"description" gorm:"type:text"`
	Category          string     `json:"category" gorm:"default:'autre'"`
	Difficulty        string     `json:"difficulty" gorm:"default:'moyen'"`
	Points            int        `json:"points" gorm:"default:0"`
	DurationMin       int        `json:"durationMin" gorm:"default:60"`
	ParticipationMode string     `json:"participationMode" gorm:"default:'SOLO'"`
	RequiresProof     bool       `json:"requiresProof" gorm:"default:true"`
	PodiumSize        int        `json:"podiumSize" gorm:"default:3"`
	StartAt           *time.Time `json:"startAt,omitempty"`
	EndAt             *time.Time `json:"endAt,omitempty"`
	Status            string     `json:"status" gorm:"default:'PENDING';index"`
	Phase             string     `json:"phase" gorm:"default:'REGISTRATION'"`
	WinnersFinalized  bool       `json:"winnersFinalized" gorm:"default:false"`
	CreatedBy         string     `json:"createdBy" gorm:"index"`
	ModeratedBy       *string    `json:"moderatedBy,omitempty"`
	ModeratedAt       *time.Time `json:"moderatedAt,omitempty"`
	RejectionReason   *string    `json:"rejectionReason,omitempty"`
	CreatedAt         time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`

	// Relationships
	Participants []ChallengeParticipant `json:"participants,omitempty" gorm:"foreignKey:ChallengeID"`
	Winners      []ChallengeWinner      `json:"winners,omitempty" gorm:"foreignKey:ChallengeID"`
}

// ChallengeParticipant holds either a user or a team entry, never both.
// The partial unique indexes back up the in-transaction duplicate checks.
type ChallengeParticipant struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	ChallengeID     string     `json:"challengeId" gorm:"not null;index;uniqueIndex:idx_challenge_user;uniqueIndex:idx_challenge_team"`
	ParticipantType string     `json:"participantType" gorm:"not null"`
	UserID          *string    `json:"userId,omitempty" gorm:"uniqueIndex:idx_challenge_user"`
	TeamID          *string    `json:"teamId,omitempty" gorm:"uniqueIndex:idx_challenge_team"`
	Status          string     `json:"status" gorm:"default:'REGISTERED'"`
	RegisteredAt    time.Time  `json:"registeredAt" gorm:"autoCreateTime"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
}

func (ChallengeParticipant) TableName() string { return "challenge_participants" }

type Team struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Slug      string    `json:"slug" gorm:"index"`
	CreatorID string    `json:"creatorId" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	Members []TeamMember `json:"members,omitempty" gorm:"foreignKey:TeamID"`
}

type TeamMember struct {
	ID       string    `json:"id" gorm:"primaryKey"`
	TeamID   string    `json:"teamId" gorm:"not null;index;uniqueIndex:idx_team_user"`
	UserID   string    `json:"userId" gorm:"not null;index;uniqueIndex:idx_team_user"`
	Role     string    `json:"role" gorm:"default:'member'"`
	JoinedAt time.Time `json:"joinedAt" gorm:"autoCreateTime"`
}

// ChallengeSubmission is upserted: last write wins, no history kept.
type ChallengeSubmission struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	ChallengeID   string    `json:"challengeId" gorm:"not null;index;uniqueIndex:idx_challenge_participant"`
	ParticipantID string    `json:"participantId" gorm:"not null;uniqueIndex:idx_challenge_participant"`
	Content       string    `json:"content" gorm:"type:text"`
	Attachments   string    `json:"attachments" gorm:"type:text"` // JSON-encoded []string of R2 URLs
	SubmittedAt   time.Time `json:"submittedAt"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// ChallengeWinner rows are replaced as a whole set on finalization.
type ChallengeWinner struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	ChallengeID     string    `json:"challengeId" gorm:"not null;index;uniqueIndex:idx_challenge_rank"`
	Rank            int       `json:"rank" gorm:"not null;uniqueIndex:idx_challenge_rank"`
	ParticipantType string    `json:"participantType" gorm:"not null"`
	UserID          *string   `json:"userId,omitempty"`
	TeamID          *string   `json:"teamId,omitempty"`
	DecidedBy       string    `json:"decidedBy"`
	CreatedAt       time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
