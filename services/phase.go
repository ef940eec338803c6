package services

import (
	"log"
	"time"

	"campus-community-system/models"

	"gorm.io/gorm"
)

// ComputePhase derives the lifecycle phase of a challenge from its
// timestamps. The stored phase column is only a cache of this result;
// every read path recomputes it.
//
//	winners finalized        → FINISHED (terminal)
//	no window configured     → REGISTRATION
//	now before the window    → REGISTRATION
//	now inside the window    → RUNNING
//	now past the window      → JUDGING
func ComputePhase(startAt, endAt *time.Time, winnersFinalized bool, now time.Time) string {
	if winnersFinalized {
		return models.PhaseFinished
	}
	if startAt == nil || endAt == nil {
		return models.PhaseRegistration
	}
	if now.Before(*startAt) {
		return models.PhaseRegistration
	}
	if !now.After(*endAt) {
		return models.PhaseRunning
	}
	return models.PhaseJudging
}

// refreshPhase recomputes the phase and opportunistically persists it when
// the cached column has drifted. A failed write is logged and ignored;
// the caller already holds the correct value.
func refreshPhase(db *gorm.DB, challenge *models.Challenge, now time.Time) string {
	phase := ComputePhase(challenge.StartAt, challenge.EndAt, challenge.WinnersFinalized, now)
	if phase != challenge.Phase {
		err := db.Model(&models.Challenge{}).
			Where("id = ?", challenge.ID).
			UpdateColumn("phase", phase).Error
		if err != nil {
			log.Printf("[challenges] phase cache refresh failed for %s: %v", challenge.ID, err)
		}
		challenge.Phase = phase
	}
	return phase
}
