// services/scheduler.go
package services

import (
	"log"
	"time"

	"campus-community-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartScheduler runs the background jobs: flipping scheduled publications
// live and refreshing the cached challenge phase so lists stay honest even
// without reads.
func StartScheduler(challenges *ChallengeService, publications *PublicationService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: publish due publications
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(publications.PublishDue),
	)

	// Every minute: refresh the phase cache of live challenges
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var live []models.Challenge
			err := challenges.DB.
				Where("status = ? AND winners_finalized = ?", models.ChallengeStatusApproved, false).
				Find(&live).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}
			now := time.Now()
			for i := range live {
				refreshPhase(challenges.DB, &live[i], now)
			}
		}),
	)
}
