package services

import (
	"log"
	"time"

	"competition-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartCompletionSweep runs a minutely job that notices fixed-date
// competitions crossing their end time. Status itself is derived on read, so
// the sweep changes nothing; it is the hook where result finalization and
// winner announcements get kicked off downstream.
func (s *CompetitionService) StartCompletionSweep() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	lastRun := time.Now()
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			now := time.Now()
			var ended []models.Competition
			err := s.DB.
				Where("date_kind = ? AND is_cancelled = ? AND end_at > ? AND end_at <= ?",
					models.DatesFixed, false, lastRun, now).
				Find(&ended).Error
			if err != nil {
				log.Printf("[SWEEP] DB error: %v", err)
				return
			}
			for _, competition := range ended {
				log.Printf("[SWEEP] competition ended: %s (%s) on server %s",
					competition.Title, competition.ID, competition.ServerID)
			}
			lastRun = now
		}),
	)
	if err != nil {
		return err
	}

	sched.Start()
	return nil
}
