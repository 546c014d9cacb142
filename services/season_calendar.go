package services

import (
	"errors"
	"log"
	"time"

	"competition-system/models"

	"gorm.io/gorm"
)

// SeasonCalendar answers whether a season has started or ended. The store
// implementation reads the mirror table kept fresh by the season sync worker.
type SeasonCalendar interface {
	HasStarted(seasonID string, now time.Time) bool
	HasEnded(seasonID string, now time.Time) bool
}

// StoreSeasonCalendar reads seasons from the local mirror table. An unknown
// season is reported as ended: joins against a season this service has never
// heard of must fail closed.
type StoreSeasonCalendar struct {
	DB *gorm.DB
}

func NewStoreSeasonCalendar(db *gorm.DB) *StoreSeasonCalendar {
	return &StoreSeasonCalendar{DB: db}
}

func (c *StoreSeasonCalendar) HasStarted(seasonID string, now time.Time) bool {
	season, ok := c.lookup(seasonID)
	if !ok {
		return true // unknown season: treat as over, which implies started
	}
	return !now.Before(season.StartAt)
}

func (c *StoreSeasonCalendar) HasEnded(seasonID string, now time.Time) bool {
	season, ok := c.lookup(seasonID)
	if !ok {
		return true
	}
	return !now.Before(season.EndAt)
}

func (c *StoreSeasonCalendar) lookup(seasonID string) (*models.Season, bool) {
	var season models.Season
	if err := c.DB.First(&season, "id = ?", seasonID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[SEASONS] lookup %s failed: %v", seasonID, err)
		}
		return nil, false
	}
	return &season, true
}

// CompetitionStatusAt derives the lifecycle status of a competition at a given
// instant. It is total: every competition maps to exactly one status, and
// cancellation overrides everything else.
func CompetitionStatusAt(c *models.Competition, now time.Time, seasons SeasonCalendar) models.CompetitionStatus {
	if c.IsCancelled {
		return models.StatusCancelled
	}
	switch c.Dates.Kind {
	case models.DatesFixed:
		if now.Before(*c.Dates.StartAt) {
			return models.StatusDraft
		}
		if now.Before(*c.Dates.EndAt) {
			return models.StatusActive
		}
		return models.StatusEnded
	case models.DatesSeason:
		if seasons.HasEnded(*c.Dates.SeasonID, now) {
			return models.StatusEnded
		}
		if !seasons.HasStarted(*c.Dates.SeasonID, now) {
			return models.StatusDraft
		}
		return models.StatusActive
	}
	// Unreachable for competitions built through the date factories.
	return models.StatusEnded
}
