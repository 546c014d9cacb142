package services

import (
	"path/filepath"
	"testing"
	"time"

	"competition-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway sqlite database with the production schema. A
// file-backed DB (not :memory:) so concurrent connections in the capacity
// tests hit real write contention.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "competitions.db") +
		"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Competition{},
		&models.CompetitionParticipant{},
		&models.Season{},
	))
	return db
}

// stubSeasonCalendar lets tests dial season state directly.
type stubSeasonCalendar struct {
	started bool
	ended   bool
}

func (s stubSeasonCalendar) HasStarted(string, time.Time) bool { return s.started }
func (s stubSeasonCalendar) HasEnded(string, time.Time) bool   { return s.ended }

func activeSeasonCalendar() SeasonCalendar {
	return stubSeasonCalendar{started: true, ended: false}
}

// seedCompetition inserts a competition directly, sidestepping creation caps.
// Defaults: open visibility, currently active fixed dates, room for 10.
func seedCompetition(t *testing.T, db *gorm.DB, mutate ...func(*models.Competition)) *models.Competition {
	t.Helper()
	start := time.Now().Add(-1 * time.Hour)
	end := time.Now().Add(24 * time.Hour)
	competition := &models.Competition{
		ID:              uuid.NewString(),
		ServerID:        "server-1",
		OwnerID:         "owner-1",
		ChannelID:       "channel-1",
		Title:           "Solo queue grind",
		Slug:            "solo-queue-grind",
		Description:     "Most games played this week",
		Visibility:      models.VisibilityOpen,
		MaxParticipants: 10,
		Dates:           models.CompetitionDates{Kind: models.DatesFixed, StartAt: &start, EndAt: &end},
		Criteria:        models.NewMostGamesPlayedCriteria(""),
	}
	for _, m := range mutate {
		m(competition)
	}
	require.NoError(t, db.Create(competition).Error)
	return competition
}

func newParticipantService(t *testing.T, db *gorm.DB, privileged ...string) *ParticipantService {
	t.Helper()
	return NewParticipantService(db, activeSeasonCalendar(), NewPrivilegedOwners(privileged))
}

func newCompetitionService(t *testing.T, db *gorm.DB, privileged ...string) *CompetitionService {
	t.Helper()
	seasons := activeSeasonCalendar()
	limits := NewLimitValidator(db, seasons, NewPrivilegedOwners(privileged))
	return NewCompetitionService(db, limits, NewCreationRateLimiter(), seasons, 0)
}

// validCreateInput returns an input that passes validation as-is.
func validCreateInput(serverID, ownerID string) CreateCompetitionInput {
	start := time.Now().Add(-1 * time.Hour)
	end := time.Now().Add(24 * time.Hour)
	return CreateCompetitionInput{
		ServerID:        serverID,
		OwnerID:         ownerID,
		ChannelID:       "channel-1",
		Title:           "Weekly ranked climb",
		Description:     "Climb the most divisions before Sunday",
		Visibility:      models.VisibilityOpen,
		MaxParticipants: 10,
		Dates:           models.CompetitionDates{Kind: models.DatesFixed, StartAt: &start, EndAt: &end},
		Criteria:        models.NewMostGamesPlayedCriteria(""),
	}
}
