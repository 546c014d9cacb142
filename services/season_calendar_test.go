package services

import (
	"testing"
	"time"

	"competition-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedDatesCompetition(start, end time.Time) *models.Competition {
	return &models.Competition{
		Dates: models.CompetitionDates{Kind: models.DatesFixed, StartAt: &start, EndAt: &end},
	}
}

func TestStatusFixedDates(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	competition := fixedDatesCompetition(start, end)

	cases := []struct {
		name string
		now  time.Time
		want models.CompetitionStatus
	}{
		{"before start", start.Add(-time.Second), models.StatusDraft},
		{"exactly at start", start, models.StatusActive},
		{"mid-window", start.Add(72 * time.Hour), models.StatusActive},
		{"just before end", end.Add(-time.Second), models.StatusActive},
		{"exactly at end", end, models.StatusEnded},
		{"after end", end.Add(time.Hour), models.StatusEnded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CompetitionStatusAt(competition, tc.now, stubSeasonCalendar{})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStatusCancelledOverridesEverything(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	for _, now := range []time.Time{start.Add(-time.Hour), start.Add(time.Hour), end.Add(time.Hour)} {
		competition := fixedDatesCompetition(start, end)
		competition.IsCancelled = true
		got := CompetitionStatusAt(competition, now, stubSeasonCalendar{})
		assert.Equal(t, models.StatusCancelled, got)
	}
}

func TestStatusSeason(t *testing.T) {
	seasonID := "season-2026-1"
	competition := &models.Competition{
		Dates: models.CompetitionDates{Kind: models.DatesSeason, SeasonID: &seasonID},
	}
	now := time.Now()

	assert.Equal(t, models.StatusDraft,
		CompetitionStatusAt(competition, now, stubSeasonCalendar{started: false, ended: false}))
	assert.Equal(t, models.StatusActive,
		CompetitionStatusAt(competition, now, stubSeasonCalendar{started: true, ended: false}))
	assert.Equal(t, models.StatusEnded,
		CompetitionStatusAt(competition, now, stubSeasonCalendar{started: true, ended: true}))
}

func TestStoreSeasonCalendar(t *testing.T) {
	db := newTestDB(t)
	calendar := NewStoreSeasonCalendar(db)

	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.Season{
		ID: "season-2026-1", Name: "Season 2026 Split 1", StartAt: start, EndAt: end,
	}).Error)

	assert.False(t, calendar.HasStarted("season-2026-1", start.Add(-time.Hour)))
	assert.True(t, calendar.HasStarted("season-2026-1", start))
	assert.False(t, calendar.HasEnded("season-2026-1", end.Add(-time.Hour)))
	assert.True(t, calendar.HasEnded("season-2026-1", end))

	// Unknown seasons fail closed: reported ended so nobody can join against
	// a season this service has never synced.
	assert.True(t, calendar.HasEnded("season-9999", time.Now()))
	assert.True(t, calendar.HasStarted("season-9999", time.Now()))
}
