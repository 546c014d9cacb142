package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"competition-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCompetition(t *testing.T) {
	db := newTestDB(t)
	svc := newCompetitionService(t, db)

	competition, err := svc.Create(context.Background(), validCreateInput("server-1", "owner-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, competition.ID)
	assert.Equal(t, "weekly-ranked-climb", competition.Slug)
	assert.False(t, competition.IsCancelled)

	fetched, err := svc.GetByID(context.Background(), competition.ID)
	require.NoError(t, err)
	assert.Equal(t, competition.ID, fetched.ID)
	assert.Equal(t, models.DatesFixed, fetched.Dates.Kind)
}

func TestCreateCompetitionRecordsCreation(t *testing.T) {
	db := newTestDB(t)
	svc := newCompetitionService(t, db)

	_, err := svc.Create(context.Background(), validCreateInput("server-1", "owner-1"))
	require.NoError(t, err)

	_, ok := svc.Limiter.LastCreation("server-1", "owner-1")
	assert.True(t, ok, "successful creation must be recorded in the rate limiter")
	_, ok = svc.Limiter.LastCreation("server-1", "owner-2")
	assert.False(t, ok)
}

func TestCreateCompetitionValidationFailuresAreNotRecorded(t *testing.T) {
	db := newTestDB(t)
	svc := newCompetitionService(t, db)

	in := validCreateInput("server-1", "owner-1")
	in.Title = ""
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, models.ErrValidation)

	_, ok := svc.Limiter.LastCreation("server-1", "owner-1")
	assert.False(t, ok)
}

func TestCreateCompetitionMaxParticipantsBounds(t *testing.T) {
	db := newTestDB(t)
	svc := newCompetitionService(t, db, "owner-1") // privileged: no cap interference

	cases := []struct {
		max int
		ok  bool
	}{
		{1, false},
		{101, false},
		{2, true},
		{100, true},
	}
	for _, tc := range cases {
		in := validCreateInput("server-"+strconv.Itoa(tc.max), "owner-1")
		in.MaxParticipants = tc.max
		_, err := svc.Create(context.Background(), in)
		if tc.ok {
			assert.NoError(t, err, "max_participants=%d should be accepted", tc.max)
		} else {
			assert.ErrorIs(t, err, models.ErrValidation, "max_participants=%d should be rejected", tc.max)
		}
	}
}

func TestCreateCompetitionDefaultsMaxParticipants(t *testing.T) {
	db := newTestDB(t)
	svc := newCompetitionService(t, db)

	in := validCreateInput("server-1", "owner-1")
	in.MaxParticipants = 0
	competition, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMaxParticipants, competition.MaxParticipants)
}

func TestCreateCompetitionFieldValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newCompetitionService(t, db)

	long := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'x'
		}
		return string(b)
	}

	cases := []struct {
		name   string
		mutate func(*CreateCompetitionInput)
	}{
		{"missing server", func(in *CreateCompetitionInput) { in.ServerID = "" }},
		{"title too long", func(in *CreateCompetitionInput) { in.Title = long(101) }},
		{"blank title", func(in *CreateCompetitionInput) { in.Title = "   " }},
		{"description too long", func(in *CreateCompetitionInput) { in.Description = long(501) }},
		{"empty description", func(in *CreateCompetitionInput) { in.Description = "" }},
		{"bad visibility", func(in *CreateCompetitionInput) { in.Visibility = "FRIENDS_ONLY" }},
		{"malformed dates", func(in *CreateCompetitionInput) { in.Dates = models.CompetitionDates{} }},
		{"malformed criteria", func(in *CreateCompetitionInput) { in.Criteria = models.Criteria{Type: "BEST_VIBES"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreateInput("server-1", "owner-1")
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newCompetitionService(t, db)

	_, err := svc.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCompetitionNotFound)
}

func TestCancel(t *testing.T) {
	db := newTestDB(t)
	svc := newCompetitionService(t, db)
	competition := seedCompetition(t, db)

	_, err := svc.Cancel(context.Background(), competition.ID, "stranger")
	assert.ErrorIs(t, err, ErrNotOwner)

	cancelled, err := svc.Cancel(context.Background(), competition.ID, competition.OwnerID)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	require.NotNil(t, cancelled.CancelledAt)
	firstCancelledAt := *cancelled.CancelledAt

	// Cancelling again is a no-op and keeps the original timestamp.
	again, err := svc.Cancel(context.Background(), competition.ID, competition.OwnerID)
	require.NoError(t, err)
	require.NotNil(t, again.CancelledAt)
	assert.WithinDuration(t, firstCancelledAt, *again.CancelledAt, time.Millisecond)
}

func TestCancelByPrivilegedOwner(t *testing.T) {
	db := newTestDB(t)
	svc := newCompetitionService(t, db, "moderator-1")
	competition := seedCompetition(t, db)

	cancelled, err := svc.Cancel(context.Background(), competition.ID, "moderator-1")
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
}

func TestListByServer(t *testing.T) {
	db := newTestDB(t)
	svc := newCompetitionService(t, db)
	competition := seedCompetition(t, db, func(c *models.Competition) {
		c.MaxParticipants = 5
	})
	seedCompetition(t, db, func(c *models.Competition) {
		c.ServerID = "server-2"
	})

	participants := newParticipantService(t, db)
	_, err := participants.AddParticipant(context.Background(), competition.ID, "player-1", AddParticipantOptions{
		Status: models.ParticipantJoined,
	})
	require.NoError(t, err)

	list, err := svc.ListByServer(context.Background(), "server-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0].ActiveParticipants)
	assert.EqualValues(t, 4, list[0].AvailableSlots)
}
