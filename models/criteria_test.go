package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriteriaFactories(t *testing.T) {
	c := NewMostGamesPlayedCriteria("")
	assert.Equal(t, CriteriaMostGamesPlayed, c.Type)
	assert.Nil(t, c.Queue)
	assert.NoError(t, c.Validate())

	c = NewMostGamesPlayedCriteria("RANKED_SOLO_5x5")
	require.NotNil(t, c.Queue)
	assert.Equal(t, "RANKED_SOLO_5x5", *c.Queue)

	_, err := NewHighestRankCriteria("")
	assert.ErrorIs(t, err, ErrValidation)
	c, err = NewHighestRankCriteria("RANKED_SOLO_5x5")
	require.NoError(t, err)
	assert.NoError(t, c.Validate())

	_, err = NewMostRankClimbCriteria("")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewMostWinsChampionCriteria(0)
	assert.ErrorIs(t, err, ErrValidation)
	c, err = NewMostWinsChampionCriteria(157)
	require.NoError(t, err)
	require.NotNil(t, c.ChampionID)
	assert.Equal(t, 157, *c.ChampionID)
	assert.NoError(t, c.Validate())

	c = NewHighestWinRateCriteria(0, "")
	require.NotNil(t, c.MinGames)
	assert.Equal(t, DefaultWinRateMinGames, *c.MinGames, "non-positive min games falls back to the default")
	c = NewHighestWinRateCriteria(25, "RANKED_FLEX_SR")
	assert.Equal(t, 25, *c.MinGames)
	assert.NoError(t, c.Validate())
}

func TestCriteriaValidateRejectsForeignParams(t *testing.T) {
	queue := "RANKED_SOLO_5x5"
	champion := 157
	minGames := 10

	cases := []struct {
		name string
		c    Criteria
	}{
		{"unknown type", Criteria{Type: "BEST_KDA"}},
		{"empty type", Criteria{}},
		{"games played with champion", Criteria{Type: CriteriaMostGamesPlayed, ChampionID: &champion}},
		{"highest rank without queue", Criteria{Type: CriteriaHighestRank}},
		{"rank climb with min games", Criteria{Type: CriteriaMostRankClimb, Queue: &queue, MinGames: &minGames}},
		{"champion wins without champion", Criteria{Type: CriteriaMostWinsChamp}},
		{"champion wins with queue", Criteria{Type: CriteriaMostWinsChamp, ChampionID: &champion, Queue: &queue}},
		{"win rate without min games", Criteria{Type: CriteriaHighestWinRate}},
		{"win rate with champion", Criteria{Type: CriteriaHighestWinRate, MinGames: &minGames, ChampionID: &champion}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.c.Validate(), ErrValidation)
		})
	}
}
