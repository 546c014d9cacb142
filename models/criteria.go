package models

import "fmt"

// CriteriaType discriminates the scoring rule of a competition.
type CriteriaType string

const (
	CriteriaMostGamesPlayed CriteriaType = "MOST_GAMES_PLAYED"
	CriteriaHighestRank     CriteriaType = "HIGHEST_RANK"
	CriteriaMostRankClimb   CriteriaType = "MOST_RANK_CLIMB"
	CriteriaMostWinsPlayer  CriteriaType = "MOST_WINS_PLAYER"
	CriteriaMostWinsChamp   CriteriaType = "MOST_WINS_CHAMPION"
	CriteriaHighestWinRate  CriteriaType = "HIGHEST_WIN_RATE"
)

// DefaultWinRateMinGames guards HIGHEST_WIN_RATE against one-game wonders.
const DefaultWinRateMinGames = 10

// Criteria is a tagged union over the six scoring rules. Params that do not
// belong to the active variant stay nil; construct values only through the
// New*Criteria factories so that can't be violated.
type Criteria struct {
	Type       CriteriaType `json:"type" gorm:"column:type;type:varchar(32);not null"`
	Queue      *string      `json:"queue,omitempty" gorm:"column:queue"`
	ChampionID *int         `json:"champion_id,omitempty" gorm:"column:champion_id"`
	MinGames   *int         `json:"min_games,omitempty" gorm:"column:min_games"`
}

// NewMostGamesPlayedCriteria counts games played, optionally restricted to one
// queue (empty string means all queues).
func NewMostGamesPlayedCriteria(queue string) Criteria {
	return Criteria{Type: CriteriaMostGamesPlayed, Queue: optionalQueue(queue)}
}

// NewHighestRankCriteria compares final rank; rank only exists per ranked
// queue, so the queue is required.
func NewHighestRankCriteria(queue string) (Criteria, error) {
	if queue == "" {
		return Criteria{}, fmt.Errorf("%w: highest rank criteria requires a ranked queue", ErrValidation)
	}
	return Criteria{Type: CriteriaHighestRank, Queue: &queue}, nil
}

// NewMostRankClimbCriteria compares rank gained over the competition window.
func NewMostRankClimbCriteria(queue string) (Criteria, error) {
	if queue == "" {
		return Criteria{}, fmt.Errorf("%w: rank climb criteria requires a ranked queue", ErrValidation)
	}
	return Criteria{Type: CriteriaMostRankClimb, Queue: &queue}, nil
}

func NewMostWinsPlayerCriteria(queue string) Criteria {
	return Criteria{Type: CriteriaMostWinsPlayer, Queue: optionalQueue(queue)}
}

func NewMostWinsChampionCriteria(championID int) (Criteria, error) {
	if championID <= 0 {
		return Criteria{}, fmt.Errorf("%w: most wins champion criteria requires a champion id", ErrValidation)
	}
	return Criteria{Type: CriteriaMostWinsChamp, ChampionID: &championID}, nil
}

// NewHighestWinRateCriteria compares win rate over at least minGames games;
// minGames <= 0 falls back to DefaultWinRateMinGames.
func NewHighestWinRateCriteria(minGames int, queue string) Criteria {
	if minGames <= 0 {
		minGames = DefaultWinRateMinGames
	}
	return Criteria{Type: CriteriaHighestWinRate, MinGames: &minGames, Queue: optionalQueue(queue)}
}

// Validate enumerates every variant; an unknown discriminator is an error, not
// a fallthrough.
func (c Criteria) Validate() error {
	switch c.Type {
	case CriteriaMostGamesPlayed, CriteriaMostWinsPlayer:
		if c.ChampionID != nil || c.MinGames != nil {
			return fmt.Errorf("%w: %s criteria only accepts a queue param", ErrValidation, c.Type)
		}
		return nil
	case CriteriaHighestRank, CriteriaMostRankClimb:
		if c.Queue == nil || *c.Queue == "" {
			return fmt.Errorf("%w: %s criteria requires a ranked queue", ErrValidation, c.Type)
		}
		if c.ChampionID != nil || c.MinGames != nil {
			return fmt.Errorf("%w: %s criteria only accepts a queue param", ErrValidation, c.Type)
		}
		return nil
	case CriteriaMostWinsChamp:
		if c.ChampionID == nil || *c.ChampionID <= 0 {
			return fmt.Errorf("%w: most wins champion criteria requires a champion id", ErrValidation)
		}
		if c.Queue != nil || c.MinGames != nil {
			return fmt.Errorf("%w: most wins champion criteria only accepts a champion id", ErrValidation)
		}
		return nil
	case CriteriaHighestWinRate:
		if c.MinGames == nil || *c.MinGames < 1 {
			return fmt.Errorf("%w: highest win rate criteria requires min games >= 1", ErrValidation)
		}
		if c.ChampionID != nil {
			return fmt.Errorf("%w: highest win rate criteria does not take a champion id", ErrValidation)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown criteria type %q", ErrValidation, c.Type)
}

func optionalQueue(queue string) *string {
	if queue == "" {
		return nil
	}
	return &queue
}
