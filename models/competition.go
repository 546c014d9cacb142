package models

import (
	"fmt"
	"time"
)

// Visibility controls who may join a competition.
type Visibility string

const (
	VisibilityOpen       Visibility = "OPEN"
	VisibilityInviteOnly Visibility = "INVITE_ONLY"
	VisibilityServerWide Visibility = "SERVER_WIDE"
)

// ValidVisibility reports whether v is one of the three known values.
func ValidVisibility(v Visibility) bool {
	switch v {
	case VisibilityOpen, VisibilityInviteOnly, VisibilityServerWide:
		return true
	}
	return false
}

// CompetitionStatus is derived from stored data plus the current time,
// never persisted.
type CompetitionStatus string

const (
	StatusDraft     CompetitionStatus = "DRAFT"
	StatusActive    CompetitionStatus = "ACTIVE"
	StatusEnded     CompetitionStatus = "ENDED"
	StatusCancelled CompetitionStatus = "CANCELLED"
)

// DateKind discriminates the two ways a competition is time-boxed.
type DateKind string

const (
	DatesFixed  DateKind = "FIXED_DATES"
	DatesSeason DateKind = "SEASON"
)

// CompetitionDates is a tagged union: either explicit start/end times or a
// reference to an externally defined season. Construct it only through
// NewFixedDates or NewSeasonDates; the zero value is invalid.
type CompetitionDates struct {
	Kind     DateKind   `json:"kind" gorm:"column:date_kind;not null"`
	StartAt  *time.Time `json:"start_at,omitempty"`
	EndAt    *time.Time `json:"end_at,omitempty"`
	SeasonID *string    `json:"season_id,omitempty" gorm:"index"`
}

func NewFixedDates(start, end time.Time) (CompetitionDates, error) {
	if !start.Before(end) {
		return CompetitionDates{}, fmt.Errorf("%w: start date must be before end date", ErrValidation)
	}
	return CompetitionDates{Kind: DatesFixed, StartAt: &start, EndAt: &end}, nil
}

func NewSeasonDates(seasonID string) (CompetitionDates, error) {
	if seasonID == "" {
		return CompetitionDates{}, fmt.Errorf("%w: season id is required", ErrValidation)
	}
	return CompetitionDates{Kind: DatesSeason, SeasonID: &seasonID}, nil
}

// Validate checks the union is well-formed; it enumerates every DateKind so a
// new kind cannot slip through unhandled.
func (d CompetitionDates) Validate() error {
	switch d.Kind {
	case DatesFixed:
		if d.StartAt == nil || d.EndAt == nil {
			return fmt.Errorf("%w: fixed dates require start and end", ErrValidation)
		}
		if !d.StartAt.Before(*d.EndAt) {
			return fmt.Errorf("%w: start date must be before end date", ErrValidation)
		}
		if d.SeasonID != nil {
			return fmt.Errorf("%w: fixed dates cannot carry a season id", ErrValidation)
		}
		return nil
	case DatesSeason:
		if d.SeasonID == nil || *d.SeasonID == "" {
			return fmt.Errorf("%w: season dates require a season id", ErrValidation)
		}
		if d.StartAt != nil || d.EndAt != nil {
			return fmt.Errorf("%w: season dates cannot carry explicit start/end", ErrValidation)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown date kind %q", ErrValidation, d.Kind)
}

// Competition is a scored contest owned by a server member. The dates union is
// immutable after creation; IsCancelled is the only field this service mutates
// post-creation (it only ever flips false to true).
type Competition struct {
	ID          string `json:"id" gorm:"primaryKey"`
	ServerID    string `json:"server_id" gorm:"not null;index:idx_competitions_server"`
	OwnerID     string `json:"owner_id" gorm:"not null;index:idx_competitions_owner"`
	ChannelID   string `json:"channel_id" gorm:"not null"`
	Title       string `json:"title" gorm:"not null"`
	Slug        string `json:"slug" gorm:"index"`
	Description string `json:"description" gorm:"type:text"`

	Visibility      Visibility `json:"visibility" gorm:"type:varchar(16);not null;default:'OPEN'"`
	MaxParticipants int        `json:"max_participants" gorm:"not null;default:50"`

	Dates    CompetitionDates `json:"dates" gorm:"embedded"`
	Criteria Criteria         `json:"criteria" gorm:"embedded;embeddedPrefix:criteria_"`

	BannerURL string `json:"banner_url,omitempty"`

	IsCancelled bool       `json:"is_cancelled" gorm:"not null;default:false"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Calculated, not stored
	ActiveParticipants int64 `json:"active_participants,omitempty" gorm:"-"`
	AvailableSlots     int64 `json:"available_slots,omitempty" gorm:"-"`
}

const (
	MinParticipants        = 2
	MaxParticipantsCeiling = 100
	DefaultMaxParticipants = 50

	MaxTitleLen       = 100
	MaxDescriptionLen = 500
)
