package models

import "time"

// ParticipantStatus is the stored participant state. ABSENT (no row) completes
// the state machine but is never persisted.
type ParticipantStatus string

const (
	ParticipantAbsent  ParticipantStatus = "ABSENT"
	ParticipantJoined  ParticipantStatus = "JOINED"
	ParticipantInvited ParticipantStatus = "INVITED"
	ParticipantLeft    ParticipantStatus = "LEFT"
)

// CompetitionParticipant tracks one player's membership in one competition.
// There is at most one row per (competition, player); rows are mutated in
// place and never deleted, so a LEFT row permanently blocks re-entry.
// Each timestamp is set exactly once, in non-decreasing order.
type CompetitionParticipant struct {
	ID            string `json:"id" gorm:"primaryKey"`
	CompetitionID string `json:"competition_id" gorm:"not null;uniqueIndex:idx_participant_competition_player"`
	PlayerID      string `json:"player_id" gorm:"not null;uniqueIndex:idx_participant_competition_player"`

	Status ParticipantStatus `json:"status" gorm:"type:varchar(16);not null"`

	InvitedBy *string    `json:"invited_by,omitempty"`
	InvitedAt *time.Time `json:"invited_at,omitempty"`
	JoinedAt  *time.Time `json:"joined_at,omitempty"`
	LeftAt    *time.Time `json:"left_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
