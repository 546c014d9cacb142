package services

import (
	"context"
	"fmt"
	"time"

	"competition-system/models"

	"gorm.io/gorm"
)

// Caps on simultaneously active (non-cancelled, non-ended) competitions.
const (
	MaxOwnerCompetitions  = 1
	MaxServerCompetitions = 2
)

// PrivilegedOwners is the configured set of owner ids exempt from creation
// caps (and allowed to run bulk enrollment).
type PrivilegedOwners map[string]bool

func NewPrivilegedOwners(ownerIDs []string) PrivilegedOwners {
	p := make(PrivilegedOwners, len(ownerIDs))
	for _, id := range ownerIDs {
		if id != "" {
			p[id] = true
		}
	}
	return p
}

func (p PrivilegedOwners) IsPrivilegedOwner(ownerID string) bool {
	return p[ownerID]
}

// LimitValidator enforces the per-owner and per-server creation caps before a
// competition is inserted. The check is advisory read-then-insert: two racing
// creations can overshoot a cap by one. That is an accepted trade-off; unlike
// the participant capacity invariant, nothing breaks downstream if a server
// briefly has one competition too many.
type LimitValidator struct {
	DB         *gorm.DB
	Seasons    SeasonCalendar
	Privileged PrivilegedOwners
}

func NewLimitValidator(db *gorm.DB, seasons SeasonCalendar, privileged PrivilegedOwners) *LimitValidator {
	return &LimitValidator{DB: db, Seasons: seasons, Privileged: privileged}
}

// ValidateOwnerLimit fails when the owner already runs a non-terminal
// competition on the server. Privileged owners bypass the cap.
func (v *LimitValidator) ValidateOwnerLimit(ctx context.Context, serverID, ownerID string) error {
	if v.Privileged.IsPrivilegedOwner(ownerID) {
		return nil
	}
	count, err := v.countNonTerminal(ctx, serverID, &ownerID)
	if err != nil {
		return err
	}
	if count >= MaxOwnerCompetitions {
		return ErrOwnerCompetitionLimit
	}
	return nil
}

// ValidateServerLimit fails when the server already runs the maximum number of
// non-terminal competitions, across all owners.
func (v *LimitValidator) ValidateServerLimit(ctx context.Context, serverID, ownerID string) error {
	if v.Privileged.IsPrivilegedOwner(ownerID) {
		return nil
	}
	count, err := v.countNonTerminal(ctx, serverID, nil)
	if err != nil {
		return err
	}
	if count >= MaxServerCompetitions {
		return ErrServerCompetitionLimit
	}
	return nil
}

// countNonTerminal counts competitions that are neither cancelled nor past
// their end. Season ends live in the calendar, not in the row, so ended-ness
// is resolved through status derivation rather than in SQL.
func (v *LimitValidator) countNonTerminal(ctx context.Context, serverID string, ownerID *string) (int, error) {
	q := v.DB.WithContext(ctx).Where("server_id = ? AND is_cancelled = ?", serverID, false)
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}
	var competitions []models.Competition
	if err := q.Find(&competitions).Error; err != nil {
		return 0, fmt.Errorf("counting active competitions: %w", err)
	}

	now := time.Now()
	count := 0
	for i := range competitions {
		if CompetitionStatusAt(&competitions[i], now, v.Seasons) != models.StatusEnded {
			count++
		}
	}
	return count, nil
}
