package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"competition-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// bulkEnrollConcurrency bounds the fan-out of a bulk enrollment; each player
// is still an independent insert against the store.
const bulkEnrollConcurrency = 8

// ParticipantService is the participant state machine. All transitions run
// against the store; the capacity invariant (active participants never exceed
// MaxParticipants) is enforced atomically inside the insert itself.
type ParticipantService struct {
	DB         *gorm.DB
	Seasons    SeasonCalendar
	Privileged PrivilegedOwners
}

func NewParticipantService(db *gorm.DB, seasons SeasonCalendar, privileged PrivilegedOwners) *ParticipantService {
	return &ParticipantService{DB: db, Seasons: seasons, Privileged: privileged}
}

// AddParticipantOptions selects the entry transition: ABSENT->JOINED or
// ABSENT->INVITED. Privileged marks owner/bulk paths that bypass the
// visibility gate (never the capacity check).
type AddParticipantOptions struct {
	Status     models.ParticipantStatus
	InvitedBy  string
	Privileged bool
}

// AddParticipant performs ABSENT->JOINED or ABSENT->INVITED. An invite
// reserves a slot, so both transitions count against capacity. Two concurrent
// calls can never both squeeze into the last slot: the count check and the
// insert execute as one guarded statement inside a transaction that holds the
// competition row.
func (s *ParticipantService) AddParticipant(ctx context.Context, competitionID, playerID string, opts AddParticipantOptions) (*models.CompetitionParticipant, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id is required", models.ErrValidation)
	}
	if opts.Status != models.ParticipantJoined && opts.Status != models.ParticipantInvited {
		return nil, fmt.Errorf("%w: participants can only be added as JOINED or INVITED", models.ErrValidation)
	}

	competition, err := s.getCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	switch CompetitionStatusAt(competition, time.Now(), s.Seasons) {
	case models.StatusCancelled, models.StatusEnded:
		return nil, ErrInactiveCompetition
	}

	if opts.Status == models.ParticipantJoined && !opts.Privileged &&
		competition.Visibility == models.VisibilityInviteOnly {
		return nil, ErrInviteOnly
	}
	if opts.Status == models.ParticipantInvited {
		if opts.InvitedBy == "" {
			return nil, fmt.Errorf("%w: invited_by is required for invitations", models.ErrValidation)
		}
		if opts.InvitedBy != competition.OwnerID && !s.Privileged.IsPrivilegedOwner(opts.InvitedBy) {
			return nil, ErrNotOwner
		}
	}

	// Early read for a precise error; the unique index still backs the case
	// where a row appears between this read and the insert.
	if existing, err := s.findParticipant(ctx, competitionID, playerID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, rejoinError(existing)
	}

	now := time.Now()
	participant := &models.CompetitionParticipant{
		ID:            uuid.NewString(),
		CompetitionID: competitionID,
		PlayerID:      playerID,
		Status:        opts.Status,
	}
	switch opts.Status {
	case models.ParticipantJoined:
		participant.JoinedAt = &now
	case models.ParticipantInvited:
		participant.InvitedAt = &now
		participant.InvitedBy = &opts.InvitedBy
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Postgres needs the competition row locked so concurrent inserts
		// serialize their capacity checks; sqlite's single writer already
		// serializes the guarded insert below.
		if tx.Dialector.Name() == "postgres" {
			var locked models.Competition
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&locked, "id = ?", competitionID).Error; err != nil {
				return fmt.Errorf("locking competition: %w", err)
			}
		}

		// Guarded insert: the row only lands if the active count is still
		// under the cap, evaluated inside this same statement.
		res := tx.Exec(`
			INSERT INTO competition_participants
				(id, competition_id, player_id, status, invited_by, invited_at, joined_at, left_at, created_at, updated_at)
			SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
			WHERE (SELECT COUNT(*) FROM competition_participants
			       WHERE competition_id = ? AND status <> ?) < ?`,
			participant.ID, participant.CompetitionID, participant.PlayerID, participant.Status,
			participant.InvitedBy, participant.InvitedAt, participant.JoinedAt, participant.LeftAt,
			now, now,
			competitionID, models.ParticipantLeft, competition.MaxParticipants)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMaximumParticipantsReached
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the duplicate race; re-read to report the right reason.
			if existing, lookupErr := s.findParticipant(ctx, competitionID, playerID); lookupErr == nil && existing != nil {
				return nil, rejoinError(existing)
			}
			return nil, ErrAlreadyParticipant
		}
		if errors.Is(err, ErrMaximumParticipantsReached) {
			return nil, ErrMaximumParticipantsReached
		}
		return nil, fmt.Errorf("inserting participant: %w", err)
	}

	participant.CreatedAt = now
	participant.UpdatedAt = now
	return participant, nil
}

// AcceptInvitation performs INVITED->JOINED. Capacity is not re-checked: the
// invite already reserved the slot. The conditional update makes the
// transition fire at most once, so JoinedAt is set exactly once and a second
// accept reports ErrAlreadyParticipant.
func (s *ParticipantService) AcceptInvitation(ctx context.Context, competitionID, playerID string) (*models.CompetitionParticipant, error) {
	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&models.CompetitionParticipant{}).
		Where("competition_id = ? AND player_id = ? AND status = ?",
			competitionID, playerID, models.ParticipantInvited).
		Updates(map[string]interface{}{"status": models.ParticipantJoined, "joined_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("accepting invitation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		existing, err := s.findParticipant(ctx, competitionID, playerID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrNotInvited
		}
		return nil, rejoinError(existing)
	}
	return s.mustFindParticipant(ctx, competitionID, playerID)
}

// Leave performs JOINED->LEFT or INVITED->LEFT. LEFT is terminal: the row
// stays forever and permanently blocks re-entry.
func (s *ParticipantService) Leave(ctx context.Context, competitionID, playerID string) (*models.CompetitionParticipant, error) {
	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&models.CompetitionParticipant{}).
		Where("competition_id = ? AND player_id = ? AND status <> ?",
			competitionID, playerID, models.ParticipantLeft).
		Updates(map[string]interface{}{"status": models.ParticipantLeft, "left_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("leaving competition: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		existing, err := s.findParticipant(ctx, competitionID, playerID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrNotParticipant
		}
		return nil, ErrCannotRejoin
	}
	return s.mustFindParticipant(ctx, competitionID, playerID)
}

// GetParticipantStatus reports the player's state in the competition; ABSENT
// when no row exists.
func (s *ParticipantService) GetParticipantStatus(ctx context.Context, competitionID, playerID string) (models.ParticipantStatus, error) {
	if _, err := s.getCompetition(ctx, competitionID); err != nil {
		return "", err
	}
	existing, err := s.findParticipant(ctx, competitionID, playerID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return models.ParticipantAbsent, nil
	}
	return existing.Status, nil
}

// ListParticipants returns every row for the competition, invited and left
// ones included, oldest first.
func (s *ParticipantService) ListParticipants(ctx context.Context, competitionID string) ([]models.CompetitionParticipant, error) {
	if _, err := s.getCompetition(ctx, competitionID); err != nil {
		return nil, err
	}
	var participants []models.CompetitionParticipant
	if err := s.DB.WithContext(ctx).
		Where("competition_id = ?", competitionID).
		Order("created_at ASC").
		Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	return participants, nil
}

// BulkEnrollResult aggregates per-player outcomes of a bulk enrollment. One
// stale player must not block enrolling the rest of a server, so failures are
// collected instead of aborting the batch.
type BulkEnrollResult struct {
	Requested int                 `json:"requested"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Failures  []BulkEnrollFailure `json:"failures,omitempty"`
}

type BulkEnrollFailure struct {
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason"`
}

// BulkEnroll joins many players in one operation. Only server-wide
// competitions support it. The N inserts run concurrently and independently;
// ordering among them is unspecified and each can fail on its own.
func (s *ParticipantService) BulkEnroll(ctx context.Context, competitionID string, playerIDs []string) (*BulkEnrollResult, error) {
	competition, err := s.getCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if competition.Visibility != models.VisibilityServerWide {
		return nil, ErrBulkNotAllowed
	}

	result := &BulkEnrollResult{Requested: len(playerIDs)}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(bulkEnrollConcurrency)
	for _, playerID := range playerIDs {
		playerID := playerID
		g.Go(func() error {
			_, addErr := s.AddParticipant(ctx, competitionID, playerID, AddParticipantOptions{
				Status:     models.ParticipantJoined,
				Privileged: true,
			})
			mu.Lock()
			defer mu.Unlock()
			if addErr != nil {
				result.Failed++
				result.Failures = append(result.Failures, BulkEnrollFailure{PlayerID: playerID, Reason: addErr.Error()})
			} else {
				result.Succeeded++
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, they collect them

	return result, nil
}

func (s *ParticipantService) getCompetition(ctx context.Context, competitionID string) (*models.Competition, error) {
	var competition models.Competition
	if err := s.DB.WithContext(ctx).First(&competition, "id = ?", competitionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("fetching competition: %w", err)
	}
	return &competition, nil
}

func (s *ParticipantService) findParticipant(ctx context.Context, competitionID, playerID string) (*models.CompetitionParticipant, error) {
	var participant models.CompetitionParticipant
	err := s.DB.WithContext(ctx).
		Where("competition_id = ? AND player_id = ?", competitionID, playerID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching participant: %w", err)
	}
	return &participant, nil
}

func (s *ParticipantService) mustFindParticipant(ctx context.Context, competitionID, playerID string) (*models.CompetitionParticipant, error) {
	participant, err := s.findParticipant(ctx, competitionID, playerID)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrNotParticipant
	}
	return participant, nil
}

func rejoinError(existing *models.CompetitionParticipant) error {
	if existing.Status == models.ParticipantLeft {
		return ErrCannotRejoin
	}
	return ErrAlreadyParticipant
}

// --- Fiber endpoints (orchestration layer) ---

type participantRequest struct {
	PlayerID string `json:"player_id"`
}

// JoinCompetition handles POST /competitions/:id/join.
func (s *ParticipantService) JoinCompetition(c *fiber.Ctx) error {
	var req participantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	participant, err := s.AddParticipant(c.Context(), c.Params("id"), req.PlayerID, AddParticipantOptions{
		Status: models.ParticipantJoined,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(participant)
}

// InviteParticipant handles POST /competitions/:id/invite. The inviter is the
// gateway user; the core verifies they own the competition.
func (s *ParticipantService) InviteParticipant(c *fiber.Ctx) error {
	inviterID, _ := c.Locals("user_id").(string)
	var req participantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	participant, err := s.AddParticipant(c.Context(), c.Params("id"), req.PlayerID, AddParticipantOptions{
		Status:    models.ParticipantInvited,
		InvitedBy: inviterID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(participant)
}

// AcceptInvitationEndpoint handles POST /competitions/:id/invites/accept.
func (s *ParticipantService) AcceptInvitationEndpoint(c *fiber.Ctx) error {
	var req participantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	participant, err := s.AcceptInvitation(c.Context(), c.Params("id"), req.PlayerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(participant)
}

// LeaveCompetition handles POST /competitions/:id/leave.
func (s *ParticipantService) LeaveCompetition(c *fiber.Ctx) error {
	var req participantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	participant, err := s.Leave(c.Context(), c.Params("id"), req.PlayerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(participant)
}

// BulkEnrollEndpoint handles POST /competitions/:id/enroll. Restricted to
// privileged owners or gateway admins.
func (s *ParticipantService) BulkEnrollEndpoint(c *fiber.Ctx) error {
	callerID, _ := c.Locals("user_id").(string)
	if !s.Privileged.IsPrivilegedOwner(callerID) && !hasRole(c, "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "bulk enrollment requires admin privileges"})
	}

	var req struct {
		PlayerIDs []string `json:"player_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if len(req.PlayerIDs) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "player_ids is required"})
	}

	result, err := s.BulkEnroll(c.Context(), c.Params("id"), req.PlayerIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetParticipant handles GET /competitions/:id/participants/:player_id.
func (s *ParticipantService) GetParticipant(c *fiber.Ctx) error {
	status, err := s.GetParticipantStatus(c.Context(), c.Params("id"), c.Params("player_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"player_id": c.Params("player_id"), "status": status})
}

// GetParticipants handles GET /competitions/:id/participants.
func (s *ParticipantService) GetParticipants(c *fiber.Ctx) error {
	participants, err := s.ListParticipants(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"participants": participants, "count": len(participants)})
}

func hasRole(c *fiber.Ctx, role string) bool {
	roles, _ := c.Locals("user_roles").([]string)
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
