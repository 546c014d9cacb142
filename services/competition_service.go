package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"competition-system/models"
	"competition-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// CompetitionService is the competition registry: it creates and reads
// competitions and derives their lifecycle status. Join/invite traffic goes
// through ParticipantService instead.
type CompetitionService struct {
	DB       *gorm.DB
	Limits   *LimitValidator
	Limiter  *CreationRateLimiter
	Seasons  SeasonCalendar
	Cooldown time.Duration
}

func NewCompetitionService(db *gorm.DB, limits *LimitValidator, limiter *CreationRateLimiter, seasons SeasonCalendar, cooldown time.Duration) *CompetitionService {
	return &CompetitionService{DB: db, Limits: limits, Limiter: limiter, Seasons: seasons, Cooldown: cooldown}
}

// CreateCompetitionInput carries an already-shaped creation request. Dates and
// Criteria arrive as union values built through their factories.
type CreateCompetitionInput struct {
	ServerID  string
	OwnerID   string
	ChannelID string

	Title       string
	Description string

	Visibility      models.Visibility
	MaxParticipants int // 0 means the default

	Dates    models.CompetitionDates
	Criteria models.Criteria

	BannerURL string
}

// Create validates the input, enforces the owner/server caps and persists the
// competition. The rate limiter is fed only after a successful insert.
func (s *CompetitionService) Create(ctx context.Context, in CreateCompetitionInput) (*models.Competition, error) {
	if err := validateCreateInput(&in); err != nil {
		return nil, err
	}

	if err := s.Limits.ValidateOwnerLimit(ctx, in.ServerID, in.OwnerID); err != nil {
		return nil, err
	}
	if err := s.Limits.ValidateServerLimit(ctx, in.ServerID, in.OwnerID); err != nil {
		return nil, err
	}

	competition := &models.Competition{
		ID:              uuid.NewString(),
		ServerID:        in.ServerID,
		OwnerID:         in.OwnerID,
		ChannelID:       in.ChannelID,
		Title:           in.Title,
		Slug:            slug.Make(in.Title),
		Description:     in.Description,
		Visibility:      in.Visibility,
		MaxParticipants: in.MaxParticipants,
		Dates:           in.Dates,
		Criteria:        in.Criteria,
		BannerURL:       in.BannerURL,
	}

	if err := s.DB.WithContext(ctx).Create(competition).Error; err != nil {
		return nil, fmt.Errorf("inserting competition: %w", err)
	}

	s.Limiter.RecordCreation(in.ServerID, in.OwnerID)
	return competition, nil
}

// GetByID loads one competition; ErrCompetitionNotFound when absent.
func (s *CompetitionService) GetByID(ctx context.Context, id string) (*models.Competition, error) {
	var competition models.Competition
	if err := s.DB.WithContext(ctx).First(&competition, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("fetching competition: %w", err)
	}
	return &competition, nil
}

// StatusAt derives the competition's status at the given instant.
func (s *CompetitionService) StatusAt(c *models.Competition, now time.Time) models.CompetitionStatus {
	return CompetitionStatusAt(c, now, s.Seasons)
}

// Cancel flips IsCancelled, once. Only the owner or a privileged owner may
// cancel; cancelling twice is a no-op.
func (s *CompetitionService) Cancel(ctx context.Context, id, callerID string) (*models.Competition, error) {
	competition, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID != competition.OwnerID && !s.Limits.Privileged.IsPrivilegedOwner(callerID) {
		return nil, ErrNotOwner
	}
	if competition.IsCancelled {
		return competition, nil
	}

	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&models.Competition{}).
		Where("id = ? AND is_cancelled = ?", id, false).
		Updates(map[string]interface{}{"is_cancelled": true, "cancelled_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("cancelling competition: %w", res.Error)
	}
	return s.GetByID(ctx, id)
}

// ListByServer returns the server's competitions, newest first, with live
// participant counts filled in.
func (s *CompetitionService) ListByServer(ctx context.Context, serverID string) ([]models.Competition, error) {
	var competitions []models.Competition
	if err := s.DB.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("created_at DESC").
		Find(&competitions).Error; err != nil {
		return nil, fmt.Errorf("listing competitions: %w", err)
	}
	for i := range competitions {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.CompetitionParticipant{}).
			Where("competition_id = ? AND status <> ?", competitions[i].ID, models.ParticipantLeft).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("counting participants: %w", err)
		}
		competitions[i].ActiveParticipants = count
		competitions[i].AvailableSlots = int64(competitions[i].MaxParticipants) - count
	}
	return competitions, nil
}

func validateCreateInput(in *CreateCompetitionInput) error {
	if in.ServerID == "" || in.OwnerID == "" || in.ChannelID == "" {
		return fmt.Errorf("%w: server_id, owner_id and channel_id are required", models.ErrValidation)
	}
	if n := len(strings.TrimSpace(in.Title)); n < 1 || len(in.Title) > models.MaxTitleLen {
		return fmt.Errorf("%w: title must be 1-%d characters", models.ErrValidation, models.MaxTitleLen)
	}
	if n := len(strings.TrimSpace(in.Description)); n < 1 || len(in.Description) > models.MaxDescriptionLen {
		return fmt.Errorf("%w: description must be 1-%d characters", models.ErrValidation, models.MaxDescriptionLen)
	}
	if in.Visibility == "" {
		in.Visibility = models.VisibilityOpen
	}
	if !models.ValidVisibility(in.Visibility) {
		return fmt.Errorf("%w: unknown visibility %q", models.ErrValidation, in.Visibility)
	}
	if in.MaxParticipants == 0 {
		in.MaxParticipants = models.DefaultMaxParticipants
	}
	if in.MaxParticipants < models.MinParticipants || in.MaxParticipants > models.MaxParticipantsCeiling {
		return fmt.Errorf("%w: max_participants must be between %d and %d",
			models.ErrValidation, models.MinParticipants, models.MaxParticipantsCeiling)
	}
	if err := in.Dates.Validate(); err != nil {
		return err
	}
	return in.Criteria.Validate()
}

// --- Fiber endpoints (orchestration layer) ---

// CreateCompetition handles POST /competitions. Multipart form, optional
// banner upload, owner taken from the gateway user context.
func (s *CompetitionService) CreateCompetition(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	if ownerID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	serverID := c.FormValue("server_id")

	// Creation cooldown is orchestration policy: the limiter itself only
	// remembers timestamps.
	if s.Limiter.OnCooldown(serverID, ownerID, s.Cooldown) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "competition created too recently, slow down"})
	}

	in := CreateCompetitionInput{
		ServerID:    serverID,
		OwnerID:     ownerID,
		ChannelID:   c.FormValue("channel_id"),
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Visibility:  models.Visibility(strings.ToUpper(c.FormValue("visibility"))),
	}

	if maxStr := c.FormValue("max_participants"); maxStr != "" {
		n, err := strconv.Atoi(maxStr)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "max_participants must be an integer"})
		}
		in.MaxParticipants = n
	}

	dates, err := parseDatesForm(c)
	if err != nil {
		return respondError(c, err)
	}
	in.Dates = dates

	criteria, err := parseCriteriaForm(c)
	if err != nil {
		return respondError(c, err)
	}
	in.Criteria = criteria

	// Optional banner: R2 when configured, local uploads dir otherwise.
	if banner, err := c.FormFile("banner"); err == nil && banner.Size > 0 {
		ext := filepath.Ext(banner.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		key := "competitions/banners/" + uuid.NewString() + ext
		if utils.R2Enabled() {
			url, err := utils.UploadFileToR2(banner, key)
			if err != nil {
				log.Printf("[COMPETITIONS] banner upload failed: %v", err)
				return c.Status(500).JSON(fiber.Map{"error": "failed to upload banner"})
			}
			in.BannerURL = url
		} else {
			dest := utils.GetUploadPath(key)
			if err := utils.SaveFile(banner, dest); err != nil {
				log.Printf("[COMPETITIONS] banner save failed: %v", err)
				return c.Status(500).JSON(fiber.Map{"error": "failed to store banner"})
			}
			in.BannerURL = "/uploads/" + key
		}
	}

	competition, err := s.Create(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(competition)
}

// GetCompetition handles GET /competitions/:id.
func (s *CompetitionService) GetCompetition(c *fiber.Ctx) error {
	competition, err := s.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(competition)
}

// GetCompetitionStatus handles GET /competitions/:id/status.
func (s *CompetitionService) GetCompetitionStatus(c *fiber.Ctx) error {
	competition, err := s.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"id":     competition.ID,
		"status": s.StatusAt(competition, time.Now()),
	})
}

// CancelCompetition handles POST /competitions/:id/cancel.
func (s *CompetitionService) CancelCompetition(c *fiber.Ctx) error {
	callerID, _ := c.Locals("user_id").(string)
	competition, err := s.Cancel(c.Context(), c.Params("id"), callerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(competition)
}

// ListCompetitions handles GET /competitions?server_id=...
func (s *CompetitionService) ListCompetitions(c *fiber.Ctx) error {
	serverID := c.Query("server_id")
	if serverID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "server_id query param required"})
	}
	competitions, err := s.ListByServer(c.Context(), serverID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"competitions": competitions, "count": len(competitions)})
}

func parseDatesForm(c *fiber.Ctx) (models.CompetitionDates, error) {
	seasonID := c.FormValue("season_id")
	startStr := c.FormValue("start_time")
	endStr := c.FormValue("end_time")

	if seasonID != "" {
		if startStr != "" || endStr != "" {
			return models.CompetitionDates{}, fmt.Errorf("%w: provide either season_id or start_time/end_time, not both", models.ErrValidation)
		}
		return models.NewSeasonDates(seasonID)
	}
	if startStr == "" || endStr == "" {
		return models.CompetitionDates{}, fmt.Errorf("%w: start_time and end_time are required without a season_id", models.ErrValidation)
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return models.CompetitionDates{}, fmt.Errorf("%w: invalid start_time (use RFC3339)", models.ErrValidation)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return models.CompetitionDates{}, fmt.Errorf("%w: invalid end_time (use RFC3339)", models.ErrValidation)
	}
	return models.NewFixedDates(start, end)
}

func parseCriteriaForm(c *fiber.Ctx) (models.Criteria, error) {
	criteriaType := models.CriteriaType(strings.ToUpper(c.FormValue("criteria_type")))
	queue := c.FormValue("criteria_queue")

	switch criteriaType {
	case models.CriteriaMostGamesPlayed:
		return models.NewMostGamesPlayedCriteria(queue), nil
	case models.CriteriaHighestRank:
		return models.NewHighestRankCriteria(queue)
	case models.CriteriaMostRankClimb:
		return models.NewMostRankClimbCriteria(queue)
	case models.CriteriaMostWinsPlayer:
		return models.NewMostWinsPlayerCriteria(queue), nil
	case models.CriteriaMostWinsChamp:
		championID, err := strconv.Atoi(c.FormValue("criteria_champion_id"))
		if err != nil {
			return models.Criteria{}, fmt.Errorf("%w: criteria_champion_id must be an integer", models.ErrValidation)
		}
		return models.NewMostWinsChampionCriteria(championID)
	case models.CriteriaHighestWinRate:
		minGames := 0
		if mgStr := c.FormValue("criteria_min_games"); mgStr != "" {
			n, err := strconv.Atoi(mgStr)
			if err != nil {
				return models.Criteria{}, fmt.Errorf("%w: criteria_min_games must be an integer", models.ErrValidation)
			}
			minGames = n
		}
		return models.NewHighestWinRateCriteria(minGames, queue), nil
	}
	return models.Criteria{}, fmt.Errorf("%w: unknown criteria_type %q", models.ErrValidation, criteriaType)
}
