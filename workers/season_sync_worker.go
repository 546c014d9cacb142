package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"competition-system/models"
	"competition-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// seasonFromCalendar matches the JSON the game-data service returns for one
// season.
type seasonFromCalendar struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

type getSeasonsResponse struct {
	Seasons []seasonFromCalendar `json:"seasons"`
}

// SeasonSyncWorker mirrors the external season calendar into the local seasons
// table. Competition status derivation for SEASON-dated competitions reads the
// mirror, never the remote service.
type SeasonSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewSeasonSyncWorker(db *gorm.DB, gameDataBaseURL, serviceToken string) *SeasonSyncWorker {
	return &SeasonSyncWorker{
		db:           db,
		interval:     15 * time.Minute,
		baseURL:      gameDataBaseURL,
		endpointPath: "/api/v1/public/seasons",
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

// Start runs the sync loop until the context is cancelled. The first sync
// fires immediately so a fresh deployment is usable without waiting an
// interval.
func (w *SeasonSyncWorker) Start(ctx context.Context) {
	if err := w.syncOnce(ctx); err != nil {
		log.Printf("[SEASON_SYNC] initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("[SEASON_SYNC] stopping")
			return
		case <-ticker.C:
			if err := w.syncOnce(ctx); err != nil {
				log.Printf("[SEASON_SYNC] sync failed: %v", err)
			}
		}
	}
}

func (w *SeasonSyncWorker) syncOnce(ctx context.Context) error {
	seasons, err := w.fetchSeasons(ctx)
	if err != nil {
		return err
	}
	if len(seasons) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]models.Season, 0, len(seasons))
	for _, s := range seasons {
		if s.ID == "" || !s.StartAt.Before(s.EndAt) {
			log.Printf("[SEASON_SYNC] skipping malformed season %q", s.ID)
			continue
		}
		rows = append(rows, models.Season{
			ID:       s.ID,
			Name:     s.Name,
			StartAt:  s.StartAt,
			EndAt:    s.EndAt,
			SyncedAt: now,
		})
	}

	// Bulk upsert: one statement, new seasons inserted, known ones refreshed.
	if err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rows).Error; err != nil {
		return fmt.Errorf("upserting seasons: %w", err)
	}

	log.Printf("[SEASON_SYNC] synced %d seasons", len(rows))
	return nil
}

func (w *SeasonSyncWorker) fetchSeasons(ctx context.Context) ([]seasonFromCalendar, error) {
	u, err := url.Parse(w.baseURL + w.endpointPath)
	if err != nil {
		return nil, fmt.Errorf("parsing season calendar URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling season calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("season calendar returned %d: %s", resp.StatusCode, body)
	}

	var payload getSeasonsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding season calendar response: %w", err)
	}
	return payload.Seasons, nil
}
