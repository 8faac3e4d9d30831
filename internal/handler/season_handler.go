package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/igoultra/ultrabackend/internal/model"
)

// SeasonServiceInterface はSeasonハンドラーが必要とするサービスインターフェース。
type SeasonServiceInterface interface {
	// ActiveWindow は指定時刻に集計対象となるSeasonを返す。該当なしはnil。
	ActiveWindow(ctx context.Context, at time.Time) (*model.Season, error)
}

// LiveRankingInterface はSeason進行中のライブランキング取得インターフェース。
type LiveRankingInterface interface {
	Ranked(ctx context.Context, seasonID string, track model.LayerTrack) ([]*model.SeasonXp, error)
}

// RolloverRunner はSeason締め処理の実行インターフェース。
type RolloverRunner interface {
	Run(ctx context.Context, seasonID string) error
}

// SeasonHandler はSeason関連のHTTPハンドラー。
type SeasonHandler struct {
	service  SeasonServiceInterface
	ranking  LiveRankingInterface
	rollover RolloverRunner
}

// NewSeasonHandler はSeasonHandlerを生成する。
func NewSeasonHandler(service SeasonServiceInterface, ranking LiveRankingInterface, rollover RolloverRunner) *SeasonHandler {
	return &SeasonHandler{
		service:  service,
		ranking:  ranking,
		rollover: rollover,
	}
}

// seasonResponse はSeason情報のAPIレスポンス。
type seasonResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	IsActive bool      `json:"is_active"`
}

// seasonRankingEntryResponse はライブランキング1行のAPIレスポンス。
type seasonRankingEntryResponse struct {
	Position int    `json:"position"`
	UserID   string `json:"user_id"`
	Xp       int    `json:"xp"`
}

// seasonRankingResponse はライブランキングのAPIレスポンス。
type seasonRankingResponse struct {
	SeasonID string                       `json:"season_id"`
	Track    string                       `json:"track"`
	Entries  []seasonRankingEntryResponse `json:"entries"`
}

// GetActive は現在集計対象のSeasonを返す。
// GET /api/v1/seasons/active
func (h *SeasonHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	season, err := h.service.ActiveWindow(r.Context(), time.Now())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if season == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNoActiveSeasonError())
		return
	}

	writeJSONResponse(w, http.StatusOK, toSeasonResponse(season))
}

// GetRanking は進行中Seasonのライブランキングを返す。
// GET /api/v1/seasons/{id}/ranking?track=Real-Life
func (h *SeasonHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	seasonID := chi.URLParam(r, "id")
	track := model.LayerTrack(r.URL.Query().Get("track"))
	if track == "" {
		track = model.LayerTrackRealLife
	}

	entries, err := h.ranking.Ranked(r.Context(), seasonID, track)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := seasonRankingResponse{
		SeasonID: seasonID,
		Track:    string(track),
		Entries:  make([]seasonRankingEntryResponse, len(entries)),
	}
	for i, e := range entries {
		resp.Entries[i] = seasonRankingEntryResponse{
			Position: i + 1,
			UserID:   e.UserID,
			Xp:       e.Xp,
		}
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// TriggerRollover はSeason締め処理を手動で実行する。
// オペレータートークンの検証はミドルウェアで行う。
// POST /api/v1/seasons/{id}/rollover
func (h *SeasonHandler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	seasonID := chi.URLParam(r, "id")

	if err := h.rollover.Run(r.Context(), seasonID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"season_id": seasonID,
		"status":    "rolled_over",
	})
}

// toSeasonResponse はmodel.SeasonからAPIレスポンスに変換する。
func toSeasonResponse(s *model.Season) seasonResponse {
	return seasonResponse{
		ID:       s.ID,
		Name:     s.Name,
		Start:    s.Start,
		End:      s.End,
		IsActive: s.IsActive,
	}
}
