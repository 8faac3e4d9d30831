package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/igoultra/ultrabackend/internal/middleware"
	"github.com/igoultra/ultrabackend/internal/model"
)

// MissionServiceInterface はミッションハンドラーが必要とするサービスインターフェース。
type MissionServiceInterface interface {
	// ListActive は現在受付中のミッション一覧を返す。
	ListActive(ctx context.Context) ([]*model.Mission, error)
	// ProgressForUser はユーザーのミッション進捗一覧を返す。
	ProgressForUser(ctx context.Context, userID string) ([]*model.MissionProgressWithMission, error)
}

// MissionHandler はミッションのHTTPハンドラー。
type MissionHandler struct {
	service MissionServiceInterface
}

// NewMissionHandler はMissionHandlerを生成する。
func NewMissionHandler(service MissionServiceInterface) *MissionHandler {
	return &MissionHandler{service: service}
}

// missionResponse はミッション定義のAPIレスポンス。
type missionResponse struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Type             string     `json:"type"`
	Unit             string     `json:"unit"`
	TargetValue      int        `json:"target_value"`
	XpReward         int        `json:"xp_reward"`
	GoldReward       int        `json:"gold_reward"`
	UltraPointReward int        `json:"ultra_point_reward"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	SeasonID         *string    `json:"season_id,omitempty"`
}

// missionProgressResponse はミッション進捗のAPIレスポンス。
type missionProgressResponse struct {
	Mission      missionResponse `json:"mission"`
	CurrentValue int             `json:"current_value"`
	IsCompleted  bool            `json:"is_completed"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// ListMissions は現在受付中のミッション一覧を返す。
// GET /api/v1/missions
func (h *MissionHandler) ListMissions(w http.ResponseWriter, r *http.Request) {
	missions, err := h.service.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]missionResponse, len(missions))
	for i, m := range missions {
		results[i] = toMissionResponse(m)
	}
	writeJSONResponse(w, http.StatusOK, results)
}

// ListProgress は現在のユーザーのミッション進捗一覧を返す。
// GET /api/v1/missions/progress
func (h *MissionHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	progress, err := h.service.ProgressForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]missionProgressResponse, len(progress))
	for i, p := range progress {
		results[i] = missionProgressResponse{
			Mission:      toMissionResponse(&p.Mission),
			CurrentValue: p.CurrentValue,
			IsCompleted:  p.IsCompleted,
			CompletedAt:  p.CompletedAt,
		}
	}
	writeJSONResponse(w, http.StatusOK, results)
}

// toMissionResponse はmodel.MissionからAPIレスポンスに変換する。
func toMissionResponse(m *model.Mission) missionResponse {
	return missionResponse{
		ID:               m.ID,
		Title:            m.Title,
		Description:      m.Description,
		Type:             string(m.Type),
		Unit:             m.Unit,
		TargetValue:      m.TargetValue,
		XpReward:         m.XpReward,
		GoldReward:       m.GoldReward,
		UltraPointReward: m.UltraPointReward,
		StartTime:        m.StartTime,
		EndTime:          m.EndTime,
		SeasonID:         m.SeasonID,
	}
}
