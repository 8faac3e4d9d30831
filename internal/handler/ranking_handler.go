package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/igoultra/ultrabackend/internal/model"
)

// LeaderboardInterface はスナップショットランキングの取得インターフェース。
type LeaderboardInterface interface {
	List(ctx context.Context, seasonID string, track model.LayerTrack, realLayer, cyberLayer string, top int) ([]*model.LeaderboardEntryWithUser, error)
}

// RankingHandler はランキングスナップショットのHTTPハンドラー。
type RankingHandler struct {
	leaderboard LeaderboardInterface
}

// NewRankingHandler はRankingHandlerを生成する。
func NewRankingHandler(leaderboard LeaderboardInterface) *RankingHandler {
	return &RankingHandler{leaderboard: leaderboard}
}

// leaderboardEntryResponse はスナップショット1行のAPIレスポンス。
// 両トラックのLayer配置を常に含む（片トラック表示はクライアント側の投影）。
type leaderboardEntryResponse struct {
	Position   int    `json:"position"`
	UserID     string `json:"user_id"`
	UltraName  string `json:"ultra_name"`
	Level      int    `json:"level"`
	Track      string `json:"track"`
	Xp         int    `json:"xp"`
	RealLayer  string `json:"real_layer"`
	CyberLayer string `json:"cyber_layer"`
}

// leaderboardResponse はスナップショットランキングのAPIレスポンス。
type leaderboardResponse struct {
	SeasonID string                     `json:"season_id"`
	Entries  []leaderboardEntryResponse `json:"entries"`
}

// GetLeaderboard はSeason終了時点のランキングスナップショットを返す。
// GET /api/v1/rankings/leaderboard?season=xxx&track=Real-Life&real_layer=&cyber_layer=&top=100
func (h *RankingHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	seasonID := q.Get("season")
	if seasonID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "seasonパラメータが空です。",
			Category: "validation",
			Action:   "対象SeasonのIDを指定してください。",
		})
		return
	}

	track := model.LayerTrack(q.Get("track"))
	top := 0
	if raw := q.Get("top"); raw != "" {
		top, _ = strconv.Atoi(raw)
	}

	entries, err := h.leaderboard.List(r.Context(), seasonID, track, q.Get("real_layer"), q.Get("cyber_layer"), top)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := leaderboardResponse{
		SeasonID: seasonID,
		Entries:  make([]leaderboardEntryResponse, len(entries)),
	}
	for i, e := range entries {
		resp.Entries[i] = leaderboardEntryResponse{
			Position:   i + 1,
			UserID:     e.UserID,
			UltraName:  e.UltraName,
			Level:      e.Level,
			Track:      string(e.Track),
			Xp:         e.Xp,
			RealLayer:  e.RealLayer,
			CyberLayer: e.CyberLayer,
		}
	}
	writeJSONResponse(w, http.StatusOK, resp)
}
