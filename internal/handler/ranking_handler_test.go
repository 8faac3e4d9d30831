package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/igoultra/ultrabackend/internal/model"
)

type mockLeaderboard struct {
	listFn func(ctx context.Context, seasonID string, track model.LayerTrack, realLayer, cyberLayer string, top int) ([]*model.LeaderboardEntryWithUser, error)
}

var _ LeaderboardInterface = (*mockLeaderboard)(nil)

func (m *mockLeaderboard) List(ctx context.Context, seasonID string, track model.LayerTrack, realLayer, cyberLayer string, top int) ([]*model.LeaderboardEntryWithUser, error) {
	if m.listFn != nil {
		return m.listFn(ctx, seasonID, track, realLayer, cyberLayer, top)
	}
	return nil, nil
}

// TestGetLeaderboard_ReturnsEntries はスナップショットの取得と
// 両トラックのLayer同梱を検証する。
func TestGetLeaderboard_ReturnsEntries(t *testing.T) {
	lb := &mockLeaderboard{
		listFn: func(ctx context.Context, seasonID string, track model.LayerTrack, realLayer, cyberLayer string, top int) ([]*model.LeaderboardEntryWithUser, error) {
			return []*model.LeaderboardEntryWithUser{
				{
					LeaderboardEntry: model.LeaderboardEntry{
						UserID:     "u-1",
						Track:      model.LayerTrackRealLife,
						Xp:         1200,
						RealLayer:  "FlowLayer",
						CyberLayer: "DeepNetLayer",
					},
					UltraName: "UltraRunner",
					Level:     8,
				},
			}, nil
		},
	}
	h := NewRankingHandler(lb)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rankings/leaderboard?season=season-1", nil)
	w := httptest.NewRecorder()

	h.GetLeaderboard(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		SeasonID string `json:"season_id"`
		Entries  []struct {
			Position   int    `json:"position"`
			UltraName  string `json:"ultra_name"`
			Xp         int    `json:"xp"`
			RealLayer  string `json:"real_layer"`
			CyberLayer string `json:"cyber_layer"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SeasonID != "season-1" {
		t.Errorf("season_id = %q, want season-1", resp.SeasonID)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(resp.Entries))
	}
	e := resp.Entries[0]
	if e.Position != 1 || e.UltraName != "UltraRunner" || e.Xp != 1200 {
		t.Errorf("entry = %+v", e)
	}
	// 両トラックの段位が常に含まれる
	if e.RealLayer != "FlowLayer" || e.CyberLayer != "DeepNetLayer" {
		t.Errorf("layers = (%q, %q), want (FlowLayer, DeepNetLayer)", e.RealLayer, e.CyberLayer)
	}
}

// TestGetLeaderboard_MissingSeason はseasonパラメータなしで400になることを検証する。
func TestGetLeaderboard_MissingSeason(t *testing.T) {
	h := NewRankingHandler(&mockLeaderboard{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rankings/leaderboard", nil)
	w := httptest.NewRecorder()

	h.GetLeaderboard(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// TestGetLeaderboard_PassesFilters はクエリパラメータの受け渡しを検証する。
func TestGetLeaderboard_PassesFilters(t *testing.T) {
	var gotTrack model.LayerTrack
	var gotReal, gotCyber string
	var gotTop int
	lb := &mockLeaderboard{
		listFn: func(ctx context.Context, seasonID string, track model.LayerTrack, realLayer, cyberLayer string, top int) ([]*model.LeaderboardEntryWithUser, error) {
			gotTrack = track
			gotReal = realLayer
			gotCyber = cyberLayer
			gotTop = top
			return nil, nil
		},
	}
	h := NewRankingHandler(lb)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/rankings/leaderboard?season=season-1&track=Cyber&real_layer=FlowLayer&cyber_layer=DeepNetLayer&top=25", nil)
	w := httptest.NewRecorder()

	h.GetLeaderboard(w, req)

	if gotTrack != model.LayerTrackCyber {
		t.Errorf("track = %q, want Cyber", gotTrack)
	}
	if gotReal != "FlowLayer" || gotCyber != "DeepNetLayer" {
		t.Errorf("layer filters = (%q, %q)", gotReal, gotCyber)
	}
	if gotTop != 25 {
		t.Errorf("top = %d, want 25", gotTop)
	}
}

// TestGetLeaderboard_InvalidTrack は未定義トラックで400になることを検証する。
func TestGetLeaderboard_InvalidTrack(t *testing.T) {
	lb := &mockLeaderboard{
		listFn: func(ctx context.Context, seasonID string, track model.LayerTrack, realLayer, cyberLayer string, top int) ([]*model.LeaderboardEntryWithUser, error) {
			return nil, model.NewInvalidTrackError(string(track))
		},
	}
	h := NewRankingHandler(lb)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rankings/leaderboard?season=season-1&track=Astral", nil)
	w := httptest.NewRecorder()

	h.GetLeaderboard(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
