package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/igoultra/ultrabackend/internal/middleware"
	"github.com/igoultra/ultrabackend/internal/model"
)

// SkillServiceInterface はSkillハンドラーが必要とするサービスインターフェース。
type SkillServiceInterface interface {
	// StatsForUser はユーザーのキャラクターステータスを返す。
	StatsForUser(ctx context.Context, userID string) (*model.CharacterStats, error)
	// AvailableSkills はSkillカタログと解放可否を返す。
	AvailableSkills(ctx context.Context, userID string) ([]*model.SkillAvailability, error)
	// Unlock はSkillを解放する。
	Unlock(ctx context.Context, userID, skillID string) (*model.Skill, error)
}

// SkillHandler はSkillツリーのHTTPハンドラー。
type SkillHandler struct {
	service SkillServiceInterface
}

// NewSkillHandler はSkillHandlerを生成する。
func NewSkillHandler(service SkillServiceInterface) *SkillHandler {
	return &SkillHandler{service: service}
}

// skillResponse はSkill1件のAPIレスポンス。
type skillResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	RequiredLevel int            `json:"required_level"`
	RequiredStats map[string]int `json:"required_stats,omitempty"`
	IsUnlocked    bool           `json:"is_unlocked"`
	CanUnlock     bool           `json:"can_unlock"`
	Reason        string         `json:"reason,omitempty"`
}

// characterStatsResponse はキャラクターステータスのAPIレスポンス。
type characterStatsResponse struct {
	UserID    string         `json:"user_id"`
	Stats     map[string]int `json:"stats"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ListSkills はSkillカタログと現在のユーザーの解放可否を返す。
// GET /api/v1/skills
func (h *SkillHandler) ListSkills(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	skills, err := h.service.AvailableSkills(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]skillResponse, len(skills))
	for i, s := range skills {
		results[i] = skillResponse{
			ID:            s.Skill.ID,
			Name:          s.Skill.Name,
			Description:   s.Skill.Description,
			Category:      string(s.Skill.Category),
			RequiredLevel: s.Skill.RequiredLevel,
			RequiredStats: s.Skill.RequiredStats,
			IsUnlocked:    s.IsUnlocked,
			CanUnlock:     s.CanUnlock,
			Reason:        s.Reason,
		}
	}
	writeJSONResponse(w, http.StatusOK, results)
}

// GetStats は現在のユーザーのキャラクターステータスを返す。
// GET /api/v1/skills/stats
func (h *SkillHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	stats, err := h.service.StatsForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, characterStatsResponse{
		UserID:    stats.UserID,
		Stats:     stats.Stats,
		UpdatedAt: stats.UpdatedAt,
	})
}

// UnlockSkill はSkillを解放する。
// POST /api/v1/skills/{id}/unlock
func (h *SkillHandler) UnlockSkill(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	skillID := chi.URLParam(r, "id")

	skill, err := h.service.Unlock(r.Context(), userID, skillID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"skill_id": skill.ID,
		"name":     skill.Name,
		"status":   "unlocked",
	})
}
