package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/igoultra/ultrabackend/internal/middleware"
	"github.com/igoultra/ultrabackend/internal/model"
	"github.com/igoultra/ultrabackend/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Profile はユーザーのプロフィールを取得する。
	Profile(ctx context.Context, userID string) (*model.User, error)
	// UpdateProfile はultra_nameとアバターURLを更新する。
	UpdateProfile(ctx context.Context, userID string, in user.UpdateProfileInput) (*model.User, error)
	// Withdraw はユーザーの退会処理を実行する。
	Withdraw(ctx context.Context, userID string) error
}

// XpStatsProvider はプロフィールに同梱するXP統計の取得インターフェース。
type XpStatsProvider interface {
	Stats(ctx context.Context, userID string) (*model.XpStats, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	stats   XpStatsProvider
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, stats XpStatsProvider) *UserHandler {
	return &UserHandler{
		service: service,
		stats:   stats,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// 省略されたフィールドは変更しない。
type updateProfileRequest struct {
	UltraName *string `json:"ultra_name"`
	AvatarURL *string `json:"avatar_url"`
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	ID         string         `json:"id"`
	UltraName  string         `json:"ultra_name"`
	Email      string         `json:"email,omitempty"`
	Level      int            `json:"level"`
	Rank       string         `json:"rank"`
	RealLayer  string         `json:"real_layer"`
	CyberLayer string         `json:"cyber_layer"`
	AvatarURL  string         `json:"avatar_url"`
	CreatedAt  time.Time      `json:"created_at"`
	XpStats    *model.XpStats `json:"xp_stats,omitempty"`
}

// GetProfile は現在のユーザーのプロフィールとXP統計を返す。
// GET /api/v1/user/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	stats, err := h.stats.Stats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toProfileResponse(profile, stats))
}

// UpdateProfile はultra_nameとアバターURLを更新する。
// PATCH /api/v1/user/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.UltraName == nil && req.AvatarURL == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "更新対象のフィールドが指定されていません。",
			Category: "validation",
			Action:   "ultra_name または avatar_url を指定してください。",
		})
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, user.UpdateProfileInput{
		UltraName: req.UltraName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toProfileResponse(profile, nil))
}

// Withdraw は現在のユーザーを退会させる。
// DELETE /api/v1/user/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// toProfileResponse はmodel.UserからAPIレスポンスに変換する。
func toProfileResponse(u *model.User, stats *model.XpStats) profileResponse {
	return profileResponse{
		ID:         u.ID,
		UltraName:  u.UltraName,
		Email:      u.Email,
		Level:      u.Level,
		Rank:       u.Rank,
		RealLayer:  u.RealLayer,
		CyberLayer: u.CyberLayer,
		AvatarURL:  u.AvatarURL,
		CreatedAt:  u.CreatedAt,
		XpStats:    stats,
	}
}
