package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/igoultra/ultrabackend/internal/middleware"
	"github.com/igoultra/ultrabackend/internal/model"
	"github.com/igoultra/ultrabackend/internal/xp"
)

// XpServiceInterface はXPハンドラーが必要とするサービスインターフェース。
type XpServiceInterface interface {
	// Grant はアクティビティ実績に応じたXPを付与する。
	Grant(ctx context.Context, in xp.GrantInput) (*model.XpStats, error)
	// Stats はユーザーの現在のXP統計を返す。
	Stats(ctx context.Context, userID string) (*model.XpStats, error)
	// History はユーザーのXPイベント履歴を新しい順に返す。
	History(ctx context.Context, userID string, cursor time.Time, cursorID string, limit int) ([]*model.XpEvent, bool, error)
	// Activities はActivityTypeカタログを返す。
	Activities(ctx context.Context) ([]*model.ActivityType, error)
}

// XpHandler はXP付与・参照のHTTPハンドラー。
type XpHandler struct {
	service XpServiceInterface
}

// NewXpHandler はXpHandlerを生成する。
func NewXpHandler(service XpServiceInterface) *XpHandler {
	return &XpHandler{service: service}
}

// grantXpRequest はXP付与リクエストのボディ。
type grantXpRequest struct {
	ActivityKey string         `json:"activity_key"`
	Units       float64        `json:"units"`
	Track       string         `json:"track"`
	Metadata    map[string]any `json:"metadata"`
}

// activityTypeResponse はActivityTypeカタログのAPIレスポンス。
type activityTypeResponse struct {
	ID          string  `json:"id"`
	Key         string  `json:"key"`
	DisplayName string  `json:"display_name"`
	XpPerUnit   float64 `json:"xp_per_unit"`
	Unit        string  `json:"unit"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

// xpEventResponse はXPイベントのAPIレスポンス。
type xpEventResponse struct {
	ID        string         `json:"id"`
	Amount    int            `json:"amount"`
	Source    string         `json:"source"`
	Track     string         `json:"track"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// xpHistoryResponse はXP履歴のページングレスポンス。
type xpHistoryResponse struct {
	Events     []xpEventResponse `json:"events"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}

// ListActivityTypes はActivityTypeカタログを返す。
// GET /api/v1/xp/types
func (h *XpHandler) ListActivityTypes(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.Activities(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]activityTypeResponse, len(activities))
	for i, a := range activities {
		results[i] = activityTypeResponse{
			ID:          a.ID,
			Key:         a.Key,
			DisplayName: a.DisplayName,
			XpPerUnit:   a.XpPerUnit,
			Unit:        a.Unit,
			Description: a.Description,
			Category:    string(a.Category),
		}
	}
	writeJSONResponse(w, http.StatusOK, results)
}

// GrantXp は現在のユーザーにXPを付与する。
// POST /api/v1/xp/add
func (h *XpHandler) GrantXp(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req grantXpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.ActivityKey == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "activity_keyが空です。",
			Category: "validation",
			Action:   "付与対象のアクティビティキーを指定してください。",
		})
		return
	}

	stats, err := h.service.Grant(r.Context(), xp.GrantInput{
		UserID:      userID,
		ActivityKey: req.ActivityKey,
		Units:       req.Units,
		Track:       model.LayerTrack(req.Track),
		Metadata:    req.Metadata,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, stats)
}

// GetStats は現在のユーザーのXP統計を返す。
// GET /api/v1/xp/stats
func (h *XpHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, stats)
}

// GetHistory は現在のユーザーのXPイベント履歴を返す。
// GET /api/v1/xp/history?cursor=RFC3339[,id]&limit=50
// カーソルはtimestampとイベントIDの複合で、同一timestampのイベントが
// ページ境界で欠落しないようにする。timestampのみの指定も受け付ける。
func (h *XpHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var cursor time.Time
	var cursorID string
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		ts := raw
		if i := strings.IndexByte(raw, ','); i >= 0 {
			ts, cursorID = raw[:i], raw[i+1:]
		}
		cursor, err = time.Parse(time.RFC3339Nano, ts)
		if err == nil && cursorID != "" {
			err = uuid.Validate(cursorID)
		}
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_CURSOR",
				Message:  "カーソルの形式が不正です。",
				Category: "validation",
				Action:   "前のレスポンスのnext_cursorをそのまま指定してください。",
			})
			return
		}
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	events, hasMore, err := h.service.History(r.Context(), userID, cursor, cursorID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := xpHistoryResponse{
		Events:  make([]xpEventResponse, len(events)),
		HasMore: hasMore,
	}
	for i, e := range events {
		resp.Events[i] = xpEventResponse{
			ID:        e.ID,
			Amount:    e.Amount,
			Source:    e.Source,
			Track:     string(e.Track),
			Metadata:  e.Metadata,
			Timestamp: e.Timestamp,
		}
	}
	if hasMore && len(events) > 0 {
		last := events[len(events)-1]
		resp.NextCursor = last.Timestamp.Format(time.RFC3339Nano) + "," + last.ID
	}

	writeJSONResponse(w, http.StatusOK, resp)
}
