package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/igoultra/ultrabackend/internal/middleware"
)

// HealthChecker はヘルスチェック用のDB疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config)

	r.Route("/auth", func(r chi.Router) {
		// OAuthフロー
		r.Get("/discord/login", h.Login)
		r.Get("/discord/callback", h.Callback)

		// セッション管理
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.HTTPStatusRecorder // nilの場合はメトリクス記録なし
	MetricsHandler    http.Handler                  // nilの場合、/metricsは公開しない
	Logger            *slog.Logger
	OperatorToken     string // 空の場合、オペレーターAPIは無効

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ユーザー
	UserService UserServiceInterface

	// XP
	XpService XpServiceInterface

	// Season・ランキング
	SeasonService SeasonServiceInterface
	LiveRanking   LiveRankingInterface
	Rollover      RolloverRunner
	Leaderboard   LeaderboardInterface

	// ミッション
	MissionService MissionServiceInterface

	// Skill
	SkillService SkillServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging → Metrics → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）とヘルスチェックはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService, deps.XpService)
	xpHandler := NewXpHandler(deps.XpService)
	seasonHandler := NewSeasonHandler(deps.SeasonService, deps.LiveRanking, deps.Rollover)
	rankingHandler := NewRankingHandler(deps.Leaderboard)
	missionHandler := NewMissionHandler(deps.MissionService)
	skillHandler := NewSkillHandler(deps.SkillService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusスクレイプ用エンドポイント
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/discord/login", authHandler.Login)
		r.Get("/discord/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィール
		r.Route("/api/v1/user", func(r chi.Router) {
			r.Get("/me", userHandler.GetProfile)
			r.Patch("/me", userHandler.UpdateProfile)
			r.Delete("/me", userHandler.Withdraw)
		})

		// XP
		r.Route("/api/v1/xp", func(r chi.Router) {
			r.Get("/types", xpHandler.ListActivityTypes)
			r.Get("/stats", xpHandler.GetStats)
			r.Get("/history", xpHandler.GetHistory)

			// POST /api/v1/xp/add - XP付与（付与専用レート制限を追加）
			r.With(deps.RateLimiter.XpGrantMiddleware()).Post("/add", xpHandler.GrantXp)
		})

		// Season
		r.Route("/api/v1/seasons", func(r chi.Router) {
			r.Get("/active", seasonHandler.GetActive)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/ranking", seasonHandler.GetRanking)

				// Season締め処理のオペレータートリガー（トークン必須）
				r.With(middleware.NewOperatorMiddleware(deps.OperatorToken)).
					Post("/rollover", seasonHandler.TriggerRollover)
			})
		})

		// ランキングスナップショット
		r.Route("/api/v1/rankings", func(r chi.Router) {
			r.Get("/leaderboard", rankingHandler.GetLeaderboard)
		})

		// ミッション
		r.Route("/api/v1/missions", func(r chi.Router) {
			r.Get("/", missionHandler.ListMissions)
			r.Get("/progress", missionHandler.ListProgress)
		})

		// Skill
		r.Route("/api/v1/skills", func(r chi.Router) {
			r.Get("/", skillHandler.ListSkills)
			r.Get("/stats", skillHandler.GetStats)
			r.Post("/{id}/unlock", skillHandler.UnlockSkill)
		})
	})

	return r
}
