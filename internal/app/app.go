package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/igoultra/ultrabackend/internal/auth"
	"github.com/igoultra/ultrabackend/internal/config"
	"github.com/igoultra/ultrabackend/internal/database"
	"github.com/igoultra/ultrabackend/internal/handler"
	"github.com/igoultra/ultrabackend/internal/logger"
	"github.com/igoultra/ultrabackend/internal/metrics"
	"github.com/igoultra/ultrabackend/internal/middleware"
	"github.com/igoultra/ultrabackend/internal/mission"
	"github.com/igoultra/ultrabackend/internal/ranking"
	"github.com/igoultra/ultrabackend/internal/repository"
	"github.com/igoultra/ultrabackend/internal/season"
	"github.com/igoultra/ultrabackend/internal/security"
	"github.com/igoultra/ultrabackend/internal/skills"
	"github.com/igoultra/ultrabackend/internal/user"
	"github.com/igoultra/ultrabackend/internal/worker/cleanup"
	rolloverworker "github.com/igoultra/ultrabackend/internal/worker/rollover"
	"github.com/igoultra/ultrabackend/internal/xp"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	activityRepo := repository.NewPostgresActivityTypeRepo(db)
	eventRepo := repository.NewPostgresXpEventRepo(db)
	seasonRepo := repository.NewPostgresSeasonRepo(db)
	seasonXpRepo := repository.NewPostgresSeasonXpRepo(db)
	leaderboardRepo := repository.NewPostgresLeaderboardRepo(db)
	missionRepo := repository.NewPostgresMissionRepo(db)
	statsRepo := repository.NewPostgresStatsRepo(db)

	// 3. セキュリティサービスとメトリクスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	oauthProvider := auth.NewDiscordOAuthProvider(auth.DiscordOAuthConfig{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.DiscordRedirectURL,
		HTTPClient:   ssrfGuard.NewSafeClient(cfg.DiscordTimeout, cfg.DiscordMaxSize),
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	ledger := xp.NewLedger(
		db, activityRepo, eventRepo, userRepo, seasonRepo, seasonXpRepo,
		collector, slog.Default(),
	)

	seasonService := season.NewService(db, seasonRepo, slog.Default())
	rollover := ranking.NewRollover(
		db, seasonRepo, seasonXpRepo, userRepo, leaderboardRepo,
		ranking.Config{
			PromoteBelow:      cfg.PromoteBelow,
			DemoteFrom:        cfg.DemoteFrom,
			SuccessorDuration: cfg.SeasonDuration,
		},
		collector, slog.Default(),
	)
	liveRanking := ranking.NewLiveRanking(db, seasonRepo, seasonXpRepo)
	leaderboard := ranking.NewLeaderboard(leaderboardRepo)

	missionService := mission.NewService(missionRepo, seasonRepo, ledger, collector, slog.Default())
	skillService := skills.NewService(statsRepo, userRepo, collector, slog.Default())

	// 付与後フックの登録（ミッション進捗 → ステータス成長の順）
	ledger.RegisterHook(missionService)
	ledger.RegisterHook(skillService)

	userService := user.NewService(userRepo, sessionRepo, sanitizer, ssrfGuard)

	// 5. ルーターの構築
	rateLimiterCfg := middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		XpGrantRate:     rate.Limit(float64(cfg.RateLimitXpGrant) / 60.0),
		XpGrantBurst:    cfg.RateLimitXpGrant,
		CleanupInterval: 5 * time.Minute,
	}

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		StatusRecorder:    collector,
		MetricsHandler:    metrics.Handler(registry),
		Logger:            slog.Default(),
		OperatorToken:     cfg.OperatorToken,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		UserService: userService,
		XpService:   ledger,

		SeasonService: seasonService,
		LiveRanking:   liveRanking,
		Rollover:      rollover,
		Leaderboard:   leaderboard,

		MissionService: missionService,
		SkillService:   skillService,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、Season締めスケジューラとセッションクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	seasonRepo := repository.NewPostgresSeasonRepo(db)
	seasonXpRepo := repository.NewPostgresSeasonXpRepo(db)
	leaderboardRepo := repository.NewPostgresLeaderboardRepo(db)

	// 3. Season締め処理の初期化
	rollover := ranking.NewRollover(
		db, seasonRepo, seasonXpRepo, userRepo, leaderboardRepo,
		ranking.Config{
			PromoteBelow:      cfg.PromoteBelow,
			DemoteFrom:        cfg.DemoteFrom,
			SuccessorDuration: cfg.SeasonDuration,
		},
		nil, slog.Default(),
	)

	// 4. スケジューラの初期化
	scheduler := rolloverworker.NewScheduler(seasonRepo, rollover, slog.Default())

	// 5. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("rollover_interval", cfg.RolloverInterval),
		slog.Duration("session_sweep_interval", cfg.SessionSweepInterval),
	)

	// クリーンアップジョブをバックグラウンドで定期実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(cfg.SessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// Season締めスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.RolloverInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
