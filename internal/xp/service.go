package xp

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/igoultra/ultrabackend/internal/metrics"
	"github.com/igoultra/ultrabackend/internal/model"
	"github.com/igoultra/ultrabackend/internal/repository"
)

// GrantHook はXP付与のコミット後に呼び出されるフック。
// ミッション進捗やステータス成長など、付与の副次処理を登録する。
// フックの失敗は付与自体を失敗させない（ログに記録するのみ）。
type GrantHook interface {
	AfterGrant(ctx context.Context, userID string, activity *model.ActivityType, units float64, amount int) error
}

// Ledger はXP付与の唯一の正規の入り口。
// 追記専用のイベント台帳、ユーザーの累計XPと導出レベル、
// アクティブSeasonの累計を単一トランザクションで整合させる。
type Ledger struct {
	db           repository.TxBeginner
	activityRepo repository.ActivityTypeRepository
	eventRepo    repository.XpEventRepository
	userRepo     repository.UserRepository
	seasonRepo   repository.SeasonRepository
	seasonXpRepo repository.SeasonXpRepository
	hooks        []GrantHook
	collector    metrics.MetricsCollector
	logger       *slog.Logger
	now          func() time.Time
}

// NewLedger はLedgerを生成する。collectorはnilでもよい。
func NewLedger(
	db repository.TxBeginner,
	activityRepo repository.ActivityTypeRepository,
	eventRepo repository.XpEventRepository,
	userRepo repository.UserRepository,
	seasonRepo repository.SeasonRepository,
	seasonXpRepo repository.SeasonXpRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Ledger {
	return &Ledger{
		db:           db,
		activityRepo: activityRepo,
		eventRepo:    eventRepo,
		userRepo:     userRepo,
		seasonRepo:   seasonRepo,
		seasonXpRepo: seasonXpRepo,
		collector:    collector,
		logger:       logger,
		now:          time.Now,
	}
}

// RegisterHook はコミット後フックを登録する。登録順に実行される。
func (l *Ledger) RegisterHook(h GrantHook) {
	l.hooks = append(l.hooks, h)
}

// GrantInput はGrantの入力。TrackとMetadataは省略可能。
type GrantInput struct {
	UserID      string
	ActivityKey string
	Units       float64
	Track       model.LayerTrack
	Metadata    map[string]any
}

// Grant はアクティビティ実績に応じたXPを付与する。
// 付与量は floor(units * xpPerUnit)。unitsが負の場合は剥奪となり、
// 累計XPは0を下回らない範囲で減算される。台帳追記・累計更新・レベル再計算・
// Season累計加算を1つのトランザクションで行い、いずれかが失敗した場合は
// 何も書き込まれない。
func (l *Ledger) Grant(ctx context.Context, in GrantInput) (*model.XpStats, error) {
	start := l.now()

	activity, err := l.activityRepo.FindByKey(ctx, in.ActivityKey)
	if err != nil {
		return nil, fmt.Errorf("ActivityTypeの取得に失敗しました: %w", err)
	}
	if activity == nil {
		l.recordFailure("unknown_activity")
		return nil, model.NewUnknownActivityError(in.ActivityKey)
	}

	// 負のユニットはXPの剥奪として扱う。0のみ無効。
	if in.Units == 0 {
		l.recordFailure("invalid_units")
		return nil, model.NewInvalidUnitsError()
	}

	track := in.Track
	if track == "" {
		track = model.LayerTrackRealLife
	}
	if !model.ValidLayerTrack(track) {
		l.recordFailure("invalid_track")
		return nil, model.NewInvalidTrackError(string(in.Track))
	}

	amount := int(math.Floor(in.Units * activity.XpPerUnit))

	stats, err := l.applyEvent(ctx, in.UserID, amount, activity.Key, track, in.Metadata)
	if err != nil {
		return nil, err
	}

	l.logger.Info("XPを付与しました",
		slog.String("user_id", in.UserID),
		slog.String("activity", activity.Key),
		slog.Float64("units", in.Units),
		slog.Int("amount", amount),
		slog.String("track", string(track)),
		slog.Int("level", stats.Level),
		slog.Bool("leveled_up", stats.LeveledUp),
	)
	if l.collector != nil {
		l.collector.RecordGrantLatency(l.now().Sub(start))
	}

	for _, h := range l.hooks {
		if err := h.AfterGrant(ctx, in.UserID, activity, in.Units, amount); err != nil {
			l.logger.Error("付与後フックの実行に失敗しました",
				slog.String("user_id", in.UserID),
				slog.String("activity", activity.Key),
				slog.String("error", err.Error()),
			)
		}
	}

	return stats, nil
}

// GrantDirect はActivityTypeを経由せず指定量のXPを直接付与する。
// ミッション報酬などシステム起点の付与に使う。付与後フックは実行されない
// （報酬の付与が再びミッション進捗を進める再帰を防ぐため）。
func (l *Ledger) GrantDirect(ctx context.Context, userID string, amount int, source string, track model.LayerTrack, metadata map[string]any) (*model.XpStats, error) {
	if !model.ValidLayerTrack(track) {
		return nil, model.NewInvalidTrackError(string(track))
	}

	stats, err := l.applyEvent(ctx, userID, amount, source, track, metadata)
	if err != nil {
		return nil, err
	}

	l.logger.Info("XPを直接付与しました",
		slog.String("user_id", userID),
		slog.String("source", source),
		slog.Int("amount", amount),
		slog.String("track", string(track)),
	)
	return stats, nil
}

// applyEvent は付与の書き込み本体。台帳追記、累計更新、レベル再計算、
// Season累計加算を単一トランザクションで行う。
func (l *Ledger) applyEvent(ctx context.Context, userID string, amount int, source string, track model.LayerTrack, metadata map[string]any) (*model.XpStats, error) {
	// Season累計はアクティブフラグと時間範囲の両方を満たす場合のみ加算する。
	// フラグはIncrementのSQL内でトランザクション内から再検査されるため、
	// この読み取りとコミットの間にSeasonが締められても締め済みSeasonには加算されない。
	season, err := l.seasonRepo.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("アクティブSeasonの取得に失敗しました: %w", err)
	}
	grantedAt := l.now()
	inSeason := season != nil && season.ContainsTime(grantedAt)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	event := &model.XpEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    amount,
		Source:    source,
		Track:     track,
		Metadata:  metadata,
		Timestamp: grantedAt,
	}
	if err := l.eventRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	newXp, oldLevel, err := l.userRepo.ApplyXpDelta(ctx, tx, userID, amount)
	if err != nil {
		return nil, err
	}

	newLevel := LevelFromXp(newXp)
	if newLevel != oldLevel {
		if err := l.userRepo.UpdateLevel(ctx, tx, userID, newLevel, RankForLevel(newLevel)); err != nil {
			return nil, err
		}
	}

	if inSeason && amount != 0 {
		if err := l.seasonXpRepo.Increment(ctx, tx, season.ID, userID, track, amount); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	stats := StatsFor(newXp)
	stats.LeveledUp = newLevel > oldLevel
	stats.AwardedXp = amount

	if l.collector != nil {
		l.collector.RecordXpGranted(string(track), amount)
		if stats.LeveledUp {
			l.collector.RecordLevelUp()
		}
	}
	return &stats, nil
}

// Stats はユーザーの現在のXP統計を返す（読み取り専用）。
func (l *Ledger) Stats(ctx context.Context, userID string) (*model.XpStats, error) {
	user, err := l.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	stats := StatsFor(user.Xp)
	return &stats, nil
}

// History はユーザーのXPイベント履歴を新しい順に返す。
// cursorIDは同一timestampのイベントをページ境界で切り分ける複合カーソルの一部。
// 2番目の戻り値は次ページの有無。
func (l *Ledger) History(ctx context.Context, userID string, cursor time.Time, cursorID string, limit int) ([]*model.XpEvent, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	events, err := l.eventRepo.ListByUser(ctx, userID, cursor, cursorID, limit)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}
	return events, hasMore, nil
}

// Activities はActivityTypeカタログを返す。
func (l *Ledger) Activities(ctx context.Context) ([]*model.ActivityType, error) {
	return l.activityRepo.List(ctx)
}

func (l *Ledger) recordFailure(reason string) {
	if l.collector != nil {
		l.collector.RecordGrantFailure(reason)
	}
}
