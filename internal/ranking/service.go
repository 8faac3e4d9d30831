package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/igoultra/ultrabackend/internal/metrics"
	"github.com/igoultra/ultrabackend/internal/model"
	"github.com/igoultra/ultrabackend/internal/repository"
)

// Config はRolloverの昇降ポリシーと後続Season設定。
// パーセンタイル閾値は非対称10/80が既定。DemoteFrom=0.90にすると
// 対称10/10ポリシーになる。
type Config struct {
	PromoteBelow      float64       // p < PromoteBelow で昇格
	DemoteFrom        float64       // p >= DemoteFrom で降格
	SuccessorDuration time.Duration // 後続Seasonの期間
}

// DefaultConfig は既定のRolloverポリシーを返す。
func DefaultConfig() Config {
	return Config{
		PromoteBelow:      0.10,
		DemoteFrom:        0.80,
		SuccessorDuration: 90 * 24 * time.Hour,
	}
}

// Rollover はSeason終了処理を実行する。
// 対象Seasonの無効化、トラックごとの昇降、スナップショット作成、
// 後続Seasonの作成・有効化までを単一トランザクションで行う。
type Rollover struct {
	db              repository.TxBeginner
	seasonRepo      repository.SeasonRepository
	seasonXpRepo    repository.SeasonXpRepository
	userRepo        repository.UserRepository
	leaderboardRepo repository.LeaderboardRepository
	cfg             Config
	collector       metrics.MetricsCollector
	logger          *slog.Logger
	now             func() time.Time
}

// NewRollover はRolloverを生成する。collectorはnilでもよい。
func NewRollover(
	db repository.TxBeginner,
	seasonRepo repository.SeasonRepository,
	seasonXpRepo repository.SeasonXpRepository,
	userRepo repository.UserRepository,
	leaderboardRepo repository.LeaderboardRepository,
	cfg Config,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Rollover {
	return &Rollover{
		db:              db,
		seasonRepo:      seasonRepo,
		seasonXpRepo:    seasonXpRepo,
		userRepo:        userRepo,
		leaderboardRepo: leaderboardRepo,
		cfg:             cfg,
		collector:       collector,
		logger:          logger,
		now:             time.Now,
	}
}

// placement はRollover中に計算されるユーザーの段位配置。
type placement struct {
	realLayer  string
	cyberLayer string
	changed    bool
}

// Run はSeason Rolloverを実行する。
// 参加者が1人もいないトラックはスキップされるが、Seasonの無効化と
// 後続Seasonの作成は常に行われる（無参加のRolloverは正常系）。
func (r *Rollover) Run(ctx context.Context, seasonID string) error {
	start := r.now()

	season, err := r.seasonRepo.FindByID(ctx, seasonID)
	if err != nil {
		return err
	}
	if season == nil {
		return model.NewSeasonNotFoundError(seasonID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 最初に無効化する。以降のXP付与はこのSeasonに集計されない。
	if err := r.seasonRepo.Deactivate(ctx, tx, seasonID); err != nil {
		return err
	}

	// 両トラックの昇降を先に確定させてからスナップショットを作る。
	// スナップショット行はRollover後の両段位を持つため。
	placements := make(map[string]*placement)

	realRanked, err := r.processTrack(ctx, tx, seasonID, model.LayerTrackRealLife, model.RealLayers, placements)
	if err != nil {
		return err
	}
	cyberRanked, err := r.processTrack(ctx, tx, seasonID, model.LayerTrackCyber, model.CyberLayers, placements)
	if err != nil {
		return err
	}
	// Gameトラックは集計のみで段位を持たないが、スナップショットには残す。
	gameRanked, err := r.seasonXpRepo.RankedBySeasonAndTrack(ctx, tx, seasonID, model.LayerTrackGame)
	if err != nil {
		return err
	}

	for userID, p := range placements {
		if !p.changed {
			continue
		}
		if err := r.userRepo.UpdateLayers(ctx, tx, userID, p.realLayer, p.cyberLayer); err != nil {
			return err
		}
	}

	if err := r.leaderboardRepo.DeleteBySeason(ctx, tx, seasonID); err != nil {
		return err
	}
	var entries []*model.LeaderboardEntry
	for _, ranked := range [][]*model.SeasonXp{realRanked, cyberRanked, gameRanked} {
		for _, sx := range ranked {
			real, cyber, err := r.placementFor(ctx, tx, placements, sx.UserID)
			if err != nil {
				return err
			}
			entries = append(entries, &model.LeaderboardEntry{
				ID:         uuid.New().String(),
				SeasonID:   seasonID,
				UserID:     sx.UserID,
				Track:      sx.Track,
				Xp:         sx.Xp,
				RealLayer:  real,
				CyberLayer: cyber,
			})
		}
	}
	if err := r.leaderboardRepo.CreateBatch(ctx, tx, entries); err != nil {
		return err
	}

	// 後続Season: 前Seasonの終了時刻から固定期間、作成と同時に有効化する。
	successor := &model.Season{
		ID:       uuid.New().String(),
		Name:     fmt.Sprintf("%s (next)", season.Name),
		Start:    season.End,
		End:      season.End.Add(r.cfg.SuccessorDuration),
		IsActive: false,
	}
	if err := r.seasonRepo.Create(ctx, tx, successor); err != nil {
		return err
	}
	if err := r.seasonRepo.Activate(ctx, tx, successor.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	if r.collector != nil {
		r.collector.RecordRolloverDuration(r.now().Sub(start))
	}
	r.logger.Info("Season Rolloverが完了しました",
		slog.String("season_id", seasonID),
		slog.String("successor_id", successor.ID),
		slog.Int("snapshot_entries", len(entries)),
		slog.Duration("duration", r.now().Sub(start)),
	)
	return nil
}

// processTrack は1トラック分の昇降を計算し、placementsに反映する。
// 戻り値はスナップショット作成用のランク済みエントリ。
func (r *Rollover) processTrack(
	ctx context.Context,
	tx repository.Querier,
	seasonID string,
	track model.LayerTrack,
	ladder []string,
	placements map[string]*placement,
) ([]*model.SeasonXp, error) {
	ranked, err := r.seasonXpRepo.RankedBySeasonAndTrack(ctx, tx, seasonID, track)
	if err != nil {
		return nil, err
	}
	total := len(ranked)
	if total == 0 {
		return ranked, nil
	}

	var promoted, demoted int
	for i, sx := range ranked {
		movement := MovementFor(i, total, r.cfg.PromoteBelow, r.cfg.DemoteFrom)
		if movement == Stay {
			continue
		}

		p, err := r.loadPlacement(ctx, tx, placements, sx.UserID)
		if err != nil {
			return nil, err
		}
		current := p.realLayer
		if track == model.LayerTrackCyber {
			current = p.cyberLayer
		}
		next := ApplyMovement(ladder, current, movement)
		if next == current {
			continue
		}
		if track == model.LayerTrackCyber {
			p.cyberLayer = next
		} else {
			p.realLayer = next
		}
		p.changed = true
		if movement == Promote {
			promoted++
		} else {
			demoted++
		}
	}

	if r.collector != nil {
		r.collector.RecordPromotions(string(track), promoted)
		r.collector.RecordDemotions(string(track), demoted)
	}
	r.logger.Info("トラックの昇降を計算しました",
		slog.String("season_id", seasonID),
		slog.String("track", string(track)),
		slog.Int("participants", total),
		slog.Int("promoted", promoted),
		slog.Int("demoted", demoted),
	)
	return ranked, nil
}

func (r *Rollover) loadPlacement(ctx context.Context, tx repository.Querier, placements map[string]*placement, userID string) (*placement, error) {
	if p, ok := placements[userID]; ok {
		return p, nil
	}
	real, cyber, err := r.userRepo.FindLayers(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	p := &placement{realLayer: real, cyberLayer: cyber}
	placements[userID] = p
	return p, nil
}

func (r *Rollover) placementFor(ctx context.Context, tx repository.Querier, placements map[string]*placement, userID string) (string, string, error) {
	p, err := r.loadPlacement(ctx, tx, placements, userID)
	if err != nil {
		return "", "", err
	}
	return p.realLayer, p.cyberLayer, nil
}

// LiveRanking は進行中SeasonのXP累計ランキングを返す（読み取り専用）。
type LiveRanking struct {
	db           repository.Querier
	seasonRepo   repository.SeasonRepository
	seasonXpRepo repository.SeasonXpRepository
}

// NewLiveRanking はLiveRankingを生成する。
func NewLiveRanking(db repository.Querier, seasonRepo repository.SeasonRepository, seasonXpRepo repository.SeasonXpRepository) *LiveRanking {
	return &LiveRanking{db: db, seasonRepo: seasonRepo, seasonXpRepo: seasonXpRepo}
}

// Ranked は指定Season+トラックの現在のXP累計をXP降順で返す。
func (l *LiveRanking) Ranked(ctx context.Context, seasonID string, track model.LayerTrack) ([]*model.SeasonXp, error) {
	if !model.ValidLayerTrack(track) {
		return nil, model.NewInvalidTrackError(string(track))
	}
	season, err := l.seasonRepo.FindByID(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if season == nil {
		return nil, model.NewSeasonNotFoundError(seasonID)
	}
	return l.seasonXpRepo.RankedBySeasonAndTrack(ctx, l.db, seasonID, track)
}

// Leaderboard はSeason終了スナップショットをフィルタ付きで返す（読み取り専用）。
type Leaderboard struct {
	repo repository.LeaderboardRepository
}

// NewLeaderboard はLeaderboardを生成する。
func NewLeaderboard(repo repository.LeaderboardRepository) *Leaderboard {
	return &Leaderboard{repo: repo}
}

// List はスナップショットをXP降順で返す。フィルタは空指定で無条件。
func (l *Leaderboard) List(ctx context.Context, seasonID string, track model.LayerTrack, realLayer, cyberLayer string, top int) ([]*model.LeaderboardEntryWithUser, error) {
	if track != "" && !model.ValidLayerTrack(track) {
		return nil, model.NewInvalidTrackError(string(track))
	}
	if top <= 0 || top > 500 {
		top = 100
	}
	return l.repo.ListBySeason(ctx, seasonID, track, realLayer, cyberLayer, top)
}
