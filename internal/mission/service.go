// Package mission はミッションの提示・進捗追跡・報酬付与を提供する。
package mission

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/igoultra/ultrabackend/internal/metrics"
	"github.com/igoultra/ultrabackend/internal/model"
	"github.com/igoultra/ultrabackend/internal/repository"
)

// UnitXpGained はミッションの対象ユニットとして獲得XP量そのものを数える特殊値。
const UnitXpGained = "xp_gained"

// RewardGranter はミッション報酬のXPを付与するインターフェース。
// xp.LedgerのGrantDirectが実装を提供する。
type RewardGranter interface {
	GrantDirect(ctx context.Context, userID string, amount int, source string, track model.LayerTrack, metadata map[string]any) (*model.XpStats, error)
}

// Service はミッションの提示・進捗・報酬を扱う。
// XP付与のコミット後フックとして登録され、対象ユニットの実績に応じて
// 進捗を進める。完了時は報酬XPを台帳経由で付与する。
type Service struct {
	missionRepo repository.MissionRepository
	seasonRepo  repository.SeasonRepository
	granter     RewardGranter
	collector   metrics.MetricsCollector
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceを生成する。collectorはnilでもよい。
func NewService(
	missionRepo repository.MissionRepository,
	seasonRepo repository.SeasonRepository,
	granter RewardGranter,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		missionRepo: missionRepo,
		seasonRepo:  seasonRepo,
		granter:     granter,
		collector:   collector,
		logger:      logger,
		now:         time.Now,
	}
}

// AfterGrant はXP付与のコミット後に呼び出され、受付中ミッションの進捗を進める。
// アクティビティキーが一致するミッションはユニット数、
// "xp_gained" ミッションは付与XP量で進捗する。
func (s *Service) AfterGrant(ctx context.Context, userID string, activity *model.ActivityType, units float64, amount int) error {
	at := s.now()
	missions, err := s.listActive(ctx, at)
	if err != nil {
		return err
	}

	for _, m := range missions {
		var value int
		switch m.Unit {
		case activity.Key:
			value = int(math.Floor(units))
		case UnitXpGained:
			value = amount
		default:
			continue
		}
		if value <= 0 {
			continue
		}

		completed, err := s.missionRepo.IncrementProgress(ctx, userID, m.ID, value, m.TargetValue)
		if err != nil {
			return err
		}
		if completed {
			s.onCompleted(ctx, userID, m)
		}
	}
	return nil
}

// onCompleted は完了報酬を付与する。報酬付与の失敗は進捗を巻き戻さない。
func (s *Service) onCompleted(ctx context.Context, userID string, m *model.Mission) {
	s.logger.Info("ミッションが完了しました",
		slog.String("user_id", userID),
		slog.String("mission_id", m.ID),
		slog.String("title", m.Title),
	)
	if s.collector != nil {
		s.collector.RecordMissionCompleted()
	}

	if m.XpReward <= 0 {
		return
	}
	metadata := map[string]any{
		"mission_id": m.ID,
		"gold":       m.GoldReward,
		"ultra":      m.UltraPointReward,
	}
	if _, err := s.granter.GrantDirect(ctx, userID, m.XpReward, "mission_reward", model.LayerTrackRealLife, metadata); err != nil {
		s.logger.Error("ミッション報酬の付与に失敗しました",
			slog.String("user_id", userID),
			slog.String("mission_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

// ListActive は現在受付中のミッションを返す。
func (s *Service) ListActive(ctx context.Context) ([]*model.Mission, error) {
	return s.listActive(ctx, s.now())
}

func (s *Service) listActive(ctx context.Context, at time.Time) ([]*model.Mission, error) {
	var seasonID string
	season, err := s.seasonRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if season != nil && season.ContainsTime(at) {
		seasonID = season.ID
	}
	return s.missionRepo.ListActive(ctx, at, seasonID)
}

// ProgressForUser はユーザーの全ミッション進捗を返す。
func (s *Service) ProgressForUser(ctx context.Context, userID string) ([]*model.MissionProgressWithMission, error) {
	return s.missionRepo.ListProgressByUser(ctx, userID)
}
