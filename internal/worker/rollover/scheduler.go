// Package rollover はSeason締め処理のバックグラウンド実行を提供する。
// 終了時刻を過ぎたアクティブSeasonを定期的に検出し、締め処理を起動する。
package rollover

import (
	"context"
	"log/slog"
	"time"

	"github.com/igoultra/ultrabackend/internal/repository"
)

// RolloverService はSeason締め処理の実行インターフェース。
type RolloverService interface {
	// Run は指定SeasonのSeason締め処理を実行する。
	Run(ctx context.Context, seasonID string) error
}

// Scheduler は終了時刻を過ぎたアクティブSeasonを検出し締め処理を起動する。
// 締め処理自体が冪等ではないため、検出と実行は同一プロセスで直列に行う。
type Scheduler struct {
	seasonRepo repository.SeasonRepository
	rollover   RolloverService
	logger     *slog.Logger
	now        func() time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(
	seasonRepo repository.SeasonRepository,
	rollover RolloverService,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		seasonRepo: seasonRepo,
		rollover:   rollover,
		logger:     logger,
		now:        time.Now,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Season締めスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Season締めサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Season締めスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("Season締めサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はアクティブSeasonを1回確認し、終了時刻を過ぎていれば締め処理を実行する。
// 対象がない場合は何もしない。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	season, err := s.seasonRepo.FindActive(ctx)
	if err != nil {
		return err
	}
	if season == nil {
		return nil
	}

	now := s.now()
	if now.Before(season.End) {
		return nil
	}

	s.logger.Info("終了時刻を過ぎたSeasonを検出しました",
		slog.String("season_id", season.ID),
		slog.String("season_name", season.Name),
		slog.Time("end", season.End),
	)

	return s.rollover.Run(ctx, season.ID)
}
