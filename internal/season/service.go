// Package season はSeasonのライフサイクル管理を提供する。
package season

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/igoultra/ultrabackend/internal/model"
	"github.com/igoultra/ultrabackend/internal/repository"
)

// DefaultDuration はSeasonの標準期間。
const DefaultDuration = 90 * 24 * time.Hour

// Service はSeasonの作成・有効化・参照を提供する。
// 「アクティブなSeason」はフラグと時間範囲の両方で判定され、
// フラグが立っていても期間が過ぎたSeasonはXP集計の対象にならない。
type Service struct {
	db         repository.TxBeginner
	seasonRepo repository.SeasonRepository
	logger     *slog.Logger
}

// NewService はServiceを生成する。
func NewService(db repository.TxBeginner, seasonRepo repository.SeasonRepository, logger *slog.Logger) *Service {
	return &Service{db: db, seasonRepo: seasonRepo, logger: logger}
}

// ActiveWindow は指定時刻にXP集計の対象となるSeasonを返す。
// is_active=trueかつ時刻が[Start, End)に入るSeasonがない場合はnilを返す。
func (s *Service) ActiveWindow(ctx context.Context, at time.Time) (*model.Season, error) {
	season, err := s.seasonRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if season == nil || !season.ContainsTime(at) {
		return nil, nil
	}
	return season, nil
}

// FindByID は指定IDのSeasonを返す。見つからない場合はSeasonNotFoundエラー。
func (s *Service) FindByID(ctx context.Context, id string) (*model.Season, error) {
	season, err := s.seasonRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if season == nil {
		return nil, model.NewSeasonNotFoundError(id)
	}
	return season, nil
}

// Create は新しいSeasonを作成する。activate=trueの場合は同時に有効化する。
func (s *Service) Create(ctx context.Context, name string, start, end time.Time, activate bool) (*model.Season, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("Seasonの終了時刻は開始時刻より後である必要があります")
	}

	season := &model.Season{
		ID:       uuid.New().String(),
		Name:     name,
		Start:    start,
		End:      end,
		IsActive: false,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if err := s.seasonRepo.Create(ctx, tx, season); err != nil {
		return nil, err
	}
	if activate {
		if err := s.seasonRepo.Activate(ctx, tx, season.ID); err != nil {
			return nil, err
		}
		season.IsActive = true
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	s.logger.Info("Seasonを作成しました",
		slog.String("season_id", season.ID),
		slog.String("name", season.Name),
		slog.Time("start", season.Start),
		slog.Time("end", season.End),
		slog.Bool("active", season.IsActive),
	)
	return season, nil
}

// Activate は指定Seasonを唯一のアクティブSeasonにする。
// 他のアクティブSeasonの無効化と対象の有効化は1つのトランザクションで行われる。
func (s *Service) Activate(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if err := s.seasonRepo.Activate(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	s.logger.Info("Seasonを有効化しました", slog.String("season_id", id))
	return nil
}
