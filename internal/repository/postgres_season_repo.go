package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/igoultra/ultrabackend/internal/model"
)

const seasonColumns = `id, name, start_at, end_at, is_active, created_at, updated_at`

// PostgresSeasonRepo はPostgreSQLを使用したSeasonリポジトリ。
type PostgresSeasonRepo struct {
	db *sql.DB
}

// NewPostgresSeasonRepo はPostgresSeasonRepoを生成する。
func NewPostgresSeasonRepo(db *sql.DB) *PostgresSeasonRepo {
	return &PostgresSeasonRepo{db: db}
}

func scanSeason(row interface{ Scan(...any) error }) (*model.Season, error) {
	season := &model.Season{}
	err := row.Scan(
		&season.ID, &season.Name, &season.Start, &season.End,
		&season.IsActive, &season.CreatedAt, &season.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return season, nil
}

// FindByID は指定IDのSeasonを取得する。見つからない場合はnilを返す。
func (r *PostgresSeasonRepo) FindByID(ctx context.Context, id string) (*model.Season, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+seasonColumns+` FROM seasons WHERE id = $1`, id)
	season, err := scanSeason(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Seasonの取得に失敗しました: %w", err)
	}
	return season, nil
}

// FindActive はis_active=trueのSeasonを取得する。見つからない場合はnilを返す。
func (r *PostgresSeasonRepo) FindActive(ctx context.Context) (*model.Season, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+seasonColumns+` FROM seasons WHERE is_active = true`)
	season, err := scanSeason(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アクティブSeasonの取得に失敗しました: %w", err)
	}
	return season, nil
}

// Activate は指定Season以外を全て非アクティブにし、指定Seasonをアクティブにする。
// 部分ユニークインデックス（アクティブは常に1行）は行単位で検査されるため、
// 先に既存のアクティブ行を落としてから対象を立てる。呼び出し側の
// トランザクション内で実行され、途中状態が外部から観測されることはない。
func (r *PostgresSeasonRepo) Activate(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE seasons SET is_active = false, updated_at = now()
		 WHERE is_active = true AND id <> $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("既存アクティブSeasonの無効化に失敗しました: %w", err)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE seasons SET is_active = true, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("Seasonのアクティブ化に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if affected == 0 {
		return model.NewSeasonNotFoundError(id)
	}
	return nil
}

// Deactivate は指定Seasonを非アクティブにする。冪等。
func (r *PostgresSeasonRepo) Deactivate(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE seasons SET is_active = false, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("Seasonの非アクティブ化に失敗しました: %w", err)
	}
	return nil
}

// Create はSeasonを作成する。
func (r *PostgresSeasonRepo) Create(ctx context.Context, q Querier, season *model.Season) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO seasons (id, name, start_at, end_at, is_active)
		 VALUES ($1, $2, $3, $4, $5)`,
		season.ID, season.Name, season.Start, season.End, season.IsActive,
	)
	if err != nil {
		return fmt.Errorf("Seasonの作成に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SeasonRepository = (*PostgresSeasonRepo)(nil)
