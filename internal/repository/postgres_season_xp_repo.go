package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/igoultra/ultrabackend/internal/model"
)

// PostgresSeasonXpRepo はPostgreSQLを使用したSeason内XP累計リポジトリ。
type PostgresSeasonXpRepo struct {
	db *sql.DB
}

// NewPostgresSeasonXpRepo はPostgresSeasonXpRepoを生成する。
func NewPostgresSeasonXpRepo(db *sql.DB) *PostgresSeasonXpRepo {
	return &PostgresSeasonXpRepo{db: db}
}

// Increment は(season, user, track)の行を必要なら0で作成し、amountを加算する。
// ON CONFLICTによる原子的UPSERTのため、同一キーへの並行加算でも更新が失われない。
// Seasonが現時点でアクティブな場合のみ書き込む。Season締め処理が先にコミット
// していた場合、締めたSeasonへの加算はスナップショット確定後のため黙って捨てる。
func (r *PostgresSeasonXpRepo) Increment(ctx context.Context, q Querier, seasonID, userID string, track model.LayerTrack, amount int) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO season_xp (id, season_id, user_id, track, xp)
		 SELECT $1, $2, $3, $4, $5
		 WHERE EXISTS (SELECT 1 FROM seasons WHERE id = $2 AND is_active = true)
		 ON CONFLICT (season_id, user_id, track)
		 DO UPDATE SET xp = season_xp.xp + EXCLUDED.xp, updated_at = now()`,
		uuid.New().String(), seasonID, userID, string(track), amount,
	)
	if err != nil {
		return fmt.Errorf("Season XPの加算に失敗しました: %w", err)
	}
	return nil
}

// RankedBySeasonAndTrack は指定Season+トラックの累計をXP降順で返す。
// 同点はuser_id昇順で安定化する。
func (r *PostgresSeasonXpRepo) RankedBySeasonAndTrack(ctx context.Context, q Querier, seasonID string, track model.LayerTrack) ([]*model.SeasonXp, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, season_id, user_id, track, xp, created_at, updated_at
		 FROM season_xp
		 WHERE season_id = $1 AND track = $2
		 ORDER BY xp DESC, user_id ASC`,
		seasonID, string(track),
	)
	if err != nil {
		return nil, fmt.Errorf("Season XPランキングの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []*model.SeasonXp
	for rows.Next() {
		sx, err := scanSeasonXp(rows)
		if err != nil {
			return nil, fmt.Errorf("Season XPの読み取りに失敗しました: %w", err)
		}
		result = append(result, sx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Season XPの走査に失敗しました: %w", err)
	}

	return result, nil
}

// FindBySeasonUserTrack は単一の累計行を取得する。見つからない場合はnilを返す。
func (r *PostgresSeasonXpRepo) FindBySeasonUserTrack(ctx context.Context, seasonID, userID string, track model.LayerTrack) (*model.SeasonXp, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, season_id, user_id, track, xp, created_at, updated_at
		 FROM season_xp
		 WHERE season_id = $1 AND user_id = $2 AND track = $3`,
		seasonID, userID, string(track),
	)
	sx, err := scanSeasonXp(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Season XPの取得に失敗しました: %w", err)
	}
	return sx, nil
}

func scanSeasonXp(row interface{ Scan(...any) error }) (*model.SeasonXp, error) {
	sx := &model.SeasonXp{}
	var track string
	err := row.Scan(
		&sx.ID, &sx.SeasonID, &sx.UserID, &track, &sx.Xp,
		&sx.CreatedAt, &sx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sx.Track = model.LayerTrack(track)
	return sx, nil
}

// compile-time interface check
var _ SeasonXpRepository = (*PostgresSeasonXpRepo)(nil)
