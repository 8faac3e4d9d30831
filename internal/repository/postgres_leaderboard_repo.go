package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/igoultra/ultrabackend/internal/model"
)

// PostgresLeaderboardRepo はPostgreSQLを使用したSeason終了スナップショットのリポジトリ。
type PostgresLeaderboardRepo struct {
	db *sql.DB
}

// NewPostgresLeaderboardRepo はPostgresLeaderboardRepoを生成する。
func NewPostgresLeaderboardRepo(db *sql.DB) *PostgresLeaderboardRepo {
	return &PostgresLeaderboardRepo{db: db}
}

// DeleteBySeason は指定Seasonの既存スナップショットを削除する。
// Rolloverの再実行時に重複行が残らないようにするための掃除。
func (r *PostgresLeaderboardRepo) DeleteBySeason(ctx context.Context, q Querier, seasonID string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM leaderboard_entries WHERE season_id = $1`, seasonID)
	if err != nil {
		return fmt.Errorf("スナップショットの削除に失敗しました: %w", err)
	}
	return nil
}

// CreateBatch はスナップショット行を一括作成する。
func (r *PostgresLeaderboardRepo) CreateBatch(ctx context.Context, q Querier, entries []*model.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO leaderboard_entries (id, season_id, user_id, track, xp, real_layer, cyber_layer) VALUES `)
	args := make([]any, 0, len(entries)*7)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, e.ID, e.SeasonID, e.UserID, string(e.Track), e.Xp, e.RealLayer, e.CyberLayer)
	}

	_, err := q.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("スナップショットの作成に失敗しました: %w", err)
	}
	return nil
}

// ListBySeason はスナップショットをXP降順（同点はuser_id昇順）で返す。
// track / realLayer / cyberLayer は空の場合に無条件となるフィルタ。
// topが正の場合は上位top件に制限する。
func (r *PostgresLeaderboardRepo) ListBySeason(ctx context.Context, seasonID string, track model.LayerTrack, realLayer, cyberLayer string, top int) ([]*model.LeaderboardEntryWithUser, error) {
	query := `SELECT le.id, le.season_id, le.user_id, le.track, le.xp,
	                 le.real_layer, le.cyber_layer, le.created_at,
	                 u.ultra_name, u.level
	          FROM leaderboard_entries le
	          JOIN users u ON u.id = le.user_id
	          WHERE le.season_id = $1`
	args := []any{seasonID}

	if track != "" {
		args = append(args, string(track))
		query += fmt.Sprintf(` AND le.track = $%d`, len(args))
	}
	if realLayer != "" {
		args = append(args, realLayer)
		query += fmt.Sprintf(` AND le.real_layer = $%d`, len(args))
	}
	if cyberLayer != "" {
		args = append(args, cyberLayer)
		query += fmt.Sprintf(` AND le.cyber_layer = $%d`, len(args))
	}
	query += ` ORDER BY le.xp DESC, le.user_id ASC`
	if top > 0 {
		query += fmt.Sprintf(` LIMIT %d`, top)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("スナップショットの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []*model.LeaderboardEntryWithUser
	for rows.Next() {
		entry := &model.LeaderboardEntryWithUser{}
		var t string
		if err := rows.Scan(
			&entry.ID, &entry.SeasonID, &entry.UserID, &t, &entry.Xp,
			&entry.RealLayer, &entry.CyberLayer, &entry.CreatedAt,
			&entry.UltraName, &entry.Level,
		); err != nil {
			return nil, fmt.Errorf("スナップショットの読み取りに失敗しました: %w", err)
		}
		entry.Track = model.LayerTrack(t)
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スナップショットの走査に失敗しました: %w", err)
	}

	return result, nil
}

// compile-time interface check
var _ LeaderboardRepository = (*PostgresLeaderboardRepo)(nil)
