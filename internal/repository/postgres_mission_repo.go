package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/igoultra/ultrabackend/internal/model"
)

const missionColumns = `id, title, description, type, unit, target_value,
	xp_reward, gold_reward, ultra_point_reward,
	start_time, end_time, season_id, is_active, created_at, updated_at`

// PostgresMissionRepo はPostgreSQLを使用したミッションリポジトリ。
type PostgresMissionRepo struct {
	db *sql.DB
}

// NewPostgresMissionRepo はPostgresMissionRepoを生成する。
func NewPostgresMissionRepo(db *sql.DB) *PostgresMissionRepo {
	return &PostgresMissionRepo{db: db}
}

func scanMission(row interface{ Scan(...any) error }) (*model.Mission, error) {
	m := &model.Mission{}
	var missionType string
	var startTime, endTime sql.NullTime
	var seasonID sql.NullString
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &missionType, &m.Unit, &m.TargetValue,
		&m.XpReward, &m.GoldReward, &m.UltraPointReward,
		&startTime, &endTime, &seasonID, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Type = model.MissionType(missionType)
	if startTime.Valid {
		m.StartTime = &startTime.Time
	}
	if endTime.Valid {
		m.EndTime = &endTime.Time
	}
	if seasonID.Valid {
		m.SeasonID = &seasonID.String
	}
	return m, nil
}

// FindByID は指定IDのミッションを取得する。見つからない場合はnilを返す。
func (r *PostgresMissionRepo) FindByID(ctx context.Context, id string) (*model.Mission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+missionColumns+` FROM missions WHERE id = $1`, id)
	m, err := scanMission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ミッションの取得に失敗しました: %w", err)
	}
	return m, nil
}

// ListActive は指定時刻に受付中のミッションを返す。
// 季節ミッションはseason_idが現在のSeasonと一致するものだけを含める。
func (r *PostgresMissionRepo) ListActive(ctx context.Context, at time.Time, seasonID string) ([]*model.Mission, error) {
	query := `SELECT ` + missionColumns + `
	          FROM missions
	          WHERE is_active = true
	            AND (start_time IS NULL OR start_time <= $1)
	            AND (end_time IS NULL OR end_time >= $1)`
	args := []any{at}

	if seasonID != "" {
		args = append(args, seasonID)
		query += ` AND (season_id IS NULL OR season_id = $2)`
	} else {
		query += ` AND season_id IS NULL`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("受付中ミッションの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []*model.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("ミッションの読み取りに失敗しました: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ミッションの走査に失敗しました: %w", err)
	}

	return result, nil
}

// IncrementProgress は(user, mission)の進捗を必要なら0で作成し、valueを加算する。
// TargetValueで頭打ちにし、到達時にis_completed/completed_atを設定する。
// 既に完了している進捗は変更せず、新たに完了になった場合のみtrueを返す。
func (r *PostgresMissionRepo) IncrementProgress(ctx context.Context, userID, missionID string, value, targetValue int) (bool, error) {
	// completed_atとupdated_atは同一文内のnow()で揃うため、
	// 両者が一致する行だけが「この呼び出しで完了した」行になる。
	var newlyCompleted bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO mission_progress (id, user_id, mission_id, current_value, is_completed, completed_at)
		 VALUES ($1, $2, $3, LEAST($4, $5), $4 >= $5, CASE WHEN $4 >= $5 THEN now() END)
		 ON CONFLICT (user_id, mission_id) DO UPDATE SET
		   current_value = CASE WHEN mission_progress.is_completed
		                        THEN mission_progress.current_value
		                        ELSE LEAST($5, mission_progress.current_value + $4) END,
		   is_completed = mission_progress.is_completed OR mission_progress.current_value + $4 >= $5,
		   completed_at = COALESCE(mission_progress.completed_at,
		                           CASE WHEN mission_progress.current_value + $4 >= $5 THEN now() END),
		   updated_at = now()
		 RETURNING COALESCE(completed_at = updated_at, false)`,
		uuid.New().String(), userID, missionID, value, targetValue,
	).Scan(&newlyCompleted)
	if err != nil {
		return false, fmt.Errorf("ミッション進捗の更新に失敗しました: %w", err)
	}
	return newlyCompleted, nil
}

// ListProgressByUser はユーザーの全進捗をミッション定義付きで返す。
func (r *PostgresMissionRepo) ListProgressByUser(ctx context.Context, userID string) ([]*model.MissionProgressWithMission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT mp.id, mp.user_id, mp.mission_id, mp.current_value,
		        mp.is_completed, mp.completed_at, mp.created_at, mp.updated_at,
		        m.id, m.title, m.description, m.type, m.unit, m.target_value,
		        m.xp_reward, m.gold_reward, m.ultra_point_reward,
		        m.start_time, m.end_time, m.season_id, m.is_active, m.created_at, m.updated_at
		 FROM mission_progress mp
		 JOIN missions m ON m.id = mp.mission_id
		 WHERE mp.user_id = $1
		 ORDER BY mp.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ミッション進捗の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []*model.MissionProgressWithMission
	for rows.Next() {
		pm := &model.MissionProgressWithMission{}
		var completedAt, startTime, endTime sql.NullTime
		var missionType string
		var seasonID sql.NullString
		if err := rows.Scan(
			&pm.ID, &pm.UserID, &pm.MissionID, &pm.CurrentValue,
			&pm.IsCompleted, &completedAt, &pm.CreatedAt, &pm.UpdatedAt,
			&pm.Mission.ID, &pm.Mission.Title, &pm.Mission.Description, &missionType,
			&pm.Mission.Unit, &pm.Mission.TargetValue,
			&pm.Mission.XpReward, &pm.Mission.GoldReward, &pm.Mission.UltraPointReward,
			&startTime, &endTime, &seasonID, &pm.Mission.IsActive,
			&pm.Mission.CreatedAt, &pm.Mission.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ミッション進捗の読み取りに失敗しました: %w", err)
		}
		pm.Mission.Type = model.MissionType(missionType)
		if completedAt.Valid {
			pm.CompletedAt = &completedAt.Time
		}
		if startTime.Valid {
			pm.Mission.StartTime = &startTime.Time
		}
		if endTime.Valid {
			pm.Mission.EndTime = &endTime.Time
		}
		if seasonID.Valid {
			pm.Mission.SeasonID = &seasonID.String
		}
		result = append(result, pm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ミッション進捗の走査に失敗しました: %w", err)
	}

	return result, nil
}

// compile-time interface check
var _ MissionRepository = (*PostgresMissionRepo)(nil)
