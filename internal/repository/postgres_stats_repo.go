package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/igoultra/ultrabackend/internal/model"
)

// PostgresStatsRepo はPostgreSQLを使用したキャラクターステータスとSkillのリポジトリ。
// ステータスはStatNamesと同名のカラムに展開して保持する。
type PostgresStatsRepo struct {
	db *sql.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// FindByUser はユーザーのCharacterStatsを取得する。未作成の場合は初期値1で作成して返す。
func (r *PostgresStatsRepo) FindByUser(ctx context.Context, userID string) (*model.CharacterStats, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO character_stats (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("キャラクターステータスの初期化に失敗しました: %w", err)
	}

	cols := strings.Join(model.StatNames, ", ")
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cols+`, updated_at FROM character_stats WHERE user_id = $1`,
		userID,
	)

	values := make([]int, len(model.StatNames))
	dest := make([]any, 0, len(model.StatNames)+1)
	for i := range values {
		dest = append(dest, &values[i])
	}
	stats := &model.CharacterStats{UserID: userID, Stats: make(map[string]int, len(model.StatNames))}
	dest = append(dest, &stats.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, fmt.Errorf("キャラクターステータスの取得に失敗しました: %w", err)
	}
	for i, name := range model.StatNames {
		stats.Stats[name] = values[i]
	}
	return stats, nil
}

// ApplyGains は複数ステータスへの加算を原子的に適用する。各値は上限100で頭打ちになる。
// 未知のステータス名が含まれる場合はエラーを返す。
func (r *PostgresStatsRepo) ApplyGains(ctx context.Context, userID string, gains map[string]int) error {
	if len(gains) == 0 {
		return nil
	}

	var sets []string
	args := []any{userID}
	for _, name := range model.StatNames {
		gain, ok := gains[name]
		if !ok || gain == 0 {
			continue
		}
		args = append(args, gain)
		sets = append(sets, fmt.Sprintf("%s = LEAST(%d, %s + $%d)", name, model.StatCap, name, len(args)))
	}
	for name := range gains {
		if !slices.Contains(model.StatNames, name) {
			return fmt.Errorf("未知のステータス名です: %s", name)
		}
	}
	if len(sets) == 0 {
		return nil
	}

	query := `UPDATE character_stats SET ` + strings.Join(sets, ", ") + `, updated_at = now() WHERE user_id = $1`
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("キャラクターステータスの更新に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if affected == 0 {
		// 行が未作成のユーザー。初期化してから再適用する。
		if _, err := r.FindByUser(ctx, userID); err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("キャラクターステータスの更新に失敗しました: %w", err)
		}
	}
	return nil
}

const skillColumns = `id, name, description, category, required_level, required_stats, is_active, created_at, updated_at`

func scanSkill(row interface{ Scan(...any) error }) (*model.Skill, error) {
	skill := &model.Skill{}
	var category string
	var requiredStats []byte
	err := row.Scan(
		&skill.ID, &skill.Name, &skill.Description, &category,
		&skill.RequiredLevel, &requiredStats, &skill.IsActive,
		&skill.CreatedAt, &skill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	skill.Category = model.StatCategory(category)
	if len(requiredStats) > 0 {
		if err := json.Unmarshal(requiredStats, &skill.RequiredStats); err != nil {
			return nil, fmt.Errorf("required_statsのデコードに失敗しました: %w", err)
		}
	}
	return skill, nil
}

// ListSkills は有効な全Skillをrequired_level昇順で返す。
func (r *PostgresStatsRepo) ListSkills(ctx context.Context) ([]*model.Skill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+skillColumns+` FROM skills WHERE is_active = true
		 ORDER BY required_level ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("Skill一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []*model.Skill
	for rows.Next() {
		skill, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("Skillの読み取りに失敗しました: %w", err)
		}
		result = append(result, skill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Skillの走査に失敗しました: %w", err)
	}

	return result, nil
}

// FindSkillByID は指定IDのSkillを取得する。見つからない場合はnilを返す。
func (r *PostgresStatsRepo) FindSkillByID(ctx context.Context, id string) (*model.Skill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+skillColumns+` FROM skills WHERE id = $1`, id)
	skill, err := scanSkill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Skillの取得に失敗しました: %w", err)
	}
	return skill, nil
}

// ListUserSkills はユーザーが解放済みのSkillを返す。
func (r *PostgresStatsRepo) ListUserSkills(ctx context.Context, userID string) ([]*model.UserSkill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, skill_id, unlocked_at
		 FROM user_skills WHERE user_id = $1 ORDER BY unlocked_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("解放済みSkillの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []*model.UserSkill
	for rows.Next() {
		us := &model.UserSkill{}
		if err := rows.Scan(&us.ID, &us.UserID, &us.SkillID, &us.UnlockedAt); err != nil {
			return nil, fmt.Errorf("解放済みSkillの読み取りに失敗しました: %w", err)
		}
		result = append(result, us)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("解放済みSkillの走査に失敗しました: %w", err)
	}

	return result, nil
}

// CreateUserSkill はSkill解放を記録する。既に解放済みの場合は何もしない。
func (r *PostgresStatsRepo) CreateUserSkill(ctx context.Context, us *model.UserSkill) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_skills (id, user_id, skill_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, skill_id) DO NOTHING`,
		us.ID, us.UserID, us.SkillID,
	)
	if err != nil {
		return fmt.Errorf("Skill解放の記録に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CharacterStatsRepository = (*PostgresStatsRepo)(nil)
