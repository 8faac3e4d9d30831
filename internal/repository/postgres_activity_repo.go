package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/igoultra/ultrabackend/internal/model"
)

// PostgresActivityTypeRepo はPostgreSQLを使用したアクティビティカタログリポジトリ。
type PostgresActivityTypeRepo struct {
	db *sql.DB
}

// NewPostgresActivityTypeRepo はPostgresActivityTypeRepoを生成する。
func NewPostgresActivityTypeRepo(db *sql.DB) *PostgresActivityTypeRepo {
	return &PostgresActivityTypeRepo{db: db}
}

// FindByKey は指定キーのActivityTypeを取得する。見つからない場合はnilを返す。
func (r *PostgresActivityTypeRepo) FindByKey(ctx context.Context, key string) (*model.ActivityType, error) {
	at := &model.ActivityType{}
	var description sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, key, display_name, xp_per_unit, unit, description, category, created_at, updated_at
		 FROM activity_types WHERE key = $1`,
		key,
	).Scan(
		&at.ID, &at.Key, &at.DisplayName, &at.XpPerUnit, &at.Unit,
		&description, &at.Category, &at.CreatedAt, &at.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ActivityTypeの取得に失敗しました: %w", err)
	}

	at.Description = description.String
	return at, nil
}

// List は全ActivityTypeをキー昇順で返す。
func (r *PostgresActivityTypeRepo) List(ctx context.Context) ([]*model.ActivityType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, key, display_name, xp_per_unit, unit, description, category, created_at, updated_at
		 FROM activity_types ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("ActivityTypeの一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []*model.ActivityType
	for rows.Next() {
		at := &model.ActivityType{}
		var description sql.NullString
		if err := rows.Scan(
			&at.ID, &at.Key, &at.DisplayName, &at.XpPerUnit, &at.Unit,
			&description, &at.Category, &at.CreatedAt, &at.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ActivityTypeの読み取りに失敗しました: %w", err)
		}
		at.Description = description.String
		result = append(result, at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ActivityTypeの走査に失敗しました: %w", err)
	}

	return result, nil
}

// Create はActivityTypeを作成する（管理オペレーション用）。
func (r *PostgresActivityTypeRepo) Create(ctx context.Context, at *model.ActivityType) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_types (id, key, display_name, xp_per_unit, unit, description, category, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)`,
		at.ID, at.Key, at.DisplayName, at.XpPerUnit, at.Unit,
		at.Description, at.Category, at.CreatedAt, at.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ActivityTypeの作成に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ActivityTypeRepository = (*PostgresActivityTypeRepo)(nil)
