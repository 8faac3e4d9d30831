package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/igoultra/ultrabackend/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, ultra_name, email, xp, level, rank, real_layer, cyber_layer, avatar_url, created_at, updated_at`

// scanUser は1行分のユーザーを読み取る。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var ultraName, email, avatarURL sql.NullString

	err := row.Scan(
		&user.ID, &ultraName, &email,
		&user.Xp, &user.Level, &user.Rank,
		&user.RealLayer, &user.CyberLayer,
		&avatarURL, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.UltraName = ultraName.String
	user.Email = email.String
	user.AvatarURL = avatarURL.String
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// FindByUltraName はultra_nameでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUltraName(ctx context.Context, name string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE ultra_name = $1`, name)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	return user, nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ユーザーを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, ultra_name, email, xp, level, rank, real_layer, cyber_layer, avatar_url, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)`,
		user.ID, user.UltraName, user.Email,
		user.Xp, user.Level, user.Rank,
		user.RealLayer, user.CyberLayer,
		user.AvatarURL, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	// identityを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateProfile はultra_name、avatar_urlを更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id, ultraName, avatarURL string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET ultra_name = NULLIF($2, ''), avatar_url = NULLIF($3, ''), updated_at = now()
		 WHERE id = $1`,
		id, ultraName, avatarURL,
	)
	if err != nil {
		return fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError()
	}
	return nil
}

// ApplyXpDelta は累計XPに符号付きの差分を原子的に適用する。
// GREATEST(0, xp + delta)により累計は0未満にならない。
// 読み取り→書き込みの分離がないため、同一ユーザーへの並行付与でも更新が失われない。
func (r *PostgresUserRepo) ApplyXpDelta(ctx context.Context, q Querier, id string, delta int) (int, int, error) {
	var newXp, oldLevel int
	err := q.QueryRowContext(ctx,
		`UPDATE users SET xp = GREATEST(0, xp + $2), updated_at = now()
		 WHERE id = $1
		 RETURNING xp, level`,
		id, delta,
	).Scan(&newXp, &oldLevel)

	if err == sql.ErrNoRows {
		return 0, 0, model.NewUserNotFoundError()
	}
	if err != nil {
		return 0, 0, fmt.Errorf("XPの適用に失敗しました: %w", err)
	}
	return newXp, oldLevel, nil
}

// UpdateLevel は導出レベルと表示用ランク名を更新する。
func (r *PostgresUserRepo) UpdateLevel(ctx context.Context, q Querier, id string, level int, rank string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET level = $2, rank = $3, updated_at = now() WHERE id = $1`,
		id, level, rank,
	)
	if err != nil {
		return fmt.Errorf("レベルの更新に失敗しました: %w", err)
	}
	return nil
}

// UpdateLayers はLayer配置を更新する。SeasonRolloverのみが呼び出す。
func (r *PostgresUserRepo) UpdateLayers(ctx context.Context, q Querier, id, realLayer, cyberLayer string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET real_layer = $2, cyber_layer = $3, updated_at = now() WHERE id = $1`,
		id, realLayer, cyberLayer,
	)
	if err != nil {
		return fmt.Errorf("Layer配置の更新に失敗しました: %w", err)
	}
	return nil
}

// FindLayers は現在のLayer配置を取得する。
func (r *PostgresUserRepo) FindLayers(ctx context.Context, q Querier, id string) (string, string, error) {
	var realLayer, cyberLayer string
	err := q.QueryRowContext(ctx,
		`SELECT real_layer, cyber_layer FROM users WHERE id = $1`, id,
	).Scan(&realLayer, &cyberLayer)

	if err == sql.ErrNoRows {
		return "", "", model.NewUserNotFoundError()
	}
	if err != nil {
		return "", "", fmt.Errorf("Layer配置の取得に失敗しました: %w", err)
	}
	return realLayer, cyberLayer, nil
}

// DeleteByID は指定IDのユーザーを削除する。
// identities、sessions、xp_events等はCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
