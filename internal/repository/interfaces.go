// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/igoultra/ultrabackend/internal/model"
)

// Querier は*sql.DBと*sql.Txが共に満たすクエリ実行インターフェース。
// XP付与とSeason Rolloverは複数テーブルにまたがる単一トランザクションを
// 必要とするため、該当メソッドはQuerierを明示的に受け取る。
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUltraName はultra_nameでユーザーを検索する。見つからない場合はnilを返す。
	FindByUltraName(ctx context.Context, name string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はultra_name、avatar_urlを更新する。
	UpdateProfile(ctx context.Context, id, ultraName, avatarURL string) error

	// ApplyXpDelta は累計XPに符号付きの差分を原子的に適用する。
	// 累計は0未満にならない（GREATEST(0, xp + delta)）。
	// 適用後のXPと適用前のレベルを返す。
	ApplyXpDelta(ctx context.Context, q Querier, id string, delta int) (newXp, oldLevel int, err error)

	// UpdateLevel は導出レベルと表示用ランク名を更新する。
	UpdateLevel(ctx context.Context, q Querier, id string, level int, rank string) error

	// UpdateLayers はLayer配置を更新する。SeasonRolloverのみが呼び出す。
	UpdateLayers(ctx context.Context, q Querier, id, realLayer, cyberLayer string) error

	// FindLayers は現在のLayer配置を取得する。
	FindLayers(ctx context.Context, q Querier, id string) (realLayer, cyberLayer string, err error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、xp_events等はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ActivityTypeRepository はアクティビティカタログの永続化インターフェース。
type ActivityTypeRepository interface {
	// FindByKey は指定キーのActivityTypeを取得する。見つからない場合はnilを返す。
	FindByKey(ctx context.Context, key string) (*model.ActivityType, error)

	// List は全ActivityTypeをキー昇順で返す。
	List(ctx context.Context) ([]*model.ActivityType, error)

	// Create はActivityTypeを作成する（管理オペレーション用）。
	Create(ctx context.Context, at *model.ActivityType) error
}

// XpEventRepository はXPイベント台帳の永続化インターフェース。
// イベントは追記専用で、更新・削除のメソッドは意図的に存在しない。
type XpEventRepository interface {
	// Create はXpEventを追記する。Grantトランザクションに参加するためQuerierを受け取る。
	Create(ctx context.Context, q Querier, event *model.XpEvent) error

	// ListByUser はユーザーのイベント履歴を(timestamp, id)降順で返す。
	// cursorがゼロ値の場合は先頭から取得する。cursorIDを併用した複合カーソルで
	// 同一timestampのページ境界を正しく扱う。limit+1件返してHasMore判定に使う。
	ListByUser(ctx context.Context, userID string, cursor time.Time, cursorID string, limit int) ([]*model.XpEvent, error)

	// SumByUser はユーザーの全イベントの符号付き合計を返す（整合性検査用）。
	SumByUser(ctx context.Context, userID string) (int, error)
}

// SeasonRepository はSeasonデータの永続化インターフェース。
type SeasonRepository interface {
	// FindByID は指定IDのSeasonを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Season, error)

	// FindActive はis_active=trueのSeasonを取得する。見つからない場合はnilを返す。
	// 時間範囲の判定は呼び出し側が行う（フラグと範囲の両方が必要）。
	FindActive(ctx context.Context) (*model.Season, error)

	// Activate は指定Season以外を全て非アクティブにし、指定Seasonをアクティブにする。
	// 呼び出し側のトランザクション内で実行することで、2つのアクティブSeasonが
	// 観測されることはない。
	Activate(ctx context.Context, q Querier, id string) error

	// Deactivate は指定Seasonを非アクティブにする。冪等。
	Deactivate(ctx context.Context, q Querier, id string) error

	// Create はSeasonを作成する。
	Create(ctx context.Context, q Querier, season *model.Season) error
}

// SeasonXpRepository はSeason内XP累計の永続化インターフェース。
type SeasonXpRepository interface {
	// Increment は(season, user, track)の行を必要なら0で作成し、amountを加算する。
	// DBレベルの原子的UPSERTで実装され、同一キーへの並行加算でも更新が失われない。
	// Seasonが非アクティブになっていた場合は何も書き込まない（締め済みSeasonの保護）。
	Increment(ctx context.Context, q Querier, seasonID, userID string, track model.LayerTrack, amount int) error

	// RankedBySeasonAndTrack は指定Season+トラックの累計をXP降順で返す。
	// 同点はuser_id昇順で安定化する。
	RankedBySeasonAndTrack(ctx context.Context, q Querier, seasonID string, track model.LayerTrack) ([]*model.SeasonXp, error)

	// FindBySeasonUserTrack は単一の累計行を取得する。見つからない場合はnilを返す。
	FindBySeasonUserTrack(ctx context.Context, seasonID, userID string, track model.LayerTrack) (*model.SeasonXp, error)
}

// LeaderboardRepository はSeason終了スナップショットの永続化インターフェース。
type LeaderboardRepository interface {
	// DeleteBySeason は指定Seasonの既存スナップショットを削除する（再実行時の掃除）。
	DeleteBySeason(ctx context.Context, q Querier, seasonID string) error

	// CreateBatch はスナップショット行を一括作成する。
	CreateBatch(ctx context.Context, q Querier, entries []*model.LeaderboardEntry) error

	// ListBySeason はスナップショットをXP降順で返す。
	// realLayer / cyberLayer / track はいずれも空文字で無条件となるフィルタ。
	ListBySeason(ctx context.Context, seasonID string, track model.LayerTrack, realLayer, cyberLayer string, top int) ([]*model.LeaderboardEntryWithUser, error)
}

// MissionRepository はミッションと進捗の永続化インターフェース。
type MissionRepository interface {
	// FindByID は指定IDのミッションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Mission, error)

	// ListActive は指定時刻に受付中のミッションを返す。
	// seasonIDが空でない場合、そのSeasonの季節ミッションも含める。
	ListActive(ctx context.Context, at time.Time, seasonID string) ([]*model.Mission, error)

	// IncrementProgress は(user, mission)の進捗を必要なら0で作成し、valueを加算する。
	// TargetValueで頭打ちにし、到達した場合はis_completed/completed_atを設定する。
	// 新たに完了になった場合はtrueを返す（既完了の再加算はfalse）。
	IncrementProgress(ctx context.Context, userID, missionID string, value, targetValue int) (completed bool, err error)

	// ListProgressByUser はユーザーの全進捗をミッション定義付きで返す。
	ListProgressByUser(ctx context.Context, userID string) ([]*model.MissionProgressWithMission, error)
}

// CharacterStatsRepository はキャラクターステータスとSkillの永続化インターフェース。
type CharacterStatsRepository interface {
	// FindByUser はユーザーのCharacterStatsを取得する。未作成の場合は初期値1で作成して返す。
	FindByUser(ctx context.Context, userID string) (*model.CharacterStats, error)

	// ApplyGains は複数ステータスへの加算を原子的に適用する（各値は上限100で頭打ち）。
	ApplyGains(ctx context.Context, userID string, gains map[string]int) error

	// ListSkills は有効な全Skillを返す。
	ListSkills(ctx context.Context) ([]*model.Skill, error)

	// FindSkillByID は指定IDのSkillを取得する。見つからない場合はnilを返す。
	FindSkillByID(ctx context.Context, id string) (*model.Skill, error)

	// ListUserSkills はユーザーが解放済みのSkill IDを返す。
	ListUserSkills(ctx context.Context, userID string) ([]*model.UserSkill, error)

	// CreateUserSkill はSkill解放を記録する。既に解放済みの場合は何もしない。
	CreateUserSkill(ctx context.Context, us *model.UserSkill) error
}
