// Package model はドメインモデルを定義する。
package model

import "time"

// LayerTrack はXPイベントが属するLayerトラックを表す。
type LayerTrack string

const (
	// LayerTrackRealLife は現実世界の活動から得たXPを表す。
	LayerTrackRealLife LayerTrack = "Real-Life"
	// LayerTrackCyber はサイバー空間の活動から得たXPを表す。
	LayerTrackCyber LayerTrack = "Cyber"
	// LayerTrackGame はゲーム内活動から得たXPを表す。
	// ラダー昇降には使用されず、Season集計のみに現れる。
	LayerTrackGame LayerTrack = "Game"
)

// ValidLayerTrack はトラック名が定義済みのものかどうかを判定する。
func ValidLayerTrack(t LayerTrack) bool {
	switch t {
	case LayerTrackRealLife, LayerTrackCyber, LayerTrackGame:
		return true
	default:
		return false
	}
}

// XpCategory はActivityTypeに付与されるXPカテゴリを表す。
// Skillsシステムのステータス成長にルーティングされる。
type XpCategory string

const (
	XpCategoryPhysical XpCategory = "Physical"
	XpCategoryMental   XpCategory = "Mental"
	XpCategoryCyber    XpCategory = "Cyber"
	XpCategoryUltra    XpCategory = "Ultra"
)

// ActivityType はXPを付与できるアクティビティのカタログ項目を表す。
// 管理者が作成・編集し、通常運用中はイミュータブルとして扱う。
type ActivityType struct {
	ID          string
	Key         string  // 一意キー（例: "pushups"）
	DisplayName string
	XpPerUnit   float64 // 単位あたりのXP（例: 5 XP/repetition）
	Unit        string  // 例: "repetition", "time_minute", "step"
	Description string
	Category    XpCategory // Skillsシステム用のXPカテゴリ
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// XpEvent はユーザーへのXP変動を記録するイミュータブルなイベント。
// 作成後は更新も削除もされない（追記専用台帳）。
// ユーザーの累計XPは常に全イベントの符号付き合計（下限0）と一致する。
type XpEvent struct {
	ID        string
	UserID    string
	Amount    int        // 正 = 獲得、負 = 減算
	Source    string     // ActivityType.key
	Track     LayerTrack // このイベントが属するLayerトラック
	Metadata  map[string]any
	Timestamp time.Time
}

// XpStats はXP付与・参照APIのレスポンス契約。
// フィールド名・形はフロントエンドとの互換性のため固定。
type XpStats struct {
	TotalXp     int  `json:"total_xp"`
	Level       int  `json:"level"`
	NextLevel   int  `json:"next_level"`
	NextLevelXp int  `json:"next_level_xp"`
	XpToNext    int  `json:"xp_to_next"`
	LeveledUp   bool `json:"leveled_up"`
	AwardedXp   int  `json:"awarded_xp"`
}
