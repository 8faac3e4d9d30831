// Package model はドメインモデルを定義する。
package model

import "time"

// User はiGoUltraプラットフォームの利用ユーザーを表す。
// 認証はDiscord OAuth経由で行われ、XP・レベル・Layer配置を保持する。
type User struct {
	ID         string
	UltraName  string // ゲーム内表示名（初回ログイン後にユーザーが選択）
	Email      string // 任意（連絡・復旧用）
	Xp         int    // 累計XP（0未満にはならない）
	Level      int    // XPから導出されるレベル（最低1）
	Rank       string // 表示用ランク名（例: "Level 12"）
	RealLayer  string // 現在のRealitäts-Layer（Season終了時のみ変化）
	CyberLayer string // 現在のCyber-Layer（Season終了時のみ変化）
	AvatarURL  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 現在はDiscordのみだが、複数IdPに対応可能な構造にしている。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
