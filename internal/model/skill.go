// Package model はドメインモデルを定義する。
package model

import "time"

// StatCategory はキャラクターステータスのカテゴリを表す。
type StatCategory string

const (
	StatCategoryBody   StatCategory = "Body"
	StatCategoryMind   StatCategory = "Mind"
	StatCategorySpirit StatCategory = "Spirit"
	StatCategoryCombat StatCategory = "Combat"
	StatCategoryTech   StatCategory = "Tech"
)

// StatNames はステータス名の一覧。マイグレーションのカラム定義と対応する。
var StatNames = []string{
	// Body
	"strength", "endurance", "agility",
	// Mind
	"intelligence", "focus", "memory",
	// Spirit
	"willpower", "charisma", "intuition",
	// Combat
	"combat_skill", "reaction_time", "tactical_awareness",
	// Tech
	"hacking", "programming", "cyber_awareness",
}

// StatCap は各ステータスの上限値。
const StatCap = 100

// CharacterStats はユーザーごとのキャラクターステータスを表す。
// XPイベントのカテゴリに応じて自動的に成長する（上限100）。
type CharacterStats struct {
	UserID    string
	Stats     map[string]int // StatNames のキーを持つ
	UpdatedAt time.Time
}

// Stat は指定ステータスの現在値を返す。未設定の場合は初期値1を返す。
func (c *CharacterStats) Stat(name string) int {
	if v, ok := c.Stats[name]; ok {
		return v
	}
	return 1
}

// Skill は条件を満たすと解放できる能力を表す。
type Skill struct {
	ID            string
	Name          string
	Description   string
	Category      StatCategory
	RequiredLevel int
	// RequiredStats はステータス名 → 必要値。空なら条件なし。
	RequiredStats map[string]int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserSkill はユーザーが解放したSkillを表す。
type UserSkill struct {
	ID         string
	UserID     string
	SkillID    string
	UnlockedAt time.Time
}

// SkillAvailability はSkillと現在のユーザーに対する解放可否を結合したモデル。
type SkillAvailability struct {
	Skill      Skill
	CanUnlock  bool
	Reason     string // 解放不可の場合の理由
	IsUnlocked bool
}
